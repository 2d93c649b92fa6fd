// Package server derives connection identifiers and shared-secret hashes.
package server

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand/v2"
	"strconv"
)

// Salt is mixed into every hash the relay computes. It is public and static;
// neither connection IDs nor password hashes depend on it staying secret.
const Salt = "gorelay:v1"

// NewConnectionID returns an identifier for a newly admitted connection.
// The address hash groups connections from the same peer while the random
// fraction keeps concurrent connections from one address apart. Collisions
// are possible but vanishingly unlikely.
func NewConnectionID(addr string) string {
	return saltedHash(addr) + strconv.FormatFloat(rand.Float64(), 'f', -1, 64)
}

// HashSecret returns the value an operator stores as passwordHash and a
// client sends after "password: ".
func HashSecret(secret string) string {
	return saltedHash(secret)
}

func saltedHash(s string) string {
	sum := sha256.Sum256([]byte(s + Salt))
	return hex.EncodeToString(sum[:])
}
