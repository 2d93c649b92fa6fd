package server

import "github.com/gorilla/websocket"

// passwordPrefix precedes the configured hash in a client's first frame.
const passwordPrefix = "password: "

// AuthGate decides admission from a connection's first frame. The zero value
// is a disabled gate that admits everyone without reading anything.
type AuthGate struct {
	expected string
	enabled  bool
}

// NewAuthGate returns a gate for passwordHash. An empty hash disables it.
func NewAuthGate(passwordHash string) AuthGate {
	if passwordHash == "" {
		return AuthGate{}
	}
	return AuthGate{expected: passwordPrefix + passwordHash, enabled: true}
}

// Enabled reports whether connections must authenticate before registration.
func (g AuthGate) Enabled() bool {
	return g.enabled
}

// Admit reports whether the first frame of a connection authenticates it.
// Only a text frame that matches "password: <hash>" exactly is accepted; the
// server never hashes what the client sends.
func (g AuthGate) Admit(messageType int, data []byte) bool {
	if !g.enabled {
		return true
	}
	return messageType == websocket.TextMessage && string(data) == g.expected
}
