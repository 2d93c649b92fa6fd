// Package server implements a WebSocket message relay: every frame one
// admitted client sends is fanned out to every other admitted client.
//
// The implementation is organized into specialized files for configuration,
// identity, the client registry, the auth gate, the broadcast router and the
// per-connection supervisor, with the Hub tying them together.
package server
