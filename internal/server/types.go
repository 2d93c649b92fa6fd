// Package server defines the envelope and frame types shared by the router,
// the registry and the connection pumps.
package server

import (
	"encoding/json"
	"strings"

	"github.com/gorilla/websocket"
)

// ServerSender is the sender name used for envelopes the relay itself emits.
const ServerSender = "server"

// Envelope is the JSON unit delivered to peers for text payloads.
type Envelope struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// binaryEnvelope carries a binary payload. encoding/json renders Message as
// base64, and the frame itself is sent as a binary WebSocket message.
type binaryEnvelope struct {
	Sender  string `json:"sender"`
	Message []byte `json:"message"`
}

// Frame is one outbound WebSocket message queued for a client's write pump.
type Frame struct {
	Type int
	Data []byte
}

// TextFrame wraps data in a text Frame.
func TextFrame(data []byte) Frame {
	return Frame{Type: websocket.TextMessage, Data: data}
}

// AuthenticatedEnvelope is sent once to a client whose password was accepted.
var AuthenticatedEnvelope = mustMarshal(Envelope{Sender: ServerSender, Message: "authenticated"})

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
