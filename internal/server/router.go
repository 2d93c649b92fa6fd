// Package server turns inbound payloads into envelopes and fans them out
// through the Registry.
package server

import (
	"bytes"
	"encoding/json"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Router is the broadcast router. It does not inspect or filter payloads.
type Router struct {
	registry *Registry
}

// NewRouter returns a Router that delivers through registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Route wraps payload in an envelope naming senderID and queues it for every
// other registered client. Text payloads become text frames; binary payloads
// become binary frames with the payload base64-encoded inside the envelope.
// It returns the number of recipients.
func (r *Router) Route(senderID string, messageType int, payload []byte) int {
	frame, err := encodeEnvelope(senderID, messageType, payload)
	if err != nil {
		glog.Errorf("Dropping message from %s: %v", senderID, err)
		return 0
	}

	delivered := r.registry.Broadcast(senderID, frame)
	if glog.V(2) {
		glog.Infof("Relayed %d-byte frame from %s to %d clients", len(payload), senderID, delivered)
	}
	return delivered
}

func encodeEnvelope(senderID string, messageType int, payload []byte) (Frame, error) {
	var v any
	switch messageType {
	case websocket.TextMessage:
		v = Envelope{Sender: senderID, Message: string(payload)}
	case websocket.BinaryMessage:
		v = binaryEnvelope{Sender: senderID, Message: payload}
	default:
		return Frame{}, errors.Errorf("unsupported message type %d", messageType)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return Frame{}, errors.Wrap(err, "encode envelope")
	}
	// Encode appends a newline that is not part of the envelope.
	data := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return Frame{Type: messageType, Data: data}, nil
}
