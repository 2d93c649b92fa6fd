package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const testTimeout = 2 * time.Second

// startTestRelay runs a Hub for cfg behind an httptest server and returns it
// with the WebSocket URL. Both are torn down when the test ends.
func startTestRelay(t *testing.T, cfg Config) (*Hub, string) {
	t.Helper()

	hub := NewHub(cfg)
	testServer := httptest.NewServer(SetupRoutes(hub))
	t.Cleanup(func() {
		if err := hub.Shutdown(testTimeout); err != nil {
			t.Logf("hub shutdown: %v", err)
		}
		testServer.Close()
	})

	return hub, "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws"
}

// connectWebSocket dials url and fails the test if the handshake fails.
func connectWebSocket(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", "http://localhost:8080")

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// connectAndAuthenticate dials url, sends the password frame for hash and
// consumes the confirmation envelope.
func connectAndAuthenticate(t *testing.T, url, hash string) *websocket.Conn {
	t.Helper()

	conn := connectWebSocket(t, url)
	sendText(t, conn, passwordPrefix+hash)

	env := readEnvelope(t, conn)
	if env.Sender != ServerSender || env.Message != "authenticated" {
		t.Fatalf("Expected authentication envelope, got %+v", env)
	}
	return conn
}

func sendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatalf("Failed to send %q: %v", text, err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(testTimeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	return messageType, data
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	messageType, data := readFrame(t, conn)
	if messageType != websocket.TextMessage {
		t.Fatalf("Expected text frame, got type %d", messageType)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Invalid envelope %q: %v", data, err)
	}
	return env
}

// expectNoMessage asserts nothing arrives within d. A timed-out gorilla
// connection cannot be read again, so call it last on a connection.
func expectNoMessage(t *testing.T, conn *websocket.Conn, d time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Errorf("Expected no message, got %q", data)
	}
}

// expectClosed asserts the server closes conn within testTimeout.
func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(testTimeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected connection to close, got %q", data)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		t.Fatalf("Connection was not closed within %s", testTimeout)
	}
}

// closeWebSocket gracefully closes a WebSocket connection.
func closeWebSocket(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		t.Logf("close frame: %v", err)
	}
	_ = conn.Close()
}

// waitForClients polls until the registry holds n clients.
func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		if hub.Registry().Len() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %d registered clients, have %d", n, hub.Registry().Len())
}

// newQueueClient returns a client with no socket, usable as a registry entry.
func newQueueClient(hub *Hub, addr string, queue int) *Client {
	return &Client{hub: hub, addr: addr, send: make(chan Frame, queue)}
}

func drainFrames(ch <-chan Frame) []Frame {
	var frames []Frame
	for {
		select {
		case f := <-ch:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}
