// Package server supervises individual WebSocket connections: admission,
// registration, relaying and cleanup.
package server

import (
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one accepted connection. Its read loop owns the socket for
// reading and runs the lifecycle; its write pump owns the socket for writing.
// The Registry only ever touches the send queue.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan Frame
	hub            *Hub
	addr           string
	maxMessageSize int64
	authTimeout    time.Duration

	awaitingPassword bool
	cleanupOnce      sync.Once
}

// NewClient creates a Client for conn, accepted from addr, that will relay
// through hub. The client has no identity until it is admitted.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn:           conn,
		send:           make(chan Frame, cfg.SendBufferSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		authTimeout:    cfg.AuthTimeout,
	}
}

// ID returns the identifier assigned on admission, or "" before that.
func (c *Client) ID() string {
	return c.id
}

// enqueue offers frame to the write pump without blocking.
func (c *Client) enqueue(frame Frame) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// run is the connection flow: (authenticate) -> register -> relay. Whatever
// way it ends, cleanup runs.
func (c *Client) run() {
	defer c.cleanup()

	c.setupReadConnection()

	if c.hub.auth.Enabled() && !c.authenticate() {
		return
	}

	c.id = NewConnectionID(c.addr)
	c.hub.registry.Register(c.id, c)

	c.relay()
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	c.awaitingPassword = c.hub.auth.Enabled()

	deadline := time.Now().Add(pongWait)
	if c.awaitingPassword && c.authTimeout > 0 {
		deadline = time.Now().Add(c.authTimeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		glog.Warningf("Error setting initial read deadline for %s: %v", c.addr, err)
	}

	c.conn.SetPongHandler(func(string) error {
		// A pending client on an auth timeout must not have it extended by keepalives.
		if c.awaitingPassword && c.authTimeout > 0 {
			return nil
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			glog.Warningf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// authenticate consumes exactly one frame and reports whether it admitted
// the connection. A rejected connection gets no explanation.
func (c *Client) authenticate() bool {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		c.handleReadError(err)
		return false
	}

	if !c.hub.auth.Admit(messageType, data) {
		glog.Infof("Rejected connection from %s: bad password frame", c.addr)
		return false
	}

	c.awaitingPassword = false
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		glog.Warningf("Error resetting read deadline for %s: %v", c.addr, err)
	}
	if !c.enqueue(TextFrame(AuthenticatedEnvelope)) {
		glog.Warningf("Could not queue authentication confirmation for %s", c.addr)
	}
	glog.V(1).Infof("Authenticated connection from %s", c.addr)
	return true
}

// relay hands every inbound frame to the router until the connection ends.
func (c *Client) relay() {
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if glog.V(1) {
			glog.Infof("Received %d-byte frame from %s", len(payload), c.id)
		}
		c.hub.router.Route(c.id, messageType, payload)
	}
}

// handleReadError logs a read failure at a level matching how expected it is.
// Every read error ends the connection.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		glog.Infof("Message from %s exceeded maximum size of %d bytes", c.addr, c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		glog.Infof("Client %s disconnected: %v", c.addr, err)
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || isExpectedCloseError(err):
		glog.Infof("Client %s connection closed: %v", c.addr, err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		glog.Warningf("Unexpected WebSocket error from %s: %v", c.addr, err)
	default:
		glog.Infof("WebSocket read error from %s: %v", c.addr, err)
	}
}

// cleanup deregisters the client, stops its write pump and closes the
// socket. It is safe to call more than once and for never-admitted clients.
func (c *Client) cleanup() {
	c.cleanupOnce.Do(func() {
		c.hub.registry.Unregister(c.id)
		c.hub.forget(c)
		close(c.send)
		c.closeConnection()
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case frame, ok := <-c.send:
		if !ok {
			return c.writeCloseMessage()
		}
		return c.writeFrame(frame)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			glog.Warningf("Error closing connection for %s: %v", c.addr, err)
		}
	}
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			glog.V(1).Infof("Error writing close message to %s: %v", c.addr, err)
		}
	}
	return false
}

// writeFrame writes one queued frame. A failure here only affects this client.
func (c *Client) writeFrame(frame Frame) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		glog.Warningf("Error setting write deadline for %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(frame.Type, frame.Data); err != nil {
		if !isExpectedCloseError(err) {
			glog.Warningf("Error writing message to %s: %v", c.addr, err)
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		glog.Warningf("Error setting write deadline for ping to %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			glog.Warningf("Error writing ping message to %s: %v", c.addr, err)
		}
		return false
	}
	return true
}
