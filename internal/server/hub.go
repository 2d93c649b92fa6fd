// Package server coordinates connection flows, the shared Registry and
// shutdown for the relay via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// ErrHubClosed is returned by Serve once Shutdown has started.
var ErrHubClosed = errors.New("hub is shutting down")

// Hub is the process-level relay. It owns the Registry shared by every
// connection flow and tracks all live connections, admitted or not, so that
// Shutdown can close them.
type Hub struct {
	cfg      Config
	registry *Registry
	router   *Router
	auth     AuthGate
	origins  originPolicy

	mu      sync.Mutex
	live    map[*Client]struct{}
	closing bool
	wg      sync.WaitGroup
}

// NewHub creates a Hub for cfg. Zero-valued tuning fields in cfg fall back to
// their defaults.
func NewHub(cfg Config) *Hub {
	cfg = sanitizeConfig(cfg)
	registry := NewRegistry()
	return &Hub{
		cfg:      cfg,
		registry: registry,
		router:   NewRouter(registry),
		auth:     NewAuthGate(cfg.PasswordHash),
		origins:  newOriginPolicy(cfg.AllowedOrigins),
		live:     make(map[*Client]struct{}),
	}
}

// Registry returns the hub's client registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// AuthRequired reports whether new connections must send the password first.
func (h *Hub) AuthRequired() bool {
	return h.auth.Enabled()
}

// Serve takes ownership of conn and runs its connection flow in the
// background. The connection is closed if the hub is shutting down.
func (h *Hub) Serve(conn *websocket.Conn, addr string) error {
	client := NewClient(conn, h, addr)

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		client.closeConnection()
		return ErrHubClosed
	}
	h.live[client] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	glog.V(1).Infof("Accepted connection from %s (auth required: %t)", addr, h.auth.Enabled())

	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.run()
	}()
	return nil
}

func (h *Hub) forget(c *Client) {
	h.mu.Lock()
	delete(h.live, c)
	h.mu.Unlock()
}

// closeAll closes the socket of every live connection; their read loops then
// fail and run the normal cleanup path.
func (h *Hub) closeAll() int {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.live))
	for client := range h.live {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.closeConnection()
	}
	return len(clients)
}

// Shutdown stops accepting connections, closes every live one and waits for
// their goroutines, or returns context.DeadlineExceeded after timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	glog.Info("Initiating hub shutdown...")

	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()

	closed := h.closeAll()
	glog.Infof("Closed %d client connections", closed)

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		glog.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		glog.Warning("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
