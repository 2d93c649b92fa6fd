// Package server keeps the set of admitted connections in a Registry that is
// shared by every connection flow.
package server

import (
	"sort"
	"sync"

	"github.com/golang/glog"
)

// Registry maps connection identifiers to admitted clients. It is safe for
// concurrent Register, Unregister and Broadcast calls from any number of
// connection goroutines. Only the owning client ever closes a client's send
// queue, and it does so after Unregister returns, so a queue reachable from
// the map under the read lock is always open.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register inserts client under id. IDs are generated per connection, so an
// existing entry is only replaced on a (practically impossible) collision.
func (r *Registry) Register(id string, client *Client) {
	if client == nil {
		glog.Warningf("Ignoring nil client registration for %q", id)
		return
	}

	r.mu.Lock()
	if _, exists := r.clients[id]; exists {
		glog.Warningf("Connection ID collision on %q; replacing previous entry", id)
	}
	r.clients[id] = client
	clientCount := len(r.clients)
	r.mu.Unlock()

	glog.Infof("Client %s registered from %s. Total clients: %d", id, client.addr, clientCount)
}

// Unregister removes id and reports whether it was present. Calling it for
// an absent or empty id is a no-op.
func (r *Registry) Unregister(id string) bool {
	if id == "" {
		return false
	}

	r.mu.Lock()
	client, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	clientCount := len(r.clients)
	r.mu.Unlock()

	if ok {
		glog.Infof("Client %s unregistered from %s. Total clients: %d", id, client.addr, clientCount)
	}
	return ok
}

// Broadcast queues frame for every registered client except exceptID and
// returns how many clients accepted it. A recipient whose queue is full
// misses this frame; the others are unaffected.
func (r *Registry) Broadcast(exceptID string, frame Frame) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for id, client := range r.clients {
		if id == exceptID {
			continue
		}
		if client.enqueue(frame) {
			delivered++
			continue
		}
		glog.Warningf("Send queue full for client %s at %s; dropping frame", id, client.addr)
	}
	return delivered
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[id]
	return ok
}
