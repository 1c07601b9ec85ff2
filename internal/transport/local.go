package transport

import (
	"fmt"
	"sync"

	"hostmesh/internal/model"
)

// Hub is the shared registry an in-process test cluster of Local
// transports delivers through. It exists only so tests can wire
// multiple nodes together without a real network.
type Hub struct {
	mu    sync.RWMutex
	nodes map[model.NodeId]*Local
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{nodes: make(map[model.NodeId]*Local)}
}

func (h *Hub) register(id model.NodeId, t *Local) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes[id] = t
}

func (h *Hub) peers(except model.NodeId) []*Local {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Local, 0, len(h.nodes))
	for id, t := range h.nodes {
		if id != except {
			out = append(out, t)
		}
	}
	return out
}

func (h *Hub) peer(id model.NodeId) (*Local, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.nodes[id]
	return t, ok
}

// Local is an in-process Transport that delivers through a shared Hub.
// Each delivery runs the peer's handler on a new goroutine, so
// Broadcast and Unicast return without waiting for the handler.
type Local struct {
	id  model.NodeId
	hub *Hub

	mu          sync.RWMutex
	subscribers map[string]Handler
}

// NewLocal creates a Local transport for id and registers it with hub.
func NewLocal(id model.NodeId, hub *Hub) *Local {
	t := &Local{id: id, hub: hub, subscribers: make(map[string]Handler)}
	hub.register(id, t)
	return t
}

func (t *Local) AddSubscriber(subject string, handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers[subject] = handler
}

func (t *Local) Broadcast(subject string, payload []byte) error {
	for _, peer := range t.hub.peers(t.id) {
		peer.deliver(t.id, subject, payload)
	}
	return nil
}

func (t *Local) Unicast(subject string, peerId model.NodeId, payload []byte) error {
	peer, ok := t.hub.peer(peerId)
	if !ok {
		return fmt.Errorf("transport: unknown peer %s", peerId)
	}
	peer.deliver(t.id, subject, payload)
	return nil
}

func (t *Local) deliver(from model.NodeId, subject string, payload []byte) {
	t.mu.RLock()
	handler, ok := t.subscribers[subject]
	t.mu.RUnlock()
	if !ok {
		return
	}
	go handler(from, payload)
}
