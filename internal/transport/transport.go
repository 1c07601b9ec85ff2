package transport

import "hostmesh/internal/model"

// Handler is invoked for every inbound message on a subscribed subject.
// from identifies the sender; handlers must not block, since the
// transport calls them from its own delivery goroutine.
type Handler func(from model.NodeId, payload []byte)

// Transport delivers best-effort, subject-tagged byte payloads across
// the cluster. Messages may be lost, reordered, or duplicated;
// convergence is anti-entropy's job, not the transport's.
type Transport interface {
	// AddSubscriber registers handler for every message received on
	// subject. At most one handler per subject is supported; a second
	// call replaces the first.
	AddSubscriber(subject string, handler Handler)

	// Broadcast sends payload on subject to every known peer.
	Broadcast(subject string, payload []byte) error

	// Unicast sends payload on subject to a single peer.
	Unicast(subject string, peer model.NodeId, payload []byte) error
}
