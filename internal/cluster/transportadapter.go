package cluster

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"hostmesh/internal/codec"
	"hostmesh/internal/model"
	"hostmesh/internal/transport"
)

// Subjects used to carry SWIM probe/gossip traffic over the shared
// Transport, in place of a dedicated membership RPC service.
const (
	SubjectPing   = "MEMBERSHIP_PING"
	SubjectPong   = "MEMBERSHIP_PONG"
	SubjectGossip = "MEMBERSHIP_GOSSIP"
)

type pingMessage struct {
	From  model.NodeId
	Token string
}

type gossipMessage struct {
	From    model.NodeId
	Members []Member
}

// TransportAdapter drives a Membership's probe and gossip rounds over a
// shared Transport. Transport's Unicast is fire-and-forget, so a probe
// is implemented as a ping carrying a correlation token and a matching
// pong that resolves a channel kept in pending.
type TransportAdapter struct {
	local   model.NodeId
	tr      transport.Transport
	codec   codec.Codec
	members *Membership

	mu      sync.Mutex
	pending map[string]chan struct{}
}

// NewTransportAdapter subscribes to the ping/pong/gossip subjects and
// returns an adapter whose ProbeFn/GossipFn are suitable for
// Membership.Start.
func NewTransportAdapter(local model.NodeId, tr transport.Transport, c codec.Codec, m *Membership) *TransportAdapter {
	a := &TransportAdapter{
		local:   local,
		tr:      tr,
		codec:   c,
		members: m,
		pending: make(map[string]chan struct{}),
	}
	tr.AddSubscriber(SubjectPing, a.handlePing)
	tr.AddSubscriber(SubjectPong, a.handlePong)
	tr.AddSubscriber(SubjectGossip, a.handleGossip)
	return a
}

func (a *TransportAdapter) handlePing(from model.NodeId, payload []byte) {
	var msg pingMessage
	if err := a.codec.Decode(payload, &msg); err != nil {
		log.Printf("[cluster] decode ping from %s: %v", from, err)
		return
	}
	reply, err := a.codec.Encode(pingMessage{From: a.local, Token: msg.Token})
	if err != nil {
		log.Printf("[cluster] encode pong for %s: %v", from, err)
		return
	}
	if err := a.tr.Unicast(SubjectPong, from, reply); err != nil {
		log.Printf("[cluster] pong to %s: %v", from, err)
	}
}

func (a *TransportAdapter) handlePong(from model.NodeId, payload []byte) {
	var msg pingMessage
	if err := a.codec.Decode(payload, &msg); err != nil {
		log.Printf("[cluster] decode pong from %s: %v", from, err)
		return
	}

	a.mu.Lock()
	ch, ok := a.pending[msg.Token]
	if ok {
		delete(a.pending, msg.Token)
	}
	a.mu.Unlock()

	if ok {
		close(ch)
	}
}

func (a *TransportAdapter) handleGossip(from model.NodeId, payload []byte) {
	var msg gossipMessage
	if err := a.codec.Decode(payload, &msg); err != nil {
		log.Printf("[cluster] decode gossip from %s: %v", from, err)
		return
	}

	members := make([]*Member, len(msg.Members))
	for i := range msg.Members {
		m := msg.Members[i]
		members[i] = &m
	}
	a.members.ApplyGossip(members)
}

// ProbeFn implements the probe callback Membership.Start expects: ping
// the node at addr over the transport and wait for its pong or ctx.
func (a *TransportAdapter) ProbeFn(ctx context.Context, addr string) error {
	peer := a.resolvePeer(addr)
	if peer == "" {
		return fmt.Errorf("cluster: no known node at %s", addr)
	}

	token := uuid.New().String()
	ch := make(chan struct{})

	a.mu.Lock()
	a.pending[token] = ch
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.pending, token)
		a.mu.Unlock()
	}()

	payload, err := a.codec.Encode(pingMessage{From: a.local, Token: token})
	if err != nil {
		return err
	}
	if err := a.tr.Unicast(SubjectPing, peer, payload); err != nil {
		return err
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GossipFn implements the gossip callback Membership.Start expects.
func (a *TransportAdapter) GossipFn(ctx context.Context, addr string, members []*Member) error {
	peer := a.resolvePeer(addr)
	if peer == "" {
		return fmt.Errorf("cluster: no known node at %s", addr)
	}

	flat := make([]Member, len(members))
	for i, m := range members {
		flat[i] = *m
	}

	payload, err := a.codec.Encode(gossipMessage{From: a.local, Members: flat})
	if err != nil {
		return err
	}
	return a.tr.Unicast(SubjectGossip, peer, payload)
}

func (a *TransportAdapter) resolvePeer(addr string) model.NodeId {
	for _, m := range a.members.Snapshot() {
		if m.Addr == addr {
			return m.ID
		}
	}
	return ""
}
