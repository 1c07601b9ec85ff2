package grpctransport

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"

	"hostmesh/internal/model"
	"hostmesh/internal/transport"
)

// Transport is the default transport.Transport, backed by the hand-rolled
// Envelope gRPC service. It must be told the cluster's peer addresses
// via SetPeers before Broadcast/Unicast can reach anyone; cmd/hostmeshd
// wires this from the cluster membership on every membership change.
type Transport struct {
	id         model.NodeId
	listenAddr string

	server     *server
	grpcServer *grpc.Server
	clients    *clientManager

	mu    sync.RWMutex
	peers map[model.NodeId]string
}

// New creates a Transport for id, bound to listenAddr once Start is called.
func New(id model.NodeId, listenAddr string) *Transport {
	return &Transport{
		id:         id,
		listenAddr: listenAddr,
		server:     newServer(),
		clients:    newClientManager(),
		peers:      make(map[model.NodeId]string),
	}
}

var _ transport.Transport = (*Transport)(nil)

// Start binds the envelope gRPC service and begins serving.
func (t *Transport) Start() error {
	srv, err := listenAndServe(t.listenAddr, t.server)
	if err != nil {
		return err
	}
	t.grpcServer = srv
	return nil
}

// Stop gracefully stops the gRPC server.
func (t *Transport) Stop() {
	if t.grpcServer != nil {
		t.grpcServer.GracefulStop()
	}
}

// SetPeers replaces the known peer address table. cmd/hostmeshd calls
// it at startup and whenever the cluster membership view changes.
func (t *Transport) SetPeers(peers map[model.NodeId]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers = peers
}

func (t *Transport) AddSubscriber(subject string, handler transport.Handler) {
	t.server.addSubscriber(subject, handler)
}

func (t *Transport) Broadcast(subject string, payload []byte) error {
	t.mu.RLock()
	peers := make(map[model.NodeId]string, len(t.peers))
	for id, addr := range t.peers {
		peers[id] = addr
	}
	t.mu.RUnlock()

	var firstErr error
	for id, addr := range peers {
		if id == t.id {
			continue
		}
		if err := t.sendTo(addr, subject, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *Transport) Unicast(subject string, peerId model.NodeId, payload []byte) error {
	t.mu.RLock()
	addr, ok := t.peers[peerId]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("grpctransport: unknown peer %s", peerId)
	}
	return t.sendTo(addr, subject, payload)
}

func (t *Transport) sendTo(addr, subject string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	return t.clients.send(ctx, addr, envelope{from: string(t.id), subject: subject, payload: payload})
}
