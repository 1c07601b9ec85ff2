package grpctransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const dialTimeout = 5 * time.Second

// clientManager lazily dials and caches one connection per peer
// address, grounded on the teacher's ClientManager.
type clientManager struct {
	mu      sync.RWMutex
	clients map[string]*envelopeClient
}

func newClientManager() *clientManager {
	return &clientManager{clients: make(map[string]*envelopeClient)}
}

func (cm *clientManager) get(addr string) (*envelopeClient, error) {
	cm.mu.RLock()
	client, ok := cm.clients[addr]
	cm.mu.RUnlock()
	if ok {
		return client, nil
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	if client, ok := cm.clients[addr]; ok {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("grpctransport: dial %s: %w", addr, err)
	}

	client = newEnvelopeClient(conn)
	cm.clients[addr] = client
	return client, nil
}

func (cm *clientManager) send(ctx context.Context, addr string, env envelope) error {
	client, err := cm.get(addr)
	if err != nil {
		return err
	}
	_, err = client.Send(ctx, &wrapperspb.BytesValue{Value: encodeEnvelope(env)})
	if err != nil {
		return fmt.Errorf("grpctransport: send to %s: %w", addr, err)
	}
	return nil
}
