package grpctransport

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"hostmesh/internal/model"
	"hostmesh/internal/transport"
)

// server implements envelopeServer: it decodes the inbound envelope and
// dispatches to whichever Handler was registered for the envelope's
// subject, recovering a handler panic so one bad message cannot crash
// the gRPC service goroutine.
type server struct {
	mu          sync.RWMutex
	subscribers map[string]transport.Handler
}

func newServer() *server {
	return &server{subscribers: make(map[string]transport.Handler)}
}

func (s *server) addSubscriber(subject string, handler transport.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[subject] = handler
}

func (s *server) Send(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	env, err := decodeEnvelope(in.GetValue())
	if err != nil {
		return nil, fmt.Errorf("grpctransport: %w", err)
	}

	s.mu.RLock()
	handler, ok := s.subscribers[env.subject]
	s.mu.RUnlock()

	if ok {
		s.dispatch(handler, env)
	}
	return &wrapperspb.BytesValue{}, nil
}

func (s *server) dispatch(handler transport.Handler, env envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[grpctransport] handler panic on subject %s from %s: %v", env.subject, env.from, r)
		}
	}()
	handler(model.NodeId(env.from), env.payload)
}

// listenAndServe starts a gRPC server bound to addr that dispatches
// through s. It returns once the listener is bound; Serve runs on its
// own goroutine until the server stops. Grounded on the teacher's
// own node lifecycle: grpc.NewServer, reflection.Register, Serve.
func listenAndServe(addr string, s *server) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpctransport: listen on %s: %w", addr, err)
	}

	srv := grpc.NewServer()
	srv.RegisterService(&envelopeServiceDesc, s)
	reflection.Register(srv)

	go func() {
		if err := srv.Serve(lis); err != nil {
			log.Printf("[grpctransport] server on %s stopped: %v", addr, err)
		}
	}()

	return srv, nil
}
