package grpctransport

import (
	"context"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"hostmesh/internal/model"
)

func TestServer_Send_DispatchesToSubscriber(t *testing.T) {
	s := newServer()

	received := make(chan string, 1)
	s.addSubscriber("HOST_UPDATED", func(from model.NodeId, payload []byte) {
		received <- string(from) + ":" + string(payload)
	})

	in := &wrapperspb.BytesValue{Value: encodeEnvelope(envelope{from: "node1", subject: "HOST_UPDATED", payload: []byte("data")})}
	if _, err := s.Send(context.Background(), in); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-received:
		if got != "node1:data" {
			t.Errorf("expected node1:data, got %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
}

func TestServer_Send_UnknownSubjectIgnored(t *testing.T) {
	s := newServer()

	in := &wrapperspb.BytesValue{Value: encodeEnvelope(envelope{from: "node1", subject: "UNKNOWN", payload: nil})}
	if _, err := s.Send(context.Background(), in); err != nil {
		t.Fatalf("expected no error for unknown subject, got %v", err)
	}
}

func TestServer_Send_MalformedEnvelopeErrors(t *testing.T) {
	s := newServer()

	in := &wrapperspb.BytesValue{Value: []byte{0, 0, 0, 99}}
	if _, err := s.Send(context.Background(), in); err == nil {
		t.Error("expected error decoding malformed envelope")
	}
}
