package transport

import (
	"testing"
	"time"

	"hostmesh/internal/model"
)

func TestLocal_BroadcastDeliversToAllOtherPeers(t *testing.T) {
	hub := NewHub()
	a := NewLocal("a", hub)
	b := NewLocal("b", hub)
	c := NewLocal("c", hub)

	received := make(chan string, 2)
	b.AddSubscriber("greet", func(from model.NodeId, payload []byte) { received <- "b" })
	c.AddSubscriber("greet", func(from model.NodeId, payload []byte) { received <- "c" })

	if err := a.Broadcast("greet", []byte("hi")); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case who := <-received:
			seen[who] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast delivery")
		}
	}
	if !seen["b"] || !seen["c"] {
		t.Errorf("expected both b and c to receive the broadcast, got %v", seen)
	}
}

func TestLocal_UnicastDeliversOnlyToTarget(t *testing.T) {
	hub := NewHub()
	a := NewLocal("a", hub)
	b := NewLocal("b", hub)
	c := NewLocal("c", hub)

	bReceived := make(chan struct{}, 1)
	cReceived := make(chan struct{}, 1)
	b.AddSubscriber("ping", func(from model.NodeId, payload []byte) { bReceived <- struct{}{} })
	c.AddSubscriber("ping", func(from model.NodeId, payload []byte) { cReceived <- struct{}{} })

	if err := a.Unicast("ping", "b", []byte("hi")); err != nil {
		t.Fatalf("Unicast: %v", err)
	}

	select {
	case <-bReceived:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for unicast delivery to b")
	}

	select {
	case <-cReceived:
		t.Fatal("c should not have received the unicast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLocal_UnicastUnknownPeerErrors(t *testing.T) {
	hub := NewHub()
	a := NewLocal("a", hub)

	if err := a.Unicast("ping", "missing", nil); err == nil {
		t.Error("expected error unicasting to unknown peer")
	}
}
