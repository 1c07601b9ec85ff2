package cluster

import (
	"testing"
	"time"
)

func TestMembership_ApplyGossip_HigherIncarnationWins(t *testing.T) {
	m := NewMembership("local", "127.0.0.1:50051", time.Second, 3*time.Second, 10*time.Second)

	m.ApplyGossip([]*Member{{ID: "node1", Addr: "127.0.0.1:50052", Status: Alive, Incarnation: 5}})

	member := m.members["node1"]
	if member == nil {
		t.Fatal("expected node1 to be added")
	}
	if member.Incarnation != 5 {
		t.Errorf("expected incarnation 5, got %d", member.Incarnation)
	}

	m.ApplyGossip([]*Member{{ID: "node1", Addr: "127.0.0.1:50052", Status: Suspect, Incarnation: 3}})
	if member.Incarnation != 5 || member.Status != Alive {
		t.Errorf("expected lower incarnation to be ignored, got incarnation=%d status=%v", member.Incarnation, member.Status)
	}
}

func TestMembership_ApplyGossip_TieBreaksToAlive(t *testing.T) {
	m := NewMembership("local", "127.0.0.1:50051", time.Second, 3*time.Second, 10*time.Second)
	m.ApplyGossip([]*Member{{ID: "node1", Addr: "127.0.0.1:50052", Status: Alive, Incarnation: 5}})

	m.members["node1"].Status = Suspect
	m.ApplyGossip([]*Member{{ID: "node1", Addr: "127.0.0.1:50052", Status: Alive, Incarnation: 5}})

	if m.members["node1"].Status != Alive {
		t.Errorf("expected tie at equal incarnation to prefer Alive, got %v", m.members["node1"].Status)
	}
}

func TestMembership_Nodes_ExcludesNonAlive(t *testing.T) {
	m := NewMembership("local", "127.0.0.1:50051", time.Second, 3*time.Second, 10*time.Second)

	m.ApplyGossip([]*Member{
		{ID: "node1", Addr: "127.0.0.1:50052", Status: Alive, Incarnation: 1},
		{ID: "node2", Addr: "127.0.0.1:50053", Status: Suspect, Incarnation: 1},
		{ID: "node3", Addr: "127.0.0.1:50054", Status: Dead, Incarnation: 1},
	})

	nodes := m.Nodes()
	if len(nodes) != 2 { // local + node1
		t.Errorf("expected 2 alive nodes, got %d: %v", len(nodes), nodes)
	}
}

func TestMembership_CheckTimeouts_SuspectBecomesDead(t *testing.T) {
	m := NewMembership("local", "127.0.0.1:50051", time.Second, 100*time.Millisecond, 200*time.Millisecond)

	m.ApplyGossip([]*Member{{ID: "node1", Addr: "127.0.0.1:50052", Status: Alive, Incarnation: 1}})

	m.mu.Lock()
	m.members["node1"].Status = Suspect
	m.members["node1"].LastSeen = time.Now().Add(-150 * time.Millisecond)
	m.mu.Unlock()

	m.checkTimeouts()

	m.mu.RLock()
	status := m.members["node1"].Status
	m.mu.RUnlock()

	if status != Dead {
		t.Errorf("expected node1 Dead after suspect timeout, got %v", status)
	}
}

func TestMembership_CheckTimeouts_DeadMemberEvicted(t *testing.T) {
	m := NewMembership("local", "127.0.0.1:50051", time.Second, 100*time.Millisecond, 200*time.Millisecond)

	m.ApplyGossip([]*Member{{ID: "node1", Addr: "127.0.0.1:50052", Status: Alive, Incarnation: 1}})

	m.mu.Lock()
	m.members["node1"].Status = Dead
	m.members["node1"].LastSeen = time.Now().Add(-250 * time.Millisecond)
	m.mu.Unlock()

	m.checkTimeouts()

	m.mu.RLock()
	_, exists := m.members["node1"]
	_, incExists := m.incarnation["node1"]
	m.mu.RUnlock()

	if exists || incExists {
		t.Error("expected node1 to be evicted after exceeding the dead timeout")
	}
}

func TestMembership_AddSeedMembers(t *testing.T) {
	m := NewMembership("local", "127.0.0.1:50051", time.Second, 3*time.Second, 10*time.Second)

	m.AddSeedMembers([]Member{
		{ID: "seed1", Addr: "127.0.0.1:50052"},
		{ID: "seed2", Addr: "127.0.0.1:50053"},
	})

	m.mu.RLock()
	count := len(m.members)
	m.mu.RUnlock()

	if count != 3 {
		t.Errorf("expected 3 members (local + 2 seeds), got %d", count)
	}
}

func TestMembership_LocalNode(t *testing.T) {
	m := NewMembership("local", "127.0.0.1:50051", time.Second, 3*time.Second, 10*time.Second)
	if m.LocalNode() != "local" {
		t.Errorf("expected LocalNode to be 'local', got %s", m.LocalNode())
	}
}
