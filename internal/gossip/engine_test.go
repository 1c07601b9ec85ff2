package gossip

import (
	"testing"
	"time"

	"hostmesh/internal/clock"
	"hostmesh/internal/codec"
	"hostmesh/internal/events"
	"hostmesh/internal/model"
	"hostmesh/internal/store"
	"hostmesh/internal/transport"
)

type fakeDirectory struct {
	local model.NodeId
	nodes []model.NodeId
}

func (d *fakeDirectory) LocalNode() model.NodeId { return d.local }
func (d *fakeDirectory) Nodes() []model.NodeId   { return d.nodes }

func hashHostId(id model.HostId) uint64 {
	var h uint64
	for i := 0; i < len(id); i++ {
		h = h*31 + uint64(id[i])
	}
	return h
}

func newTestEngine(node model.NodeId, hub *transport.Hub, nodes []model.NodeId) (*Engine, *store.Table, *events.Dispatcher) {
	tbl := store.NewTable(0)
	disp := events.NewDispatcher()
	oracle := clock.NewLocal[model.HostId](hashHostId)
	dir := &fakeDirectory{local: node, nodes: nodes}
	tr := transport.NewLocal(node, hub)
	c := codec.NewJSONCodec()

	cfg := Config{AntiEntropyInitialDelay: 10 * time.Millisecond, AntiEntropyPeriod: 10 * time.Millisecond}
	e := New(node, tbl, disp, oracle, dir, tr, c, cfg)
	return e, tbl, disp
}

func testDescr(port uint32) model.HostDescription {
	return model.HostDescription{
		Mac:         "aa:bb:cc:dd:ee:ff",
		Vlan:        10,
		Location:    model.ConnectPoint{DeviceId: "dev1", PortNumber: model.PortNumber(port)},
		IpAddresses: model.NewIpAddressSet("10.0.0.1"),
	}
}

func TestEngine_PublishUpdate_PropagatesToPeer(t *testing.T) {
	hub := transport.NewHub()
	e1, _, _ := newTestEngine("n1", hub, []model.NodeId{"n1", "n2"})
	e2, tbl2, disp2 := newTestEngine("n2", hub, []model.NodeId{"n1", "n2"})

	e1.Activate()
	e2.Activate()
	defer e1.Deactivate(time.Second)
	defer e2.Deactivate(time.Second)

	var gotEvent events.HostEvent
	disp2.AddListener(events.ListenerFunc(func(ev events.HostEvent) { gotEvent = ev }))

	e1.PublishUpdate("p1", "h1", testDescr(1), 1)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := tbl2.GetHost("h1"); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	h, ok := tbl2.GetHost("h1")
	if !ok {
		t.Fatal("expected host h1 to be replicated to n2")
	}
	if h.Location.PortNumber != 1 {
		t.Errorf("expected port 1, got %v", h.Location)
	}
	if gotEvent.Type != events.HostAdded {
		t.Errorf("expected HostAdded dispatched, got %s", gotEvent.Type)
	}
}

func TestEngine_PublishRemove_PropagatesToPeer(t *testing.T) {
	hub := transport.NewHub()
	e1, tbl1, _ := newTestEngine("n1", hub, []model.NodeId{"n1", "n2"})
	e2, tbl2, _ := newTestEngine("n2", hub, []model.NodeId{"n1", "n2"})

	e1.Activate()
	e2.Activate()
	defer e1.Deactivate(time.Second)
	defer e2.Deactivate(time.Second)

	tbl1.ApplyUpdate("p1", "h1", testDescr(1), 1)
	e1.PublishUpdate("p1", "h1", testDescr(1), 1)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := tbl2.GetHost("h1"); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := tbl2.GetHost("h1"); !ok {
		t.Fatal("expected h1 to be replicated to n2 before testing removal")
	}

	e1.PublishRemove("h1", 2)

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := tbl2.GetHost("h1"); !ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, ok := tbl2.GetHost("h1"); ok {
		t.Error("expected h1 to be removed on n2")
	}
}
