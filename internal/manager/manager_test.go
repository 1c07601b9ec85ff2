package manager

import (
	"testing"
	"time"

	"hostmesh/internal/clock"
	"hostmesh/internal/codec"
	"hostmesh/internal/events"
	"hostmesh/internal/model"
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

func testConfig() Config {
	return Config{
		HostsExpected:           16,
		AntiEntropyInitialDelay: 10 * time.Millisecond,
		AntiEntropyPeriod:       10 * time.Millisecond,
		ExecutorShutdownGrace:   time.Second,
	}
}

func newTestManager(node model.NodeId, hub *transport.Hub, nodes []model.NodeId) *Manager {
	dir := &fakeDirectory{local: node, nodes: nodes}
	tr := transport.NewLocal(node, hub)
	oracle := clock.NewLocal[model.HostId](hashHostId)
	return New(node, dir, tr, codec.NewJSONCodec(), oracle, testConfig())
}

func testDescr(port uint32) model.HostDescription {
	return model.HostDescription{
		Mac:         "aa:bb:cc:dd:ee:ff",
		Vlan:        10,
		Location:    model.ConnectPoint{DeviceId: "dev1", PortNumber: model.PortNumber(port)},
		IpAddresses: model.NewIpAddressSet("10.0.0.1"),
	}
}

func TestManager_CreateOrUpdateHost_DispatchesEvent(t *testing.T) {
	m := newTestManager("n1", transport.NewHub(), []model.NodeId{"n1"})

	var got events.HostEvent
	m.AddListener(events.ListenerFunc(func(ev events.HostEvent) { got = ev }))

	ev, ok := m.CreateOrUpdateHost("p1", "h1", testDescr(1))
	if !ok {
		t.Fatal("expected an event on first add")
	}
	if ev.Type != events.HostAdded {
		t.Errorf("expected HostAdded, got %s", ev.Type)
	}
	if got.Type != events.HostAdded {
		t.Errorf("expected dispatched HostAdded, got %s", got.Type)
	}

	if _, ok := m.GetHost("h1"); !ok {
		t.Error("expected h1 to be queryable after create")
	}
}

func TestManager_RemoveHost_DispatchesEvent(t *testing.T) {
	m := newTestManager("n1", transport.NewHub(), []model.NodeId{"n1"})
	m.CreateOrUpdateHost("p1", "h1", testDescr(1))

	var got events.HostEvent
	m.AddListener(events.ListenerFunc(func(ev events.HostEvent) { got = ev }))

	ev, ok := m.RemoveHost("h1")
	if !ok {
		t.Fatal("expected a remove event")
	}
	if ev.Type != events.HostRemoved {
		t.Errorf("expected HostRemoved, got %s", ev.Type)
	}
	if got.Type != events.HostRemoved {
		t.Errorf("expected dispatched HostRemoved, got %s", got.Type)
	}
	if _, ok := m.GetHost("h1"); ok {
		t.Error("expected h1 to be gone after remove")
	}
}

func TestManager_CreateOrUpdateHost_PropagatesToPeer(t *testing.T) {
	hub := transport.NewHub()
	m1 := newTestManager("n1", hub, []model.NodeId{"n1", "n2"})
	m2 := newTestManager("n2", hub, []model.NodeId{"n1", "n2"})

	m1.Activate()
	m2.Activate()
	defer m1.Deactivate()
	defer m2.Deactivate()

	m1.CreateOrUpdateHost("p1", "h1", testDescr(1))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m2.GetHost("h1"); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := m2.GetHost("h1"); !ok {
		t.Fatal("expected h1 to replicate to n2 via manager")
	}
}

func TestManager_AddressBindings_UpdateGetRemoveClear(t *testing.T) {
	m := newTestManager("n1", transport.NewHub(), []model.NodeId{"n1"})
	cp := model.ConnectPoint{DeviceId: "dev1", PortNumber: 1}

	m.UpdateAddressBindings(model.PortAddresses{
		ConnectPoint: cp,
		MacAddresses: map[model.MacAddress]struct{}{"aa:bb:cc:dd:ee:ff": {}},
		IpAddresses:  model.NewIpAddressSet("10.0.0.1"),
	})

	b, ok := m.GetAddressBindingsForPort(cp)
	if !ok {
		t.Fatal("expected a binding at cp")
	}
	if _, ok := b.MacAddresses["aa:bb:cc:dd:ee:ff"]; !ok {
		t.Error("expected mac in binding")
	}

	if len(m.GetAddressBindings()) != 1 {
		t.Errorf("expected one binding, got %d", len(m.GetAddressBindings()))
	}

	m.RemoveAddressBindings(cp)
	if _, ok := m.GetAddressBindingsForPort(cp); ok {
		t.Error("expected binding removed")
	}

	m.UpdateAddressBindings(model.PortAddresses{ConnectPoint: cp})
	m.ClearAddressBindings()
	if len(m.GetAddressBindings()) != 0 {
		t.Error("expected no bindings after clear")
	}
}
