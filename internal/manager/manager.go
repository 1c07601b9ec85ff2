package manager

import (
	"time"

	"hostmesh/internal/bindings"
	"hostmesh/internal/clock"
	"hostmesh/internal/cluster"
	"hostmesh/internal/codec"
	"hostmesh/internal/events"
	"hostmesh/internal/gossip"
	"hostmesh/internal/model"
	"hostmesh/internal/store"
	"hostmesh/internal/transport"
)

// Config carries the recognized configuration options of the core plus
// the anti-entropy timers.
type Config struct {
	HostsExpected           int
	AntiEntropyInitialDelay time.Duration
	AntiEntropyPeriod       time.Duration
	ExecutorShutdownGrace   time.Duration
}

// DefaultConfig matches the defaults named in the component design.
func DefaultConfig() Config {
	return Config{
		HostsExpected:           1024,
		AntiEntropyInitialDelay: 5 * time.Second,
		AntiEntropyPeriod:       5 * time.Second,
		ExecutorShutdownGrace:   5 * time.Second,
	}
}

// Manager is the activation/deactivation boundary: it wires the host
// table, event dispatcher, gossip engine, and address bindings
// together and exposes the public API.
type Manager struct {
	table    *store.Table
	dispatch *events.Dispatcher
	bindings *bindings.Store
	oracle   clock.Oracle[model.HostId]
	engine   *gossip.Engine
	cfg      Config
}

// New builds a Manager. Activate must be called before it handles
// local calls or peer traffic.
func New(localNode model.NodeId, directory cluster.Directory, tr transport.Transport, c codec.Codec, oracle clock.Oracle[model.HostId], cfg Config) *Manager {
	table := store.NewTable(cfg.HostsExpected)
	dispatch := events.NewDispatcher()
	engineCfg := gossip.Config{AntiEntropyInitialDelay: cfg.AntiEntropyInitialDelay, AntiEntropyPeriod: cfg.AntiEntropyPeriod}
	engine := gossip.New(localNode, table, dispatch, oracle, directory, tr, c, engineCfg)

	return &Manager{
		table:    table,
		dispatch: dispatch,
		bindings: bindings.NewStore(),
		oracle:   oracle,
		engine:   engine,
		cfg:      cfg,
	}
}

// Activate subscribes the gossip engine to the transport and starts its
// background worker and periodic anti-entropy task.
func (m *Manager) Activate() {
	m.engine.Activate()
}

// Deactivate stops the gossip engine, bounded by ExecutorShutdownGrace,
// and clears all in-memory state.
func (m *Manager) Deactivate() {
	m.engine.Deactivate(m.cfg.ExecutorShutdownGrace)
	m.table.Clear()
	m.bindings.Clear()
}

// AddListener registers a delegate to receive future host events.
func (m *Manager) AddListener(l events.Listener) {
	m.dispatch.AddListener(l)
}

// CreateOrUpdateHost applies a local update and, if it produced a state
// transition, broadcasts it to the cluster. It never fails.
func (m *Manager) CreateOrUpdateHost(providerId model.ProviderId, hostId model.HostId, descr model.HostDescription) (events.HostEvent, bool) {
	ts := m.oracle.Next(hostId)
	ev, ok := m.table.ApplyUpdate(providerId, hostId, descr, ts)
	if !ok {
		return events.HostEvent{}, false
	}
	m.dispatch.Dispatch(ev)
	m.engine.PublishUpdate(providerId, hostId, descr, ts)
	return ev, true
}

// RemoveHost applies a local remove and, if it produced a state
// transition, broadcasts it to the cluster.
func (m *Manager) RemoveHost(hostId model.HostId) (events.HostEvent, bool) {
	ts := m.oracle.Next(hostId)
	ev, ok := m.table.ApplyRemove(hostId, ts)
	if !ok {
		return events.HostEvent{}, false
	}
	m.dispatch.Dispatch(ev)
	m.engine.PublishRemove(hostId, ts)
	return ev, true
}

func (m *Manager) GetHost(hostId model.HostId) (model.Host, bool) { return m.table.GetHost(hostId) }
func (m *Manager) GetHosts() []model.Host                         { return m.table.GetHosts() }
func (m *Manager) GetHostsByVlan(vlan model.VlanId) []model.Host  { return m.table.GetHostsByVlan(vlan) }
func (m *Manager) GetHostsByMac(mac model.MacAddress) []model.Host {
	return m.table.GetHostsByMac(mac)
}
func (m *Manager) GetHostsByIp(ip model.IpAddress) []model.Host { return m.table.GetHostsByIp(ip) }
func (m *Manager) GetConnectedHosts(cp model.ConnectPoint) []model.Host {
	return m.table.GetConnectedHosts(cp)
}
func (m *Manager) GetConnectedHostsByDevice(deviceId model.DeviceId) []model.Host {
	return m.table.GetConnectedHostsByDevice(deviceId)
}

// UpdateAddressBindings merges addrs into the binding store.
func (m *Manager) UpdateAddressBindings(addrs model.PortAddresses) { m.bindings.Update(addrs) }

// RemoveAddressBindings clears the binding at cp.
func (m *Manager) RemoveAddressBindings(cp model.ConnectPoint) { m.bindings.Remove(cp) }

// ClearAddressBindings removes every binding.
func (m *Manager) ClearAddressBindings() { m.bindings.Clear() }

// GetAddressBindings returns every binding.
func (m *Manager) GetAddressBindings() []model.PortAddresses { return m.bindings.GetAll() }

// GetAddressBindingsForPort returns the binding at cp, if any.
func (m *Manager) GetAddressBindingsForPort(cp model.ConnectPoint) (model.PortAddresses, bool) {
	return m.bindings.GetForPort(cp)
}
