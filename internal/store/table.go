package store

import (
	"sync"

	"hostmesh/internal/clock"
	"hostmesh/internal/events"
	"hostmesh/internal/model"
)

// timestampedLocation pairs a ConnectPoint with the timestamp at which
// it was observed, so a newer peer update can supersede it and an older
// one cannot.
type timestampedLocation struct {
	location  model.ConnectPoint
	timestamp clock.Timestamp
}

// storedHost is the live-map representation: the immutable fields a
// provider reported, plus the one field that carries a timestamp
// because it is the only one with conflict potential.
type storedHost struct {
	providerId  model.ProviderId
	hostId      model.HostId
	mac         model.MacAddress
	vlan        model.VlanId
	ipAddresses model.IpAddressSet
	annotations model.Annotations
	location    timestampedLocation
}

func (h *storedHost) projection() model.Host {
	return model.Host{
		ProviderId:  h.providerId,
		Id:          h.hostId,
		Mac:         h.mac,
		Vlan:        h.vlan,
		Location:    h.location.location,
		IpAddresses: h.ipAddresses.Clone(),
		Annotations: h.annotations.Merge(nil),
	}
}

// tombstone records that a host was removed, retaining the last known
// value so anti-entropy can report the right providerId when pushing
// the removal to a peer.
type tombstone struct {
	snapshot  model.Host
	timestamp clock.Timestamp
}

// Table is the replicated host table: the live host map, its
// ConnectPoint-indexed location view, and the tombstone map, all
// mutated under one lock so the two views can never be observed out of
// sync with each other.
type Table struct {
	mu           sync.Mutex
	hosts        map[model.HostId]*storedHost
	locations    map[model.ConnectPoint]map[model.HostId]struct{}
	removedHosts map[model.HostId]tombstone
}

// NewTable builds an empty table. hostsExpected sizes the initial map
// allocations; it is a hint, not a hard limit.
func NewTable(hostsExpected int) *Table {
	return &Table{
		hosts:        make(map[model.HostId]*storedHost, hostsExpected),
		locations:    make(map[model.ConnectPoint]map[model.HostId]struct{}),
		removedHosts: make(map[model.HostId]tombstone, hostsExpected),
	}
}

// ApplyUpdate is the pure state-transition function behind both the
// local CreateOrUpdateHost call and the gossip engine's peer update
// handler. It performs no I/O and never fails; it returns the event
// produced, or false if the update was a no-op.
func (t *Table) ApplyUpdate(providerId model.ProviderId, hostId model.HostId, descr model.HostDescription, ts clock.Timestamp) (events.HostEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tomb, ok := t.removedHosts[hostId]; ok {
		if tomb.timestamp.After(ts) {
			return events.HostEvent{}, false
		}
		delete(t.removedHosts, hostId)
	}

	existing, ok := t.hosts[hostId]
	if !ok {
		h := &storedHost{
			providerId:  providerId,
			hostId:      hostId,
			mac:         descr.Mac,
			vlan:        descr.Vlan,
			ipAddresses: descr.IpAddresses.Clone(),
			annotations: descr.Annotations,
			location:    timestampedLocation{location: descr.Location, timestamp: ts},
		}
		t.hosts[hostId] = h
		t.indexLocation(hostId, descr.Location)
		return events.HostEvent{Type: events.HostAdded, Host: h.projection()}, true
	}

	if ts.After(existing.location.timestamp) && descr.Location != existing.location.location {
		prev := existing.location.location
		t.unindexLocation(hostId, prev)
		existing.location = timestampedLocation{location: descr.Location, timestamp: ts}
		t.indexLocation(hostId, descr.Location)
		return events.HostEvent{Type: events.HostMoved, Host: existing.projection(), PrevLocation: &prev}, true
	}

	if existing.ipAddresses.Contains(descr.IpAddresses) && len(descr.Annotations) == 0 {
		return events.HostEvent{}, false
	}

	existing.ipAddresses = existing.ipAddresses.Union(descr.IpAddresses)
	existing.annotations = existing.annotations.Merge(descr.Annotations)
	return events.HostEvent{Type: events.HostUpdated, Host: existing.projection()}, true
}

// ApplyRemove is the pure state-transition function behind both the
// local RemoveHost call and the gossip engine's peer remove handler.
func (t *Table) ApplyRemove(hostId model.HostId, ts clock.Timestamp) (events.HostEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.hosts[hostId]
	if !ok {
		return events.HostEvent{}, false
	}

	snapshot := existing.projection()
	t.unindexLocation(hostId, existing.location.location)
	delete(t.hosts, hostId)
	t.removedHosts[hostId] = tombstone{snapshot: snapshot, timestamp: ts}

	return events.HostEvent{Type: events.HostRemoved, Host: snapshot}, true
}

func (t *Table) indexLocation(hostId model.HostId, cp model.ConnectPoint) {
	set, ok := t.locations[cp]
	if !ok {
		set = make(map[model.HostId]struct{})
		t.locations[cp] = set
	}
	set[hostId] = struct{}{}
}

func (t *Table) unindexLocation(hostId model.HostId, cp model.ConnectPoint) {
	set, ok := t.locations[cp]
	if !ok {
		return
	}
	delete(set, hostId)
	if len(set) == 0 {
		delete(t.locations, cp)
	}
}

// GetHost returns a snapshot of the live host, if any.
func (t *Table) GetHost(hostId model.HostId) (model.Host, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.hosts[hostId]
	if !ok {
		return model.Host{}, false
	}
	return h.projection(), true
}

// GetHosts returns a snapshot of every live host.
func (t *Table) GetHosts() []model.Host {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]model.Host, 0, len(t.hosts))
	for _, h := range t.hosts {
		out = append(out, h.projection())
	}
	return out
}

// GetHostsByVlan returns every live host on the given VLAN.
func (t *Table) GetHostsByVlan(vlan model.VlanId) []model.Host {
	return t.filter(func(h *storedHost) bool { return h.vlan == vlan })
}

// GetHostsByMac returns every live host with the given MAC.
func (t *Table) GetHostsByMac(mac model.MacAddress) []model.Host {
	return t.filter(func(h *storedHost) bool { return h.mac == mac })
}

// GetHostsByIp returns every live host that has the given IP address.
func (t *Table) GetHostsByIp(ip model.IpAddress) []model.Host {
	return t.filter(func(h *storedHost) bool {
		_, ok := h.ipAddresses[ip]
		return ok
	})
}

// LiveTimestamp returns the location timestamp of a live host, if present.
func (t *Table) LiveTimestamp(hostId model.HostId) (clock.Timestamp, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.hosts[hostId]
	if !ok {
		return 0, false
	}
	return h.location.timestamp, true
}

// GetConnectedHosts returns every live host at the given ConnectPoint.
func (t *Table) GetConnectedHosts(cp model.ConnectPoint) []model.Host {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.locations[cp]
	if !ok {
		return nil
	}
	out := make([]model.Host, 0, len(set))
	for hostId := range set {
		out = append(out, t.hosts[hostId].projection())
	}
	return out
}

// GetConnectedHostsByDevice returns every live host attached anywhere
// on the given device. Cardinality is bounded by the device's port
// count, so a full scan of locations is acceptable.
func (t *Table) GetConnectedHostsByDevice(deviceId model.DeviceId) []model.Host {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []model.Host
	for cp, set := range t.locations {
		if cp.DeviceId != deviceId {
			continue
		}
		for hostId := range set {
			out = append(out, t.hosts[hostId].projection())
		}
	}
	return out
}

func (t *Table) filter(pred func(*storedHost) bool) []model.Host {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []model.Host
	for _, h := range t.hosts {
		if pred(h) {
			out = append(out, h.projection())
		}
	}
	return out
}

// LiveEntry describes one live host for anti-entropy digest building.
type LiveEntry struct {
	HostId     model.HostId
	ProviderId model.ProviderId
	Timestamp  clock.Timestamp
	Host       model.Host
}

// TombstoneEntry describes one tombstone for anti-entropy digest
// building or reconciliation.
type TombstoneEntry struct {
	HostId     model.HostId
	ProviderId model.ProviderId
	Timestamp  clock.Timestamp
	Host       model.Host
}

// LiveSnapshot returns every live host's identity and location
// timestamp, for building an outbound advertisement (Scan-independent;
// the anti-entropy engine owns the wire shape).
func (t *Table) LiveSnapshot() []LiveEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]LiveEntry, 0, len(t.hosts))
	for _, h := range t.hosts {
		out = append(out, LiveEntry{
			HostId:     h.hostId,
			ProviderId: h.providerId,
			Timestamp:  h.location.timestamp,
			Host:       h.projection(),
		})
	}
	return out
}

// TombstoneSnapshot returns every tombstone's identity and removal
// timestamp.
func (t *Table) TombstoneSnapshot() []TombstoneEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TombstoneEntry, 0, len(t.removedHosts))
	for hostId, tomb := range t.removedHosts {
		out = append(out, TombstoneEntry{
			HostId:     hostId,
			ProviderId: tomb.snapshot.ProviderId,
			Timestamp:  tomb.timestamp,
			Host:       tomb.snapshot,
		})
	}
	return out
}

// Clear empties the table, used on Manager.Deactivate.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.hosts = make(map[model.HostId]*storedHost)
	t.locations = make(map[model.ConnectPoint]map[model.HostId]struct{})
	t.removedHosts = make(map[model.HostId]tombstone)
}
