package wire

import (
	"hostmesh/internal/clock"
	"hostmesh/internal/model"
)

// Subject identifies a stable message category on the transport.
type Subject string

const (
	// HostUpdated carries an InternalHostEvent.
	HostUpdated Subject = "HOST_UPDATED"
	// HostRemoved carries an InternalHostRemovedEvent.
	HostRemoved Subject = "HOST_REMOVED"
	// HostAntiEntropySubject carries a HostAntiEntropyAdvertisement.
	HostAntiEntropySubject Subject = "HOST_ANTI_ENTROPY_ADVERTISEMENT"
)

// InternalHostEvent is broadcast whenever a host is created, moved, or
// updated; it is also pushed directly to a peer during anti-entropy
// reconciliation.
type InternalHostEvent struct {
	ProviderId      model.ProviderId
	HostId          model.HostId
	HostDescription model.HostDescription
	Timestamp       clock.Timestamp
}

// InternalHostRemovedEvent is broadcast whenever a host is removed.
type InternalHostRemovedEvent struct {
	HostId    model.HostId
	Timestamp clock.Timestamp
}

// HostFragmentId keys an advertisement's live-timestamp map by the pair
// of host and provider, so a future multi-provider host is wire
// compatible even though single-provider semantics hold today.
type HostFragmentId struct {
	HostId     model.HostId
	ProviderId model.ProviderId
}

// TimestampEntry pairs a fragment with the timestamp its sender holds
// for it. Advertisements carry these as a slice rather than a map keyed
// by HostFragmentId because the default JSON codec cannot marshal a map
// with a struct key.
type TimestampEntry struct {
	Fragment  HostFragmentId
	Timestamp clock.Timestamp
}

// TombstoneEntry pairs a tombstoned host with its removal timestamp.
type TombstoneEntry struct {
	HostId    model.HostId
	Timestamp clock.Timestamp
}

// HostAntiEntropyAdvertisement is the compact digest a node sends to a
// randomly chosen peer: every live host's timestamp, and every local
// tombstone's timestamp.
type HostAntiEntropyAdvertisement struct {
	Sender     model.NodeId
	Timestamps []TimestampEntry
	Tombstones []TombstoneEntry
}

// TimestampMap builds a lookup map from the advertisement's timestamp
// entries, for convenient reconciliation.
func (a HostAntiEntropyAdvertisement) TimestampMap() map[HostFragmentId]clock.Timestamp {
	out := make(map[HostFragmentId]clock.Timestamp, len(a.Timestamps))
	for _, e := range a.Timestamps {
		out[e.Fragment] = e.Timestamp
	}
	return out
}

// TombstoneMap builds a lookup map from the advertisement's tombstone
// entries, for convenient reconciliation.
func (a HostAntiEntropyAdvertisement) TombstoneMap() map[model.HostId]clock.Timestamp {
	out := make(map[model.HostId]clock.Timestamp, len(a.Tombstones))
	for _, e := range a.Tombstones {
		out[e.HostId] = e.Timestamp
	}
	return out
}
