package gossip

import (
	"log"

	"hostmesh/internal/clock"
	"hostmesh/internal/model"
	"hostmesh/internal/wire"
)

// reconcile runs the three anti-entropy scans against an advertisement
// received from sender. It is called only from the single background
// worker, so at most one full-state scan runs at a time.
func (e *Engine) reconcile(sender model.NodeId, ad wire.HostAntiEntropyAdvertisement) {
	defer e.recoverPoolWorker("anti-entropy reconcile")

	timestamps := ad.TimestampMap()
	tombstones := ad.TombstoneMap()

	e.scanLocalLive(sender, timestamps, tombstones)
	e.scanLocalTombstones(sender, timestamps)
	e.scanRemoteTombstones(ad.Tombstones)
}

// scanLocalLive is Scan A: for each locally live host, push it to the
// sender if the sender appears behind (absent, or an older live
// timestamp, or an older tombstone), or apply the sender's newer
// remove locally if the sender is ahead of us.
func (e *Engine) scanLocalLive(sender model.NodeId, timestamps map[wire.HostFragmentId]clock.Timestamp, tombstones map[model.HostId]clock.Timestamp) {
	for _, local := range e.table.LiveSnapshot() {
		fragment := wire.HostFragmentId{HostId: local.HostId, ProviderId: local.ProviderId}

		rLive, hasLive := timestamps[fragment]
		rDead, hasDead := tombstones[local.HostId]

		r, rKnown := rLive, hasLive
		if !rKnown {
			r, rKnown = rDead, hasDead
		}

		if !rKnown || local.Timestamp.After(r) {
			if err := e.pushUpdate(sender, local); err != nil {
				log.Printf("[gossip] anti-entropy push update for %s to %s: %v", local.HostId, sender, err)
			}
		}

		if hasDead && rDead.After(local.Timestamp) {
			if ev, ok := e.table.ApplyRemove(local.HostId, rDead); ok {
				e.dispatch.Dispatch(ev)
			}
		}
	}
}

// scanLocalTombstones is Scan B: for each local tombstone, if the
// sender still believes the host is live with an older timestamp, it
// is a zombie on the sender's side; push the remove to it.
func (e *Engine) scanLocalTombstones(sender model.NodeId, timestamps map[wire.HostFragmentId]clock.Timestamp) {
	for _, tomb := range e.table.TombstoneSnapshot() {
		fragment := wire.HostFragmentId{HostId: tomb.HostId, ProviderId: tomb.ProviderId}
		rLive, ok := timestamps[fragment]
		if !ok {
			continue
		}
		if tomb.Timestamp.After(rLive) {
			if err := e.pushRemove(sender, tomb.HostId, tomb.Timestamp); err != nil {
				log.Printf("[gossip] anti-entropy push remove for %s to %s: %v", tomb.HostId, sender, err)
			}
		}
	}
}

// scanRemoteTombstones is Scan C: a remote tombstone newer than our
// live copy catches us up without waiting for a direct push.
func (e *Engine) scanRemoteTombstones(tombstones []wire.TombstoneEntry) {
	for _, rt := range tombstones {
		localTs, ok := e.table.LiveTimestamp(rt.HostId)
		if !ok {
			continue
		}
		if rt.Timestamp.After(localTs) {
			if ev, ok := e.table.ApplyRemove(rt.HostId, rt.Timestamp); ok {
				e.dispatch.Dispatch(ev)
			}
		}
	}
}
