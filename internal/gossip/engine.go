package gossip

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"hostmesh/internal/clock"
	"hostmesh/internal/cluster"
	"hostmesh/internal/codec"
	"hostmesh/internal/events"
	"hostmesh/internal/model"
	"hostmesh/internal/store"
	"hostmesh/internal/transport"
	"hostmesh/internal/wire"
)

// Config carries the periodic anti-entropy task's tunables.
type Config struct {
	AntiEntropyInitialDelay time.Duration
	AntiEntropyPeriod       time.Duration
}

// DefaultConfig matches the values named in the component design.
func DefaultConfig() Config {
	return Config{AntiEntropyInitialDelay: 5 * time.Second, AntiEntropyPeriod: 5 * time.Second}
}

// Engine owns the three inbound message handlers and the periodic
// anti-entropy send. It never mutates the table directly on the local
// path; PublishUpdate/PublishRemove are called by the manager after a
// local mutation already applied, and only handle the broadcast.
type Engine struct {
	localNode model.NodeId
	table     *store.Table
	dispatch  *events.Dispatcher
	oracle    clock.Oracle[model.HostId]
	directory cluster.Directory
	transport transport.Transport
	codec     codec.Codec
	cfg       Config

	aeQueue chan aeWorkItem

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type aeWorkItem struct {
	sender model.NodeId
	ad     wire.HostAntiEntropyAdvertisement
}

// New builds an Engine. Activate must be called before it handles
// traffic.
func New(localNode model.NodeId, table *store.Table, dispatch *events.Dispatcher, oracle clock.Oracle[model.HostId], directory cluster.Directory, tr transport.Transport, c codec.Codec, cfg Config) *Engine {
	return &Engine{
		localNode: localNode,
		table:     table,
		dispatch:  dispatch,
		oracle:    oracle,
		directory: directory,
		transport: tr,
		codec:     c,
		cfg:       cfg,
		aeQueue:   make(chan aeWorkItem, 8),
	}
}

// Activate subscribes the three message handlers and starts the
// background anti-entropy worker and periodic send task.
func (e *Engine) Activate() {
	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.transport.AddSubscriber(string(wire.HostUpdated), e.handleUpdate)
	e.transport.AddSubscriber(string(wire.HostRemoved), e.handleRemove)
	e.transport.AddSubscriber(string(wire.HostAntiEntropySubject), e.handleAdvertisement)

	e.wg.Add(2)
	go e.backgroundWorker()
	go e.periodicTask()
}

// Deactivate cancels the background worker and periodic task and waits
// up to grace for them to exit.
func (e *Engine) Deactivate(grace time.Duration) {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		log.Printf("[gossip] deactivate exceeded grace period %s, proceeding anyway", grace)
	}
}

// PublishUpdate broadcasts a host update, called by the manager after a
// local CreateOrUpdateHost call already applied the transition.
func (e *Engine) PublishUpdate(providerId model.ProviderId, hostId model.HostId, descr model.HostDescription, ts clock.Timestamp) {
	payload, err := e.codec.Encode(wire.InternalHostEvent{ProviderId: providerId, HostId: hostId, HostDescription: descr, Timestamp: ts})
	if err != nil {
		log.Printf("[gossip] encode update for %s: %v", hostId, err)
		return
	}
	if err := e.transport.Broadcast(string(wire.HostUpdated), payload); err != nil {
		log.Printf("[gossip] broadcast update for %s: %v", hostId, err)
	}
}

// PublishRemove broadcasts a host removal.
func (e *Engine) PublishRemove(hostId model.HostId, ts clock.Timestamp) {
	payload, err := e.codec.Encode(wire.InternalHostRemovedEvent{HostId: hostId, Timestamp: ts})
	if err != nil {
		log.Printf("[gossip] encode remove for %s: %v", hostId, err)
		return
	}
	if err := e.transport.Broadcast(string(wire.HostRemoved), payload); err != nil {
		log.Printf("[gossip] broadcast remove for %s: %v", hostId, err)
	}
}

// handleUpdate is the foreground-pool entry point for an inbound peer
// update: one goroutine per message, bounded only by delivery rate.
func (e *Engine) handleUpdate(from model.NodeId, payload []byte) {
	go e.applyUpdate(payload)
}

func (e *Engine) applyUpdate(payload []byte) {
	defer e.recoverPoolWorker("update")

	var msg wire.InternalHostEvent
	if err := e.codec.Decode(payload, &msg); err != nil {
		log.Printf("[gossip] decode update: %v", err)
		return
	}

	e.oracle.Observe(msg.HostId, msg.Timestamp)
	if ev, ok := e.table.ApplyUpdate(msg.ProviderId, msg.HostId, msg.HostDescription, msg.Timestamp); ok {
		e.dispatch.Dispatch(ev)
	}
}

// handleRemove is the foreground-pool entry point for an inbound peer
// remove.
func (e *Engine) handleRemove(from model.NodeId, payload []byte) {
	go e.applyRemove(payload)
}

func (e *Engine) applyRemove(payload []byte) {
	defer e.recoverPoolWorker("remove")

	var msg wire.InternalHostRemovedEvent
	if err := e.codec.Decode(payload, &msg); err != nil {
		log.Printf("[gossip] decode remove: %v", err)
		return
	}

	e.oracle.Observe(msg.HostId, msg.Timestamp)
	if ev, ok := e.table.ApplyRemove(msg.HostId, msg.Timestamp); ok {
		e.dispatch.Dispatch(ev)
	}
}

// handleAdvertisement enqueues the advertisement for the single
// background worker, guaranteeing at most one full-state scan runs at
// a time.
func (e *Engine) handleAdvertisement(from model.NodeId, payload []byte) {
	var ad wire.HostAntiEntropyAdvertisement
	if err := e.codec.Decode(payload, &ad); err != nil {
		log.Printf("[gossip] decode advertisement: %v", err)
		return
	}

	select {
	case e.aeQueue <- aeWorkItem{sender: from, ad: ad}:
	case <-e.ctx.Done():
	}
}

func (e *Engine) backgroundWorker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case item := <-e.aeQueue:
			e.reconcile(item.sender, item.ad)
		}
	}
}

func (e *Engine) periodicTask() {
	defer e.wg.Done()

	select {
	case <-e.ctx.Done():
		return
	case <-time.After(e.cfg.AntiEntropyInitialDelay):
	}

	ticker := time.NewTicker(e.cfg.AntiEntropyPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.sendAdvertisement()
		}
	}
}

func (e *Engine) sendAdvertisement() {
	defer e.recoverPoolWorker("anti-entropy send")

	nodes := e.directory.Nodes()
	var peers []model.NodeId
	for _, n := range nodes {
		if n != e.localNode {
			peers = append(peers, n)
		}
	}
	if len(peers) == 0 {
		return
	}
	target := peers[rand.Intn(len(peers))]

	ad := e.buildAdvertisement()
	payload, err := e.codec.Encode(ad)
	if err != nil {
		log.Printf("[gossip] encode advertisement: %v", err)
		return
	}
	if err := e.transport.Unicast(string(wire.HostAntiEntropySubject), target, payload); err != nil {
		log.Printf("[gossip] send advertisement to %s: %v", target, err)
	}
}

func (e *Engine) buildAdvertisement() wire.HostAntiEntropyAdvertisement {
	live := e.table.LiveSnapshot()
	tombs := e.table.TombstoneSnapshot()

	timestamps := make([]wire.TimestampEntry, 0, len(live))
	for _, l := range live {
		timestamps = append(timestamps, wire.TimestampEntry{
			Fragment:  wire.HostFragmentId{HostId: l.HostId, ProviderId: l.ProviderId},
			Timestamp: l.Timestamp,
		})
	}

	tombstones := make([]wire.TombstoneEntry, 0, len(tombs))
	for _, tb := range tombs {
		tombstones = append(tombstones, wire.TombstoneEntry{HostId: tb.HostId, Timestamp: tb.Timestamp})
	}

	return wire.HostAntiEntropyAdvertisement{Sender: e.localNode, Timestamps: timestamps, Tombstones: tombstones}
}

func (e *Engine) recoverPoolWorker(name string) {
	if r := recover(); r != nil {
		log.Printf("[gossip] recovered panic in %s worker: %v", name, r)
	}
}

func (e *Engine) pushUpdate(peer model.NodeId, entry store.LiveEntry) error {
	host := entry.Host
	descr := model.HostDescription{
		Mac:         host.Mac,
		Vlan:        host.Vlan,
		Location:    host.Location,
		IpAddresses: host.IpAddresses,
		Annotations: host.Annotations,
	}
	payload, err := e.codec.Encode(wire.InternalHostEvent{ProviderId: entry.ProviderId, HostId: entry.HostId, HostDescription: descr, Timestamp: entry.Timestamp})
	if err != nil {
		return fmt.Errorf("gossip: encode push update: %w", err)
	}
	return e.transport.Unicast(string(wire.HostUpdated), peer, payload)
}

func (e *Engine) pushRemove(peer model.NodeId, hostId model.HostId, ts clock.Timestamp) error {
	payload, err := e.codec.Encode(wire.InternalHostRemovedEvent{HostId: hostId, Timestamp: ts})
	if err != nil {
		return fmt.Errorf("gossip: encode push remove: %w", err)
	}
	return e.transport.Unicast(string(wire.HostRemoved), peer, payload)
}
