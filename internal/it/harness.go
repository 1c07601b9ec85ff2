// Package it exercises a small cluster of in-process managers wired
// together over a fake transport, the way the teacher's own
// integration harness drives a cluster of real processes.
package it

import (
	"sync"
	"time"

	"hostmesh/internal/clock"
	"hostmesh/internal/codec"
	"hostmesh/internal/manager"
	"hostmesh/internal/model"
	"hostmesh/internal/transport"
)

// Cluster is a set of in-process nodes sharing a fake transport.Hub,
// each running its own manager.Manager.
type Cluster struct {
	hub   *transport.Hub
	mu    sync.Mutex
	nodes map[model.NodeId]*manager.Manager
}

// NewCluster builds an empty cluster. Nodes are added with AddNode.
func NewCluster() *Cluster {
	return &Cluster{
		hub:   transport.NewHub(),
		nodes: make(map[model.NodeId]*manager.Manager),
	}
}

func hashHostId(id model.HostId) uint64 {
	var h uint64
	for i := 0; i < len(id); i++ {
		h = h*31 + uint64(id[i])
	}
	return h
}

// staticDirectory answers cluster.Directory with a fixed node list,
// standing in for a stabilized SWIM membership view in tests that only
// care about anti-entropy and propagation behavior.
type staticDirectory struct {
	local model.NodeId
	nodes []model.NodeId
}

func (d *staticDirectory) LocalNode() model.NodeId { return d.local }
func (d *staticDirectory) Nodes() []model.NodeId   { return d.nodes }

// AddNode starts a new manager named id, aware of every id named in
// peers (including itself), and adds it to the cluster.
func (c *Cluster) AddNode(id model.NodeId, peers []model.NodeId, cfg manager.Config) *manager.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := &staticDirectory{local: id, nodes: peers}
	tr := transport.NewLocal(id, c.hub)
	oracle := clock.NewLocal[model.HostId](hashHostId)

	m := manager.New(id, dir, tr, codec.NewJSONCodec(), oracle, cfg)
	m.Activate()
	c.nodes[id] = m
	return m
}

// Node returns the manager for id, or nil if unknown.
func (c *Cluster) Node(id model.NodeId) *manager.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodes[id]
}

// Stop deactivates every node in the cluster.
func (c *Cluster) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.nodes {
		m.Deactivate()
	}
}

// FastConfig returns a manager.Config tuned for quick convergence in
// tests: short anti-entropy timers, small shutdown grace.
func FastConfig() manager.Config {
	return manager.Config{
		HostsExpected:           16,
		AntiEntropyInitialDelay: 10 * time.Millisecond,
		AntiEntropyPeriod:       20 * time.Millisecond,
		ExecutorShutdownGrace:   time.Second,
	}
}

// eventuallyHost polls until pred holds for the host hostId on m, or
// the deadline passes, returning the last observed (host, ok).
func eventuallyHost(m *manager.Manager, hostId model.HostId, timeout time.Duration, pred func(model.Host, bool) bool) (model.Host, bool) {
	deadline := time.Now().Add(timeout)
	var h model.Host
	var ok bool
	for time.Now().Before(deadline) {
		h, ok = m.GetHost(hostId)
		if pred(h, ok) {
			return h, ok
		}
		time.Sleep(5 * time.Millisecond)
	}
	return h, ok
}
