package cluster

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"hostmesh/internal/model"
)

// MemberStatus is the SWIM state of a cluster member.
type MemberStatus int

const (
	Alive MemberStatus = iota
	Suspect
	Dead
)

func (s MemberStatus) String() string {
	switch s {
	case Alive:
		return "ALIVE"
	case Suspect:
		return "SUSPECT"
	case Dead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// Member is one entry in a node's membership view.
type Member struct {
	ID          model.NodeId
	Addr        string
	Status      MemberStatus
	Incarnation uint64
	LastSeen    time.Time
}

// Directory answers the two questions the gossip engine needs to pick an
// anti-entropy peer: who am I, and who else is in the cluster.
type Directory interface {
	LocalNode() model.NodeId
	Nodes() []model.NodeId
}

// Membership is a SWIM-style prober: it periodically probes a random
// peer, marks failures Suspect then Dead after configurable timeouts,
// and propagates its view by gossip, arbitrating conflicting views by
// incarnation number.
type Membership struct {
	mu          sync.RWMutex
	localID     model.NodeId
	localAddr   string
	members     map[model.NodeId]*Member
	incarnation map[model.NodeId]uint64

	probeInterval  time.Duration
	suspectTimeout time.Duration
	deadTimeout    time.Duration

	onMembershipChanged func([]model.NodeId)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMembership creates a membership view containing only the local node.
func NewMembership(localID model.NodeId, localAddr string, probeInterval, suspectTimeout, deadTimeout time.Duration) *Membership {
	if probeInterval <= 0 {
		probeInterval = 1 * time.Second
	}
	if suspectTimeout <= 0 {
		suspectTimeout = 3 * time.Second
	}
	if deadTimeout <= 0 {
		deadTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Membership{
		localID:        localID,
		localAddr:      localAddr,
		members:        make(map[model.NodeId]*Member),
		incarnation:    make(map[model.NodeId]uint64),
		probeInterval:  probeInterval,
		suspectTimeout: suspectTimeout,
		deadTimeout:    deadTimeout,
		ctx:            ctx,
		cancel:         cancel,
	}

	m.members[localID] = &Member{ID: localID, Addr: localAddr, Status: Alive, Incarnation: 1, LastSeen: time.Now()}
	m.incarnation[localID] = 1

	return m
}

// LocalNode implements Directory.
func (m *Membership) LocalNode() model.NodeId {
	return m.localID
}

// Nodes implements Directory: every member currently believed Alive,
// including the local node.
func (m *Membership) Nodes() []model.NodeId {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.NodeId, 0, len(m.members))
	for id, member := range m.members {
		if member.Status == Alive {
			out = append(out, id)
		}
	}
	return out
}

// SetOnMembershipChanged registers a callback invoked asynchronously
// whenever the alive set changes.
func (m *Membership) SetOnMembershipChanged(callback func([]model.NodeId)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMembershipChanged = callback
}

// Start spawns the probe loop, gossip loop, and timeout checker.
// probeFn and gossipFn dial addr over whatever transport the caller
// configured; Start never constructs a client itself.
func (m *Membership) Start(probeFn func(ctx context.Context, addr string) error, gossipFn func(ctx context.Context, addr string, members []*Member) error) {
	m.wg.Add(3)

	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.probeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.probe(probeFn)
			}
		}
	}()

	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.probeInterval * 2)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.gossip(gossipFn)
			}
		}
	}()

	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.checkTimeouts()
			}
		}
	}()
}

// Stop cancels the loops and waits for them to exit.
func (m *Membership) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Membership) probe(probeFn func(ctx context.Context, addr string) error) {
	m.mu.RLock()
	candidates := make([]*Member, 0, len(m.members))
	for _, member := range m.members {
		if member.ID != m.localID && member.Status == Alive {
			candidates = append(candidates, member)
		}
	}
	m.mu.RUnlock()

	if len(candidates) == 0 {
		return
	}
	target := candidates[rand.Intn(len(candidates))]

	ctx, cancel := context.WithTimeout(m.ctx, m.probeInterval)
	defer cancel()
	err := probeFn(ctx, target.Addr)

	m.mu.Lock()
	defer m.mu.Unlock()

	member, exists := m.members[target.ID]
	if !exists {
		return
	}
	if err == nil {
		member.Status = Alive
		member.LastSeen = time.Now()
		m.notifyMembershipChanged()
		return
	}
	if member.Status == Alive {
		m.incarnation[target.ID]++
		member.Status = Suspect
		member.Incarnation = m.incarnation[target.ID]
		member.LastSeen = time.Now()
		log.Printf("[cluster %s] marked %s SUSPECT (probe failed)", m.localID, target.ID)
		m.notifyMembershipChanged()
	}
}

func (m *Membership) gossip(gossipFn func(ctx context.Context, addr string, members []*Member) error) {
	m.mu.RLock()
	all := make([]*Member, 0, len(m.members))
	var targets []*Member
	for _, member := range m.members {
		all = append(all, member)
		if member.ID != m.localID {
			targets = append(targets, member)
		}
	}
	m.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	target := targets[rand.Intn(len(targets))]

	ctx, cancel := context.WithTimeout(m.ctx, m.probeInterval)
	defer cancel()
	_ = gossipFn(ctx, target.Addr, all)
}

func (m *Membership) checkTimeouts() {
	now := time.Now()
	changed := false

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, member := range m.members {
		if id == m.localID {
			continue
		}
		elapsed := now.Sub(member.LastSeen)
		if member.Status == Suspect && elapsed > m.suspectTimeout {
			m.incarnation[id]++
			member.Status = Dead
			member.Incarnation = m.incarnation[id]
			log.Printf("[cluster %s] marked %s DEAD (suspect timeout)", m.localID, id)
			changed = true
			continue
		}
		if member.Status == Dead && elapsed > m.deadTimeout {
			delete(m.members, id)
			delete(m.incarnation, id)
			log.Printf("[cluster %s] evicted %s (dead timeout)", m.localID, id)
			changed = true
		}
	}

	if changed {
		m.notifyMembershipChanged()
	}
}

// ApplyGossip merges a peer's membership view into the local one,
// letting higher incarnation numbers win and, on ties, Alive beat
// Suspect beat Dead.
func (m *Membership) ApplyGossip(remoteMembers []*Member) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for _, remote := range remoteMembers {
		if remote.ID == m.localID {
			continue
		}

		local, exists := m.members[remote.ID]
		if !exists {
			m.members[remote.ID] = &Member{
				ID: remote.ID, Addr: remote.Addr, Status: remote.Status,
				Incarnation: remote.Incarnation, LastSeen: time.Now(),
			}
			m.incarnation[remote.ID] = remote.Incarnation
			changed = true
			continue
		}

		if remote.Incarnation > local.Incarnation {
			local.Status = remote.Status
			local.Incarnation = remote.Incarnation
			local.LastSeen = time.Now()
			m.incarnation[remote.ID] = remote.Incarnation
			changed = true
		} else if remote.Incarnation == local.Incarnation && shouldUpdateStatus(local.Status, remote.Status) {
			local.Status = remote.Status
			local.LastSeen = time.Now()
			changed = true
		}
	}

	if changed {
		m.notifyMembershipChanged()
	}
}

func shouldUpdateStatus(local, remote MemberStatus) bool {
	if remote == Alive && local != Alive {
		return true
	}
	if remote == Suspect && local == Dead {
		return true
	}
	return false
}

// MarkAlive marks id Alive, called on a successful inbound probe.
func (m *Membership) MarkAlive(id model.NodeId) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, exists := m.members[id]
	if !exists {
		return
	}
	if member.Status != Alive {
		member.Status = Alive
		member.LastSeen = time.Now()
		m.notifyMembershipChanged()
		return
	}
	member.LastSeen = time.Now()
}

// Snapshot returns a copy of every known member, any status.
func (m *Membership) Snapshot() []*Member {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Member, 0, len(m.members))
	for _, member := range m.members {
		copied := *member
		out = append(out, &copied)
	}
	return out
}

// AddSeedMembers registers the initial peer set used to bootstrap
// discovery before any probe or gossip round has run.
func (m *Membership) AddSeedMembers(seeds []Member) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, seed := range seeds {
		if seed.ID == m.localID {
			continue
		}
		if _, exists := m.members[seed.ID]; !exists {
			m.members[seed.ID] = &Member{ID: seed.ID, Addr: seed.Addr, Status: Alive, Incarnation: 1, LastSeen: time.Now()}
			m.incarnation[seed.ID] = 1
		}
	}
	m.notifyMembershipChanged()
}

func (m *Membership) notifyMembershipChanged() {
	if m.onMembershipChanged != nil {
		nodes := make([]model.NodeId, 0, len(m.members))
		for id, member := range m.members {
			if member.Status == Alive {
				nodes = append(nodes, id)
			}
		}
		go m.onMembershipChanged(nodes)
	}
}
