package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostmesh/internal/clock"
	"hostmesh/internal/cluster"
	"hostmesh/internal/codec"
	"hostmesh/internal/config"
	"hostmesh/internal/manager"
	"hostmesh/internal/model"
	"hostmesh/internal/transport/grpctransport"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	nodeID := flag.String("node-id", "", "overrides the config file's nodeId")
	listenAddr := flag.String("listen", "", "overrides the config file's listenAddr")
	peersFlag := flag.String("peers", "", "comma-separated id=addr seed peers, overrides the config file's peers")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[hostmeshd] config: %v", err)
	}
	if *nodeID != "" {
		cfg.NodeID = *nodeID
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *peersFlag != "" {
		peers, err := config.ParsePeers(*peersFlag)
		if err != nil {
			log.Fatalf("[hostmeshd] peers: %v", err)
		}
		cfg.Peers = peers
	}
	if cfg.NodeID == "" || cfg.ListenAddr == "" {
		log.Fatal("[hostmeshd] nodeId and listenAddr are required")
	}

	localID := model.NodeId(cfg.NodeID)

	tr := grpctransport.New(localID, cfg.ListenAddr)
	if err := tr.Start(); err != nil {
		log.Fatalf("[hostmeshd] transport: %v", err)
	}
	defer tr.Stop()

	members := cluster.NewMembership(localID, cfg.ListenAddr, time.Second, 3*time.Second, 10*time.Second)
	seeds := make([]cluster.Member, 0, len(cfg.Peers))
	peerAddrs := map[model.NodeId]string{localID: cfg.ListenAddr}
	for _, p := range cfg.Peers {
		id := model.NodeId(p.ID)
		if id == localID {
			continue
		}
		seeds = append(seeds, cluster.Member{ID: id, Addr: p.Addr, Status: cluster.Alive})
		peerAddrs[id] = p.Addr
	}
	members.AddSeedMembers(seeds)
	tr.SetPeers(peerAddrs)

	members.SetOnMembershipChanged(func(alive []model.NodeId) {
		addrs := map[model.NodeId]string{localID: cfg.ListenAddr}
		for _, m := range members.Snapshot() {
			addrs[m.ID] = m.Addr
		}
		tr.SetPeers(addrs)
		log.Printf("[hostmeshd %s] membership changed: %d alive", cfg.NodeID, len(alive))
	})

	c := codec.NewJSONCodec()
	adapter := cluster.NewTransportAdapter(localID, tr, c, members)
	members.Start(adapter.ProbeFn, adapter.GossipFn)
	defer members.Stop()

	oracle := clock.NewLocal[model.HostId](hashHostId)
	mgrCfg := manager.Config{
		HostsExpected:           cfg.HostsExpected,
		AntiEntropyInitialDelay: cfg.AntiEntropyInitialDelay,
		AntiEntropyPeriod:       cfg.AntiEntropyPeriod,
		ExecutorShutdownGrace:   cfg.ExecutorShutdownGrace,
	}
	m := manager.New(localID, members, tr, c, oracle, mgrCfg)
	m.Activate()
	defer m.Deactivate()

	log.Printf("[hostmeshd %s] listening on %s", cfg.NodeID, cfg.ListenAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Printf("[hostmeshd %s] shutting down", cfg.NodeID)
}

func hashHostId(id model.HostId) uint64 {
	var h uint64
	for i := 0; i < len(id); i++ {
		h = h*31 + uint64(id[i])
	}
	return h
}
