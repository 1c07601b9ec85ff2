// Package config loads the node's bootstrap and runtime configuration
// from a YAML file, with a programmatic default for anything left
// unset.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Peer is a cluster seed: a node id paired with the address its
// transport listens on.
type Peer struct {
	ID   string `yaml:"id"`
	Addr string `yaml:"addr"`
}

// Config holds everything needed to stand up a node: the bootstrap
// identity/peers plus the core's recognized options.
type Config struct {
	NodeID     string `yaml:"nodeId"`
	ListenAddr string `yaml:"listenAddr"`
	Peers      []Peer `yaml:"peers"`

	HostsExpected           int           `yaml:"hostsExpected"`
	AntiEntropyInitialDelay time.Duration `yaml:"antiEntropyInitialDelay"`
	AntiEntropyPeriod       time.Duration `yaml:"antiEntropyPeriod"`
	ExecutorShutdownGrace   time.Duration `yaml:"executorShutdownGrace"`
}

// DefaultConfig returns the programmatic defaults named in the core's
// component design.
func DefaultConfig() *Config {
	return &Config{
		HostsExpected:           1024,
		AntiEntropyInitialDelay: 5 * time.Second,
		AntiEntropyPeriod:       5 * time.Second,
		ExecutorShutdownGrace:   5 * time.Second,
	}
}

// Load finds and parses the file at path, applying defaults to
// anything left unset. An empty path returns defaults untouched.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HostsExpected == 0 {
		c.HostsExpected = 1024
	}
	if c.AntiEntropyInitialDelay == 0 {
		c.AntiEntropyInitialDelay = 5 * time.Second
	}
	if c.AntiEntropyPeriod == 0 {
		c.AntiEntropyPeriod = 5 * time.Second
	}
	if c.ExecutorShutdownGrace == 0 {
		c.ExecutorShutdownGrace = 5 * time.Second
	}
}

// ParsePeers parses a comma-separated list of peers in the format
// "id1=addr1,id2=addr2,id3=addr3", the flattened command-line form of
// the YAML peers list.
func ParsePeers(peersStr string) ([]Peer, error) {
	if peersStr == "" {
		return []Peer{}, nil
	}

	parts := strings.Split(peersStr, ",")
	peers := make([]Peer, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid peer format: %s (expected id=addr)", part)
		}

		id := strings.TrimSpace(kv[0])
		addr := strings.TrimSpace(kv[1])

		if id == "" || addr == "" {
			return nil, fmt.Errorf("peer ID and address cannot be empty: %s", part)
		}

		peers = append(peers, Peer{ID: id, Addr: addr})
	}

	return peers, nil
}
