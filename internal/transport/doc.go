// Package transport defines the Transport interface the gossip engine
// uses to broadcast and unicast opaque, subject-tagged byte payloads
// across the cluster, plus Local, an in-process fake used by tests so
// multi-node scenarios run without any real network.
package transport
