// Package cluster implements a simplified SWIM-style membership protocol
// used to answer the Directory interface (LocalNode, Nodes) the gossip
// engine consumes to pick anti-entropy peers.
//
// Limitations (learning-grade implementation):
// - no piggybacked probe acks, gossip and probe are separate round trips
// - suspect/dead nodes are excluded from Nodes(); a dead node is evicted
//   from the member list once its dead timeout has passed
package cluster
