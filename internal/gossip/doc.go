// Package gossip implements the three inbound message handlers (update,
// remove, anti-entropy advertisement) and the periodic task that picks a
// random peer and sends it an advertisement. Engine owns the two worker
// pools described alongside it: an elastic, goroutine-per-message pool
// for inbound updates and removes, and a single serialized background
// worker for anti-entropy so at most one full-state scan runs at a time.
package gossip
