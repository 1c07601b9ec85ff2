// Package store holds the replicated host table: the live host map, its
// ConnectPoint-indexed location view, and the tombstone map, all under a
// single mutex. The update and remove transition functions are pure —
// they take a timestamp and description and return the event produced,
// never performing I/O — so both the local API and the gossip engine's
// peer-message handlers can call them directly.
package store
