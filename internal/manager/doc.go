// Package manager wires the host table, event dispatcher, gossip
// engine, and address bindings into the single Manager that exposes the
// public API: the host operations plus the address-binding adjunct.
// Activate and Deactivate start and stop the gossip engine; the
// transport and cluster membership are started and stopped by their
// owner (cmd/hostmeshd), not by the Manager.
package manager
