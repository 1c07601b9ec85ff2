// Package bindings tracks address bindings per switch port: a small,
// purely local multimap that shares the host manager's component
// boundary but is never replicated and never touches the host table's
// lock.
package bindings
