// Package clock provides the logical timestamp oracle consumed by the host
// store. A Timestamp is totally ordered within the key (HostId) it was
// issued for; comparing timestamps issued for different keys carries no
// meaning, matching the oracle contract the store relies on.
package clock
