// Package model defines the value types shared across the host store:
// host identity, the network attachment point, and the description an
// upstream provider reports for a host.
package model
