// Package wire defines the messages exchanged between cluster nodes and
// the stable subject strings they travel on. Messages are encoded and
// decoded through the codec.Codec the manager is configured with; this
// package only defines their Go shape.
package wire
