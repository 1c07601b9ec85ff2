// Package codec defines the Codec interface the gossip engine uses to
// turn wire messages into bytes and back, plus the default JSONCodec.
package codec
