package codec

// Codec encodes and decodes wire messages to and from opaque bytes. The
// encoding identity used by Encode must match across every node in the
// cluster; a mismatch manifests as decode failures that the gossip
// engine logs and drops (see the error handling design).
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}
