package grpctransport

import (
	"encoding/binary"
	"fmt"
)

// envelope is the logical message carried inside every BytesValue: the
// sender's node ID, the subject it was published on, and the opaque
// payload. It is packed by hand into a length-prefixed binary frame
// since BytesValue itself has no structure beyond a byte slice.
type envelope struct {
	from    string
	subject string
	payload []byte
}

func encodeEnvelope(e envelope) []byte {
	buf := make([]byte, 0, 8+len(e.from)+len(e.subject)+len(e.payload))
	buf = appendLenPrefixed(buf, []byte(e.from))
	buf = appendLenPrefixed(buf, []byte(e.subject))
	buf = appendLenPrefixed(buf, e.payload)
	return buf
}

func decodeEnvelope(data []byte) (envelope, error) {
	from, rest, err := readLenPrefixed(data)
	if err != nil {
		return envelope{}, fmt.Errorf("grpctransport: decode from: %w", err)
	}
	subject, rest, err := readLenPrefixed(rest)
	if err != nil {
		return envelope{}, fmt.Errorf("grpctransport: decode subject: %w", err)
	}
	payload, rest, err := readLenPrefixed(rest)
	if err != nil {
		return envelope{}, fmt.Errorf("grpctransport: decode payload: %w", err)
	}
	if len(rest) != 0 {
		return envelope{}, fmt.Errorf("grpctransport: %d trailing bytes after envelope", len(rest))
	}
	return envelope{from: string(from), subject: string(subject), payload: payload}, nil
}

func appendLenPrefixed(buf []byte, field []byte) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(field)))
	buf = append(buf, length[:]...)
	return append(buf, field...)
}

func readLenPrefixed(data []byte) (field []byte, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}
	length := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(len(data)) < uint64(length) {
		return nil, nil, fmt.Errorf("truncated field: want %d bytes, have %d", length, len(data))
	}
	return data[:length], data[length:], nil
}
