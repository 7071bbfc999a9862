// Copyright 2025 Certen Protocol
//
// Package canonical provides the deterministic byte-encoding rules the
// hash digest builds on: JSON-hex for opaque keys and blobs, big-endian
// for integers absorbed inside a message byte string.
package canonical

import (
	"encoding/binary"
	"encoding/hex"
)

// HexEncode renders b as lowercase hex, the wire convention used for
// every opaque blob (AVK, signatures) in the certificate payload.
func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// HexDecode parses a lowercase hex string back into raw bytes. An empty
// string decodes to a nil slice, matching the wire convention that
// "" means the field is absent.
func HexDecode(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

// Uint64BE encodes v as 8 big-endian bytes, the convention used when an
// integer must be absorbed inside a message byte string rather than as
// its decimal text.
func Uint64BE(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
