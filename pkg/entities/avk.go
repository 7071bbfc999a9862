// Copyright 2025 Certen Protocol

package entities

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// AggregateVerificationKey is the opaque stake-weighted key-registration
// commitment produced by the STM primitive. The core never inspects its
// bytes beyond canonical encoding and equality.
type AggregateVerificationKey []byte

// CanonicalHex renders the AVK in its canonical JSON-hex encoding: a
// lowercase hex string of the underlying bytes.
func (a AggregateVerificationKey) CanonicalHex() string {
	return hex.EncodeToString(a)
}

// Equal reports whether two AVKs encode the same bytes.
func (a AggregateVerificationKey) Equal(other AggregateVerificationKey) bool {
	if len(a) != len(other) {
		return false
	}
	for i := range a {
		if a[i] != other[i] {
			return false
		}
	}
	return true
}

// MarshalJSON renders the AVK as a JSON string of lowercase hex, the
// wire convention used throughout the certificate payload.
func (a AggregateVerificationKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(a))
}

// UnmarshalJSON parses the JSON-hex wire form back into raw bytes.
func (a *AggregateVerificationKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("aggregate verification key: %w", err)
	}
	if s == "" {
		*a = nil
		return nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("aggregate verification key: %w", err)
	}
	*a = b
	return nil
}

// AVKFromHex decodes a lowercase hex string into an AggregateVerificationKey.
func AVKFromHex(s string) (AggregateVerificationKey, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode avk hex: %w", err)
	}
	return AggregateVerificationKey(b), nil
}
