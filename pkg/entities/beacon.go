// Copyright 2025 Certen Protocol
//
// Beacon identifies a point on the source chain that a certificate
// commits to: a network, an epoch, and an immutable-file number.

package entities

// Beacon locates a certificate on the source chain's timeline.
type Beacon struct {
	Network             string `json:"network"`
	Epoch               uint64 `json:"epoch"`
	ImmutableFileNumber uint64 `json:"immutable_file_number"`
}

// Equal reports whether two beacons carry identical fields.
func (b Beacon) Equal(other Beacon) bool {
	return b.Network == other.Network &&
		b.Epoch == other.Epoch &&
		b.ImmutableFileNumber == other.ImmutableFileNumber
}
