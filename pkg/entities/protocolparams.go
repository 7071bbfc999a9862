// Copyright 2025 Certen Protocol

package entities

// ProtocolParameters are the STM (stake-threshold multisignature)
// parameters in force for an epoch: quorum k, lottery domain m, and the
// false-positive rate phi_f used to size the per-party lottery.
type ProtocolParameters struct {
	K    uint64  `json:"k"`
	M    uint64  `json:"m"`
	PhiF float64 `json:"phi_f"`
}

// Valid reports whether the parameters are in their documented ranges.
func (p ProtocolParameters) Valid() bool {
	return p.K > 0 && p.M > 0 && p.PhiF > 0 && p.PhiF <= 1
}
