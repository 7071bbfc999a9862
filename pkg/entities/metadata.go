// Copyright 2025 Certen Protocol

package entities

import "time"

// CertificateMetadata carries the protocol version, the parameters in
// force, the signing window, and the signer set that produced the
// certificate's multi-signature (empty for genesis certificates).
type CertificateMetadata struct {
	ProtocolVersion string                    `json:"version"`
	Parameters      ProtocolParameters        `json:"parameters"`
	InitiatedAt     time.Time                 `json:"initiated_at"`
	SealedAt        time.Time                 `json:"sealed_at"`
	Signers         []StakeDistributionParty  `json:"signers"`
}

// Valid reports whether the metadata satisfies its documented invariants.
func (m CertificateMetadata) Valid() bool {
	return !m.SealedAt.Before(m.InitiatedAt)
}
