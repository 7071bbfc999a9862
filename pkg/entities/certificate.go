// Copyright 2025 Certen Protocol

package entities

// Certificate is an immutable value retrieved from the certificate
// store. The core never mutates a retrieved certificate; it only
// validates it.
type Certificate struct {
	Hash                     string
	PreviousHash             string
	Beacon                   Beacon
	Metadata                 CertificateMetadata
	ProtocolMessage          *ProtocolMessage
	SignedMessage            string
	AggregateVerificationKey AggregateVerificationKey
	Signature                SignatureVariant
}

// IsSelfLoop reports whether the certificate lists itself as its own
// predecessor, the terminal self-loop sentinel the walker must reject.
func (c Certificate) IsSelfLoop() bool {
	return c.Hash == c.PreviousHash
}

// GenesisVerificationKey is the opaque, pre-shared public key used to
// authenticate a chain's genesis certificate. It is loaded from trusted
// configuration outside the core.
type GenesisVerificationKey []byte
