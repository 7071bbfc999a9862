// Copyright 2025 Certen Protocol
//
// Package hashutil implements the canonical hash digests defined over
// the certificate data model: a fixed field order per entity, absorbed
// into SHA-256, rendered as lowercase hex. String fields are absorbed
// as their raw UTF-8 bytes, integers as 8 big-endian bytes, opaque
// blobs as their lowercase hex encoding.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"
	"time"

	"github.com/certen/mithril-verifier/pkg/canonical"
	"github.com/certen/mithril-verifier/pkg/entities"
)

func absorbString(h hash.Hash, s string) {
	h.Write([]byte(s))
}

func absorbUint64(h hash.Hash, v uint64) {
	h.Write(canonical.Uint64BE(v))
}

func finish(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeBeaconHash absorbs a Beacon's fields in the order network,
// epoch, immutable_file_number.
func ComputeBeaconHash(b entities.Beacon) string {
	h := sha256.New()
	absorbString(h, b.Network)
	absorbUint64(h, b.Epoch)
	absorbUint64(h, b.ImmutableFileNumber)
	return finish(h)
}

// ComputeMetadataHash absorbs a CertificateMetadata's fields in the
// order protocol version, parameters (k, m, phi_f), initiated_at,
// sealed_at, then each signer's (party_id, stake) in list order.
func ComputeMetadataHash(m entities.CertificateMetadata) string {
	h := sha256.New()
	absorbString(h, m.ProtocolVersion)
	absorbUint64(h, m.Parameters.K)
	absorbUint64(h, m.Parameters.M)
	absorbString(h, strconv.FormatFloat(m.Parameters.PhiF, 'g', -1, 64))
	absorbString(h, m.InitiatedAt.UTC().Format(time.RFC3339Nano))
	absorbString(h, m.SealedAt.UTC().Format(time.RFC3339Nano))
	for _, s := range m.Signers {
		absorbString(h, s.PartyID)
		absorbUint64(h, s.Stake)
	}
	return finish(h)
}

// ComputeMessageHash absorbs a ProtocolMessage's parts in canonical
// discriminant order: the key's lowercase snake-case name, then the
// value.
func ComputeMessageHash(m *entities.ProtocolMessage) string {
	h := sha256.New()
	if m != nil {
		for _, p := range m.Parts() {
			absorbString(h, p.Key.String())
			absorbString(h, p.Value)
		}
	}
	return finish(h)
}

// ComputeCertificateHash absorbs, in exact order: previous_hash,
// compute_hash(beacon), compute_hash(metadata),
// compute_hash(protocol_message), signed_message, the JSON-hex
// encoding of the AVK, and finally — depending on the signature
// variant — either the hex encoding of the genesis signature or the
// JSON-hex of the multi-signature blob.
func ComputeCertificateHash(c entities.Certificate) string {
	h := sha256.New()
	absorbString(h, c.PreviousHash)
	absorbString(h, ComputeBeaconHash(c.Beacon))
	absorbString(h, ComputeMetadataHash(c.Metadata))
	absorbString(h, ComputeMessageHash(c.ProtocolMessage))
	absorbString(h, c.SignedMessage)
	absorbString(h, c.AggregateVerificationKey.CanonicalHex())
	if c.Signature.IsGenesis() {
		absorbString(h, canonical.HexEncode(c.Signature.Genesis))
	} else {
		absorbString(h, canonical.HexEncode(c.Signature.Multi))
	}
	return finish(h)
}
