// Copyright 2025 Certen Protocol

package retriever

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/certen/mithril-verifier/pkg/entities"
)

// wireBeacon, wireParameters, wireMetadata, and wireCertificate mirror
// the normative JSON payload a certificate retriever returns. Hashing
// rules are defined over the in-memory model, not this JSON, so
// whitespace or field ordering in transit never matters.
type wireBeacon struct {
	Network             string `json:"network"`
	Epoch               uint64 `json:"epoch"`
	ImmutableFileNumber uint64 `json:"immutable_file_number"`
}

type wireParameters struct {
	K    uint64  `json:"k"`
	M    uint64  `json:"m"`
	PhiF float64 `json:"phi_f"`
}

type wireSigner struct {
	PartyID string `json:"party_id"`
	Stake   uint64 `json:"stake"`
}

type wireMetadata struct {
	Version     string         `json:"version"`
	Parameters  wireParameters `json:"parameters"`
	InitiatedAt time.Time      `json:"initiated_at"`
	SealedAt    time.Time      `json:"sealed_at"`
	Signers     []wireSigner   `json:"signers"`
}

type wireProtocolMessage struct {
	MessageParts map[string]string `json:"message_parts"`
}

type wireCertificate struct {
	Hash                     string              `json:"hash"`
	PreviousHash             string              `json:"previous_hash"`
	Beacon                   wireBeacon          `json:"beacon"`
	Metadata                 wireMetadata        `json:"metadata"`
	ProtocolMessage          wireProtocolMessage `json:"protocol_message"`
	SignedMessage            string              `json:"signed_message"`
	AggregateVerificationKey string              `json:"aggregate_verification_key"`
	MultiSignature           string              `json:"multi_signature"`
	GenesisSignature         string              `json:"genesis_signature"`
}

// toEntity reconstructs the in-memory Certificate model from the wire
// payload, performing the sum-type reconstruction for the signature
// variant at this adapter boundary: an empty genesis_signature selects
// multi-sig, otherwise genesis.
func (w wireCertificate) toEntity() (entities.Certificate, error) {
	avk, err := entities.AVKFromHex(w.AggregateVerificationKey)
	if err != nil {
		return entities.Certificate{}, fmt.Errorf("decode aggregate_verification_key: %w", err)
	}

	msg := entities.NewProtocolMessage()
	for name, value := range w.ProtocolMessage.MessageParts {
		key, ok := entities.ParseMessagePartKey(name)
		if !ok {
			return entities.Certificate{}, fmt.Errorf("unrecognized protocol message key %q", name)
		}
		msg.Set(key, value)
	}

	signers := make([]entities.StakeDistributionParty, 0, len(w.Metadata.Signers))
	for _, s := range w.Metadata.Signers {
		signers = append(signers, entities.StakeDistributionParty{PartyID: s.PartyID, Stake: s.Stake})
	}

	metadata := entities.CertificateMetadata{
		ProtocolVersion: w.Metadata.Version,
		Parameters:      entities.ProtocolParameters(w.Metadata.Parameters),
		InitiatedAt:     w.Metadata.InitiatedAt,
		SealedAt:        w.Metadata.SealedAt,
		Signers:         signers,
	}
	if !metadata.Parameters.Valid() {
		return entities.Certificate{}, fmt.Errorf("protocol parameters out of range: k=%d m=%d phi_f=%v",
			metadata.Parameters.K, metadata.Parameters.M, metadata.Parameters.PhiF)
	}
	if !metadata.Valid() {
		return entities.Certificate{}, fmt.Errorf("metadata sealed_at %s precedes initiated_at %s",
			metadata.SealedAt, metadata.InitiatedAt)
	}

	var variant entities.SignatureVariant
	if w.GenesisSignature == "" {
		multiSig, err := entities.AVKFromHex(w.MultiSignature)
		if err != nil {
			return entities.Certificate{}, fmt.Errorf("decode multi_signature: %w", err)
		}
		variant = entities.NewMultiSignature(multiSig)
	} else {
		genSig, err := entities.AVKFromHex(w.GenesisSignature)
		if err != nil {
			return entities.Certificate{}, fmt.Errorf("decode genesis_signature: %w", err)
		}
		variant = entities.NewGenesisSignature(genSig)
	}

	return entities.Certificate{
		Hash:                     w.Hash,
		PreviousHash:             w.PreviousHash,
		Beacon:                   entities.Beacon(w.Beacon),
		Metadata:                 metadata,
		ProtocolMessage:          msg,
		SignedMessage:            w.SignedMessage,
		AggregateVerificationKey: avk,
		Signature:                variant,
	}, nil
}

// fromEntity renders a Certificate to its wire payload, the inverse of
// toEntity. Used by implementations (e.g. the Postgres retriever) that
// store certificates as JSON.
func fromEntity(c entities.Certificate) wireCertificate {
	parts := make(map[string]string)
	if c.ProtocolMessage != nil {
		for _, p := range c.ProtocolMessage.Parts() {
			parts[p.Key.String()] = p.Value
		}
	}

	signers := make([]wireSigner, 0, len(c.Metadata.Signers))
	for _, s := range c.Metadata.Signers {
		signers = append(signers, wireSigner{PartyID: s.PartyID, Stake: s.Stake})
	}

	w := wireCertificate{
		Hash:         c.Hash,
		PreviousHash: c.PreviousHash,
		Beacon:       wireBeacon(c.Beacon),
		Metadata: wireMetadata{
			Version:     c.Metadata.ProtocolVersion,
			Parameters:  wireParameters(c.Metadata.Parameters),
			InitiatedAt: c.Metadata.InitiatedAt,
			SealedAt:    c.Metadata.SealedAt,
			Signers:     signers,
		},
		ProtocolMessage:          wireProtocolMessage{MessageParts: parts},
		SignedMessage:            c.SignedMessage,
		AggregateVerificationKey: c.AggregateVerificationKey.CanonicalHex(),
	}
	if c.Signature.IsGenesis() {
		w.GenesisSignature = entities.AggregateVerificationKey(c.Signature.Genesis).CanonicalHex()
	} else {
		w.MultiSignature = entities.AggregateVerificationKey(c.Signature.Multi).CanonicalHex()
	}
	return w
}

// marshalCertificate renders c as its wire JSON form.
func marshalCertificate(c entities.Certificate) ([]byte, error) {
	return json.Marshal(fromEntity(c))
}

// EncodeWire renders c in the normative wire JSON shape. Exposed for
// callers that serve certificates back out, e.g. the HTTP API.
func EncodeWire(c entities.Certificate) ([]byte, error) {
	return marshalCertificate(c)
}

// DecodeWire parses the normative wire JSON shape into a Certificate.
func DecodeWire(data []byte) (entities.Certificate, error) {
	return unmarshalCertificate(data)
}

// unmarshalCertificate parses the wire JSON form into a Certificate.
func unmarshalCertificate(data []byte) (entities.Certificate, error) {
	var w wireCertificate
	if err := json.Unmarshal(data, &w); err != nil {
		return entities.Certificate{}, fmt.Errorf("unmarshal certificate: %w", err)
	}
	return w.toEntity()
}
