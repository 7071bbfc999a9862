// Copyright 2025 Certen Protocol

package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/mithril-verifier/pkg/entities"
)

func sampleCertificate(hash string) entities.Certificate {
	msg := entities.NewProtocolMessage()
	msg.Set(entities.MessagePartKeySnapshotDigest, "aa")
	return entities.Certificate{
		Hash:          hash,
		PreviousHash:  "",
		Beacon:        entities.Beacon{Network: "testnet", Epoch: 10, ImmutableFileNumber: 1},
		Metadata: entities.CertificateMetadata{
			ProtocolVersion: "0.1.0",
			Parameters:      entities.ProtocolParameters{K: 1, M: 1, PhiF: 0.8},
			InitiatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			SealedAt:        time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		},
		ProtocolMessage:          msg,
		SignedMessage:            "signed",
		AggregateVerificationKey: entities.AggregateVerificationKey{0x01},
		Signature:                entities.NewGenesisSignature([]byte{0xaa}),
	}
}

func TestMemoryRetrieverRoundTrip(t *testing.T) {
	r := NewMemoryRetriever()
	cert := sampleCertificate("hash-1")
	r.Put(cert)

	got, err := r.GetCertificateDetails(context.Background(), "hash-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hash != cert.Hash {
		t.Fatalf("got hash %s, want %s", got.Hash, cert.Hash)
	}
}

func TestMemoryRetrieverNotFound(t *testing.T) {
	r := NewMemoryRetriever()
	_, err := r.GetCertificateDetails(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCachingRetrieverServesFromCacheOnSecondCall(t *testing.T) {
	delegate := NewMemoryRetriever()
	cert := sampleCertificate("hash-2")
	delegate.Put(cert)

	cache := dbm.NewMemDB()
	caching := NewCachingRetriever(delegate, cache)

	first, err := caching.GetCertificateDetails(context.Background(), "hash-2")
	if err != nil {
		t.Fatalf("unexpected error on first fetch: %v", err)
	}

	delegate.Put(entities.Certificate{Hash: "hash-2", PreviousHash: "mutated"})

	second, err := caching.GetCertificateDetails(context.Background(), "hash-2")
	if err != nil {
		t.Fatalf("unexpected error on second fetch: %v", err)
	}
	if second.PreviousHash != first.PreviousHash {
		t.Fatalf("expected cached response, got delegate's mutated value %q", second.PreviousHash)
	}
}

func TestDecodeWireRejectsSealedBeforeInitiated(t *testing.T) {
	cert := sampleCertificate("hash-3")
	cert.Metadata.SealedAt = cert.Metadata.InitiatedAt.Add(-time.Minute)

	payload, err := marshalCertificate(cert)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := DecodeWire(payload); err == nil {
		t.Fatal("expected decode to reject sealed_at before initiated_at")
	}
}

func TestDecodeWireRejectsInvalidParameters(t *testing.T) {
	cert := sampleCertificate("hash-4")
	cert.Metadata.Parameters.PhiF = 1.5

	payload, err := marshalCertificate(cert)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := DecodeWire(payload); err == nil {
		t.Fatal("expected decode to reject phi_f above 1")
	}
}

func TestCachingRetrieverPropagatesNotFound(t *testing.T) {
	delegate := NewMemoryRetriever()
	cache := dbm.NewMemDB()
	caching := NewCachingRetriever(delegate, cache)

	_, err := caching.GetCertificateDetails(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
