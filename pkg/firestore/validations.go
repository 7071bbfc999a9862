// Copyright 2025 Certen Protocol
//
// Chain-validation records: one document per chain validation, with a
// hash-chained event subcollection so an auditor can detect a
// tampered or truncated trail.

package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	gcpfirestore "cloud.google.com/go/firestore"
)

const (
	collectionChainValidations = "chain_validations"
	subcollectionEvents        = "events"
)

// ValidationEvent is one hash-chained entry in a chain validation's
// event trail.
type ValidationEvent struct {
	Sequence        int       `firestore:"sequence"`
	Kind            string    `firestore:"kind"`
	ChainID         string    `firestore:"chainId"`
	CertificateHash string    `firestore:"certificateHash,omitempty"`
	RecordedAt      time.Time `firestore:"recordedAt"`
	PreviousEntry   string    `firestore:"previousEntryHash"`
	EntryHash       string    `firestore:"entryHash"`
}

// ValidationRecorder persists chain-validation events, maintaining a
// per-chain hash chain over the entries it writes.
type ValidationRecorder struct {
	client *Client

	chainsMu sync.Mutex
	chains   map[string]chainTrail
}

type chainTrail struct {
	sequence  int
	lastEntry string
}

// NewValidationRecorder wraps client. A disabled client yields a
// recorder whose writes are no-ops.
func NewValidationRecorder(client *Client) *ValidationRecorder {
	return &ValidationRecorder{
		client: client,
		chains: make(map[string]chainTrail),
	}
}

// entryHash chains an event onto its predecessor:
// sha256(previous_entry_hash || kind || chain_id || certificate_hash || sequence).
func entryHash(previous, kind, chainID, certificateHash string, sequence int) string {
	h := sha256.New()
	h.Write([]byte(previous))
	h.Write([]byte(kind))
	h.Write([]byte(chainID))
	h.Write([]byte(certificateHash))
	h.Write([]byte(fmt.Sprintf("%d", sequence)))
	return hex.EncodeToString(h.Sum(nil))
}

// RecordEvent appends one lifecycle event to the chain's trail.
func (r *ValidationRecorder) RecordEvent(ctx context.Context, kind, chainID, certificateHash string) error {
	if !r.client.IsEnabled() {
		return nil
	}

	r.chainsMu.Lock()
	trail := r.chains[chainID]
	trail.sequence++
	event := ValidationEvent{
		Sequence:        trail.sequence,
		Kind:            kind,
		ChainID:         chainID,
		CertificateHash: certificateHash,
		RecordedAt:      time.Now().UTC(),
		PreviousEntry:   trail.lastEntry,
	}
	event.EntryHash = entryHash(trail.lastEntry, kind, chainID, certificateHash, trail.sequence)
	trail.lastEntry = event.EntryHash
	r.chains[chainID] = trail
	r.chainsMu.Unlock()

	doc := r.client.firestore.
		Collection(collectionChainValidations).
		Doc(chainID).
		Collection(subcollectionEvents).
		Doc(fmt.Sprintf("%06d", event.Sequence))
	if _, err := doc.Set(ctx, event); err != nil {
		return fmt.Errorf("firestore: write validation event: %w", err)
	}

	summary := map[string]interface{}{
		"chainId":       chainID,
		"lastEventKind": kind,
		"lastEntryHash": event.EntryHash,
		"eventCount":    event.Sequence,
		"updatedAt":     event.RecordedAt,
	}
	parent := r.client.firestore.Collection(collectionChainValidations).Doc(chainID)
	if _, err := parent.Set(ctx, summary, gcpfirestore.MergeAll); err != nil {
		return fmt.Errorf("firestore: update validation summary: %w", err)
	}
	return nil
}
