// Copyright 2025 Certen Protocol

package feedback

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/certen/mithril-verifier/pkg/firestore"
)

// FirestoreSink mirrors every lifecycle event into a Firestore-backed
// validation recorder. Writes are bounded by a per-event timeout so a
// slow Firestore backend cannot stall the walker indefinitely; a
// failed write is logged and dropped, never surfaced to the walk.
type FirestoreSink struct {
	recorder *firestore.ValidationRecorder
	timeout  time.Duration
	logger   *log.Logger
}

// NewFirestoreSink wraps recorder. A zero timeout defaults to five
// seconds.
func NewFirestoreSink(recorder *firestore.ValidationRecorder, timeout time.Duration, logger *log.Logger) *FirestoreSink {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[FirestoreSink] ", log.LstdFlags)
	}
	return &FirestoreSink{recorder: recorder, timeout: timeout, logger: logger}
}

// SendEvent implements Sink.
func (s *FirestoreSink) SendEvent(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.recorder.RecordEvent(ctx, event.Kind.String(), event.ChainID, event.CertificateHash); err != nil {
		s.logger.Printf("dropping event %s for chain %s: %v", event.Kind, event.ChainID, err)
	}
}
