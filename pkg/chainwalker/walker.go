// Copyright 2025 Certen Protocol
//
// Package chainwalker validates a certificate chain: starting from a
// hash, it walks previous-hash links backwards, checking each
// certificate's self-hash, its signature (multi-signature or genesis),
// and the aggregate-verification-key continuity between neighbors,
// until a genesis certificate verified against the pre-shared genesis
// key is reached.
package chainwalker

import (
	"context"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/certen/mithril-verifier/pkg/entities"
	"github.com/certen/mithril-verifier/pkg/feedback"
	"github.com/certen/mithril-verifier/pkg/hashutil"
	"github.com/certen/mithril-verifier/pkg/retriever"
	"github.com/certen/mithril-verifier/pkg/verification"
)

// Walker validates certificate chains. It holds only read-only
// references after construction, so one Walker may serve concurrent
// VerifyChain calls for different starting hashes.
type Walker struct {
	retriever retriever.Retriever
	verifier  *verification.SignatureVerifier
	sink      feedback.Sink
	logger    *log.Logger
	maxSteps  int
}

// Option configures a Walker.
type Option func(*Walker)

// WithSink sets the feedback sink receiving lifecycle events. Without
// one, events are discarded.
func WithSink(sink feedback.Sink) Option {
	return func(w *Walker) { w.sink = sink }
}

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(w *Walker) { w.logger = logger }
}

// WithMaxSteps bounds the number of certificates the walker will visit
// in one call. Zero means unbounded; the walk always terminates on a
// well-formed chain, so the budget exists only as denial-of-service
// resistance against pathological stores.
func WithMaxSteps(n int) Option {
	return func(w *Walker) { w.maxSteps = n }
}

// nopSink discards events.
type nopSink struct{}

func (nopSink) SendEvent(feedback.Event) {}

// New constructs a Walker around a certificate retriever and a
// signature verifier.
func New(r retriever.Retriever, v *verification.SignatureVerifier, opts ...Option) *Walker {
	w := &Walker{
		retriever: r,
		verifier:  v,
		sink:      nopSink{},
		logger:    log.New(os.Stderr, "[ChainWalker] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.verifier == nil {
		w.verifier = verification.New(nil)
	}
	return w
}

// VerifyChain validates the chain starting at startHash and returns
// the starting certificate on success. Every verification failure is
// fatal and surfaced unchanged, wrapped with the hash and step it
// fired at. A NotFound on the initial lookup means there is no
// starting certificate; a NotFound mid-walk means the chain is broken.
func (w *Walker) VerifyChain(ctx context.Context, startHash string, genesisVK entities.GenesisVerificationKey) (*entities.Certificate, error) {
	chainID := uuid.New().String()
	w.sink.SendEvent(feedback.Event{Kind: feedback.EventChainValidationStarted, ChainID: chainID})
	w.logger.Printf("chain %s: validation started at %s", chainID, startHash)

	current, err := w.retriever.GetCertificateDetails(ctx, startHash)
	if err != nil {
		return nil, fatal(StepRetrieveStart, startHash, err)
	}
	start := current

	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		steps++
		if w.maxSteps > 0 && steps > w.maxSteps {
			return nil, fatal(StepFetchPrevious, current.Hash, ErrStepBudgetExceeded)
		}

		// Loop detection runs before the hash check: a self-loop can
		// never carry a valid self-hash, so checking the hash first
		// would mask every loop as a hash mismatch.
		if current.IsSelfLoop() {
			return nil, fatal(StepDetectLoop, current.Hash, ErrChainInfiniteLoop)
		}

		if recomputed := hashutil.ComputeCertificateHash(current); recomputed != current.Hash {
			w.logger.Printf("chain %s: certificate %s stored hash does not match recomputed %s", chainID, current.Hash, recomputed)
			return nil, fatal(StepVerifyHash, current.Hash, ErrCertificateHashUnmatch)
		}

		if current.Signature.IsGenesis() {
			if err := w.verifier.VerifyGenesis(current, genesisVK); err != nil {
				return nil, fatal(StepVerifySignature, current.Hash, err)
			}
			w.sink.SendEvent(feedback.Event{Kind: feedback.EventCertificateValidated, ChainID: chainID, CertificateHash: current.Hash})
			w.sink.SendEvent(feedback.Event{Kind: feedback.EventChainValidated, ChainID: chainID})
			w.logger.Printf("chain %s: genesis certificate %s accepted after %d step(s)", chainID, current.Hash, steps)
			return &start, nil
		}

		if err := w.verifier.VerifyMulti(current); err != nil {
			return nil, fatal(StepVerifySignature, current.Hash, err)
		}
		w.sink.SendEvent(feedback.Event{Kind: feedback.EventCertificateValidated, ChainID: chainID, CertificateHash: current.Hash})

		previous, err := w.retriever.GetCertificateDetails(ctx, current.PreviousHash)
		if err != nil {
			return nil, fatal(StepFetchPrevious, current.PreviousHash, err)
		}

		if previous.Hash != current.PreviousHash {
			return nil, fatal(StepCheckPrevHash, current.Hash, ErrChainPreviousHashUnmatch)
		}

		if !avkContinuityHolds(current, previous) {
			return nil, fatal(StepCheckAVK, current.Hash, ErrChainAVKUnmatch)
		}

		current = previous
	}
}

// avkContinuityHolds checks the stake-distribution rotation invariant
// between a certificate and its fetched predecessor. When the epoch
// changes, the predecessor's protocol message must have pre-announced
// the current AVK under next_aggregate_verification_key; within one
// epoch, the AVKs must be equal. A predecessor lacking the
// next-AVK announcement does not excuse the mismatch: genesis
// acceptance must already have happened at signature verification.
func avkContinuityHolds(current, previous entities.Certificate) bool {
	currentAVK := current.AggregateVerificationKey.CanonicalHex()
	previousAVK := previous.AggregateVerificationKey.CanonicalHex()

	if previous.ProtocolMessage != nil {
		next, ok := previous.ProtocolMessage.Get(entities.MessagePartKeyNextAggregateVerificationKey)
		if ok && next == currentAVK && previous.Beacon.Epoch != current.Beacon.Epoch {
			return true
		}
	}
	return previousAVK == currentAVK && previous.Beacon.Epoch == current.Beacon.Epoch
}
