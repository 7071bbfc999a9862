// Copyright 2025 Certen Protocol
//
// Package retriever defines the Certificate Retriever contract: a
// pluggable source that resolves a certificate hash to its fully
// populated model, or a structured not-found / transport / decode
// error. Concrete implementations (memory, HTTP aggregator, Postgres,
// a caching wrapper) live alongside the interface.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/certen/mithril-verifier/pkg/entities"
)

// ErrNotFound is returned when the aggregator or store has no
// certificate under the requested hash.
var ErrNotFound = errors.New("retriever: certificate not found")

// TransportError wraps a retryable transport-level failure (network,
// connection, I/O). Retry policy belongs to the retriever, not the
// caller.
type TransportError struct {
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("retriever: transport error: %s: %v", e.Reason, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError wraps a failure to parse a retrieved certificate
// payload.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("retriever: decode error: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Retriever resolves a certificate hash to its fully populated model.
type Retriever interface {
	GetCertificateDetails(ctx context.Context, hash string) (entities.Certificate, error)
}
