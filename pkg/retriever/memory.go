// Copyright 2025 Certen Protocol

package retriever

import (
	"context"
	"sync"

	"github.com/certen/mithril-verifier/pkg/entities"
)

// MemoryRetriever serves certificates from an in-memory map. Used for
// tests and for local chain fixtures; never backed by durable storage.
type MemoryRetriever struct {
	mu    sync.RWMutex
	certs map[string]entities.Certificate
}

// NewMemoryRetriever returns an empty MemoryRetriever.
func NewMemoryRetriever() *MemoryRetriever {
	return &MemoryRetriever{certs: make(map[string]entities.Certificate)}
}

// Put registers cert under its own hash, overwriting any prior entry.
func (r *MemoryRetriever) Put(cert entities.Certificate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.certs[cert.Hash] = cert
}

// GetCertificateDetails implements Retriever.
func (r *MemoryRetriever) GetCertificateDetails(ctx context.Context, hash string) (entities.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cert, ok := r.certs[hash]
	if !ok {
		return entities.Certificate{}, ErrNotFound
	}
	return cert, nil
}
