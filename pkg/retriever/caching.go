// Copyright 2025 Certen Protocol
//
// CachingRetriever wraps a delegate Retriever with a read-through
// CometBFT key-value store, the same dbm.DB abstraction the rest of
// the stack uses for durable local storage. A cache hit never touches
// the delegate; a miss fetches once and persists the result.

package retriever

import (
	"context"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/mithril-verifier/pkg/entities"
)

// CachingRetriever memoizes a delegate Retriever's responses in a
// dbm.DB. The verification core itself keeps no cache; memoization
// lives entirely in this wrapper, which a caller opts into explicitly.
type CachingRetriever struct {
	delegate Retriever
	db       dbm.DB
}

// NewCachingRetriever wraps delegate with a cache backed by db (e.g.
// a cometbft-db goleveldb or memdb instance).
func NewCachingRetriever(delegate Retriever, db dbm.DB) *CachingRetriever {
	return &CachingRetriever{delegate: delegate, db: db}
}

func cacheKey(hash string) []byte {
	return []byte("cert:" + hash)
}

// GetCertificateDetails implements Retriever, consulting the cache
// before falling through to the delegate.
func (c *CachingRetriever) GetCertificateDetails(ctx context.Context, hash string) (entities.Certificate, error) {
	if cached, err := c.db.Get(cacheKey(hash)); err == nil && cached != nil {
		cert, decodeErr := unmarshalCertificate(cached)
		if decodeErr == nil {
			return cert, nil
		}
	}

	cert, err := c.delegate.GetCertificateDetails(ctx, hash)
	if err != nil {
		return entities.Certificate{}, err
	}

	// The cache write is best effort: the fetch already succeeded, so
	// neither a marshal nor a store failure may fail the retrieval.
	if payload, err := marshalCertificate(cert); err == nil {
		_ = c.db.SetSync(cacheKey(hash), payload)
	}
	return cert, nil
}
