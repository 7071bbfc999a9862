// Copyright 2025 Certen Protocol
//
// PostgresRetriever serves certificates from a Postgres table storing
// each certificate's wire payload as JSONB, keyed by hash. Connection
// pooling and driver wiring follow the same shape as the rest of the
// stack's database clients.

package retriever

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/certen/mithril-verifier/pkg/entities"
)

// PostgresRetriever resolves certificate hashes against a
// "certificates" table with columns (hash text primary key, payload
// jsonb).
type PostgresRetriever struct {
	db     *sql.DB
	logger *log.Logger
}

// PostgresRetrieverOption configures a PostgresRetriever.
type PostgresRetrieverOption func(*PostgresRetriever)

// WithPostgresLogger overrides the default logger.
func WithPostgresLogger(logger *log.Logger) PostgresRetrieverOption {
	return func(r *PostgresRetriever) { r.logger = logger }
}

// NewPostgresRetriever opens a connection pool against databaseURL and
// verifies connectivity before returning.
func NewPostgresRetriever(databaseURL string, opts ...PostgresRetrieverOption) (*PostgresRetriever, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("retriever: database URL cannot be empty")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("retriever: open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	r := &PostgresRetriever{
		db:     db,
		logger: log.New(os.Stderr, "[PostgresRetriever] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("retriever: ping database: %w", err)
	}
	return r, nil
}

// Close releases the underlying connection pool.
func (r *PostgresRetriever) Close() error {
	return r.db.Close()
}

// Put upserts a certificate's wire payload. Used by ingestion paths
// outside the verification core; the core itself only reads.
func (r *PostgresRetriever) Put(ctx context.Context, cert entities.Certificate) error {
	payload, err := marshalCertificate(cert)
	if err != nil {
		return fmt.Errorf("retriever: marshal certificate: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO certificates (hash, payload) VALUES ($1, $2)
		 ON CONFLICT (hash) DO UPDATE SET payload = EXCLUDED.payload`,
		cert.Hash, payload)
	if err != nil {
		return fmt.Errorf("retriever: upsert certificate: %w", err)
	}
	return nil
}

// GetCertificateDetails implements Retriever.
func (r *PostgresRetriever) GetCertificateDetails(ctx context.Context, hash string) (entities.Certificate, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM certificates WHERE hash = $1`, hash).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Certificate{}, ErrNotFound
	}
	if err != nil {
		return entities.Certificate{}, &TransportError{Reason: "query certificate", Err: err}
	}

	cert, err := unmarshalCertificate(payload)
	if err != nil {
		return entities.Certificate{}, &DecodeError{Reason: "parse stored payload", Err: err}
	}
	return cert, nil
}
