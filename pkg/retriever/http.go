// Copyright 2025 Certen Protocol

package retriever

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/certen/mithril-verifier/pkg/entities"
)

// HTTPRetriever fetches certificate payloads from an aggregator's REST
// endpoint. It implements only the subset of the aggregator's API this
// core needs: fetching one certificate's details by hash.
type HTTPRetriever struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// HTTPRetrieverOption is a functional option for configuring an
// HTTPRetriever.
type HTTPRetrieverOption func(*HTTPRetriever)

// WithHTTPClient overrides the default HTTP client, e.g. to tune
// timeouts or inject a transport for testing.
func WithHTTPClient(client *http.Client) HTTPRetrieverOption {
	return func(r *HTTPRetriever) { r.httpClient = client }
}

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) HTTPRetrieverOption {
	return func(r *HTTPRetriever) { r.logger = logger }
}

// NewHTTPRetriever constructs a retriever against an aggregator base
// URL, e.g. "https://aggregator.example.org".
func NewHTTPRetriever(baseURL string, opts ...HTTPRetrieverOption) *HTTPRetriever {
	r := &HTTPRetriever{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.New(os.Stderr, "[HTTPRetriever] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetCertificateDetails implements Retriever by issuing
// GET {baseURL}/certificate/{hash}.
func (r *HTTPRetriever) GetCertificateDetails(ctx context.Context, hash string) (entities.Certificate, error) {
	endpoint, err := url.JoinPath(r.baseURL, "certificate", hash)
	if err != nil {
		return entities.Certificate{}, &TransportError{Reason: "build request URL", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entities.Certificate{}, &TransportError{Reason: "build request", Err: err}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return entities.Certificate{}, &TransportError{Reason: "perform request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return entities.Certificate{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return entities.Certificate{}, &TransportError{
			Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode),
			Err:    fmt.Errorf("aggregator returned non-200"),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return entities.Certificate{}, &TransportError{Reason: "read response body", Err: err}
	}

	cert, err := unmarshalCertificate(body)
	if err != nil {
		return entities.Certificate{}, &DecodeError{Reason: "parse certificate payload", Err: err}
	}
	return cert, nil
}
