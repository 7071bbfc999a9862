// Copyright 2025 Certen Protocol
//
// Chain Verification API Handlers
// Exposes chain validation and certificate lookup over HTTP for
// external customers and auditing nodes.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/certen/mithril-verifier/pkg/chainwalker"
	"github.com/certen/mithril-verifier/pkg/entities"
	"github.com/certen/mithril-verifier/pkg/feedback"
	"github.com/certen/mithril-verifier/pkg/retriever"
	"github.com/certen/mithril-verifier/pkg/verification"
)

// Handlers provides HTTP handlers for chain verification operations.
// Each verification request gets its own walker so that its progress
// events can be streamed back on that request's connection.
type Handlers struct {
	retriever retriever.Retriever
	verifier  *verification.SignatureVerifier
	genesisVK entities.GenesisVerificationKey
	baseSink  feedback.Sink
	maxSteps  int
	logger    *log.Logger
}

// NewHandlers creates chain verification handlers. baseSink may be nil
// when no process-wide sink (metrics, Firestore) is configured.
func NewHandlers(r retriever.Retriever, v *verification.SignatureVerifier, genesisVK entities.GenesisVerificationKey, baseSink feedback.Sink, maxSteps int, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[VerifyAPI] ", log.LstdFlags)
	}
	return &Handlers{
		retriever: r,
		verifier:  v,
		genesisVK: genesisVK,
		baseSink:  baseSink,
		maxSteps:  maxSteps,
		logger:    logger,
	}
}

// RegisterRoutes attaches all handlers to mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/chains/", h.HandleVerifyChain)
	mux.HandleFunc("/api/v1/certificates/", h.HandleGetCertificate)
	mux.HandleFunc("/health", h.HandleHealth)
}

// progressLine is one chunk of the verification response stream.
type progressLine struct {
	Event           string          `json:"event"`
	ChainID         string          `json:"chain_id,omitempty"`
	CertificateHash string          `json:"certificate_hash,omitempty"`
	Error           string          `json:"error,omitempty"`
	Certificate     json.RawMessage `json:"certificate,omitempty"`
}

// HandleVerifyChain handles POST /api/v1/chains/{hash}/verify.
// The response is a stream of newline-delimited JSON progress events,
// terminated by either a "result" or an "error" line.
func (h *Handlers) HandleVerifyChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	// Extract hash from path: /api/v1/chains/{hash}/verify
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/chains/")
	hash := strings.TrimSuffix(path, "/verify")
	if hash == "" || hash == path {
		h.writeError(w, http.StatusBadRequest, "INVALID_PATH", "Expected /api/v1/chains/{hash}/verify")
		return
	}

	channelSink := feedback.NewChannelSink(64)
	sink := feedback.NewMultiSink(h.baseSink, channelSink)
	walker := chainwalker.New(h.retriever, h.verifier,
		chainwalker.WithSink(sink),
		chainwalker.WithMaxSteps(h.maxSteps),
		chainwalker.WithLogger(h.logger),
	)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)

	type walkResult struct {
		cert *entities.Certificate
		err  error
	}
	done := make(chan walkResult, 1)
	go func() {
		cert, err := walker.VerifyChain(r.Context(), hash, h.genesisVK)
		channelSink.Close()
		done <- walkResult{cert: cert, err: err}
	}()

	for event := range channelSink.Events() {
		line := progressLine{
			Event:           event.Kind.String(),
			ChainID:         event.ChainID,
			CertificateHash: event.CertificateHash,
		}
		if err := encoder.Encode(line); err != nil {
			h.logger.Printf("Error streaming progress event: %v", err)
			<-done
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	result := <-done
	if result.err != nil {
		h.logger.Printf("Chain verification failed for %s: %v", hash, result.err)
		_ = encoder.Encode(progressLine{Event: "error", Error: result.err.Error()})
		return
	}

	payload, err := retriever.EncodeWire(*result.cert)
	if err != nil {
		h.logger.Printf("Error encoding result certificate: %v", err)
		_ = encoder.Encode(progressLine{Event: "error", Error: "failed to encode result certificate"})
		return
	}
	_ = encoder.Encode(progressLine{Event: "result", Certificate: payload})
}

// HandleGetCertificate handles GET /api/v1/certificates/{hash},
// delegating straight to the configured retriever.
func (h *Handlers) HandleGetCertificate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/certificates/")
	hash := strings.TrimSuffix(path, "/")
	if hash == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_HASH", "Certificate hash is required")
		return
	}

	cert, err := h.retriever.GetCertificateDetails(r.Context(), hash)
	if errors.Is(err, retriever.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "CERTIFICATE_NOT_FOUND", fmt.Sprintf("No certificate found for hash: %s", hash))
		return
	}
	if err != nil {
		h.logger.Printf("Error retrieving certificate %s: %v", hash, err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve certificate")
		return
	}

	payload, err := retriever.EncodeWire(cert)
	if err != nil {
		h.logger.Printf("Error encoding certificate %s: %v", hash, err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to encode certificate")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.logger.Printf("Error writing response: %v", err)
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Error encoding response: %v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
