// Copyright 2025 Certen Protocol

package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/certen/mithril-verifier/pkg/entities"
	"github.com/certen/mithril-verifier/pkg/genesissig"
	"github.com/certen/mithril-verifier/pkg/hashutil"
	"github.com/certen/mithril-verifier/pkg/retriever"
	"github.com/certen/mithril-verifier/pkg/stm"
	"github.com/certen/mithril-verifier/pkg/verification"
)

func testGenesisChain(t *testing.T) (entities.Certificate, entities.GenesisVerificationKey, *retriever.MemoryRetriever) {
	t.Helper()
	vk, priv, err := genesissig.GenerateKey()
	if err != nil {
		t.Fatalf("generate genesis key: %v", err)
	}

	reg := stm.NewKeyRegistration()
	_, pub := stm.GenerateKeyPairFromSeed([]byte("server-test"))
	if err := reg.Register("pool-1", 100, pub); err != nil {
		t.Fatalf("register: %v", err)
	}
	avk, err := reg.Close()
	if err != nil {
		t.Fatalf("close registration: %v", err)
	}

	msg := entities.NewProtocolMessage()
	msg.Set(entities.MessagePartKeySnapshotDigest, "digest-1")
	initiated := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cert := entities.Certificate{
		PreviousHash: "",
		Beacon:       entities.Beacon{Network: "testnet", Epoch: 10, ImmutableFileNumber: 100},
		Metadata: entities.CertificateMetadata{
			ProtocolVersion: "0.1.0",
			Parameters:      entities.ProtocolParameters{K: 1, M: 2, PhiF: 0.65},
			InitiatedAt:     initiated,
			SealedAt:        initiated.Add(time.Minute),
		},
		ProtocolMessage:          msg,
		AggregateVerificationKey: avk,
	}
	cert.SignedMessage = hashutil.ComputeMessageHash(cert.ProtocolMessage)
	cert.Signature = entities.NewGenesisSignature(genesissig.Sign(priv, []byte(cert.SignedMessage)))
	cert.Hash = hashutil.ComputeCertificateHash(cert)

	store := retriever.NewMemoryRetriever()
	store.Put(cert)
	return cert, vk, store
}

func TestHandleVerifyChainStreamsProgressAndResult(t *testing.T) {
	cert, vk, store := testGenesisChain(t)
	handlers := NewHandlers(store, verification.New(nil), vk, nil, 0, nil)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/chains/%s/verify", cert.Hash), nil)
	rec := httptest.NewRecorder()
	handlers.HandleVerifyChain(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(rec.Body.Bytes()))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		var line map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("parse stream line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, line)
	}

	wantEvents := []string{"ChainValidationStarted", "CertificateValidated", "ChainValidated", "result"}
	if len(lines) != len(wantEvents) {
		t.Fatalf("got %d stream lines, want %d", len(lines), len(wantEvents))
	}
	for i, want := range wantEvents {
		if lines[i]["event"] != want {
			t.Fatalf("line %d event = %v, want %s", i, lines[i]["event"], want)
		}
	}
	result := lines[len(lines)-1]["certificate"].(map[string]interface{})
	if result["hash"] != cert.Hash {
		t.Fatalf("result certificate hash = %v, want %s", result["hash"], cert.Hash)
	}
}

func TestHandleVerifyChainReportsErrors(t *testing.T) {
	_, vk, store := testGenesisChain(t)
	handlers := NewHandlers(store, verification.New(nil), vk, nil, 0, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chains/unknown-hash/verify", nil)
	rec := httptest.NewRecorder()
	handlers.HandleVerifyChain(rec, req)

	scanner := bufio.NewScanner(bytes.NewReader(rec.Body.Bytes()))
	var last map[string]interface{}
	for scanner.Scan() {
		last = nil
		if err := json.Unmarshal(scanner.Bytes(), &last); err != nil {
			t.Fatalf("parse stream line: %v", err)
		}
	}
	if last == nil || last["event"] != "error" {
		t.Fatalf("final stream line = %v, want an error event", last)
	}
}

func TestHandleGetCertificate(t *testing.T) {
	cert, vk, store := testGenesisChain(t)
	handlers := NewHandlers(store, verification.New(nil), vk, nil, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/"+cert.Hash, nil)
	rec := httptest.NewRecorder()
	handlers.HandleGetCertificate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got, err := retriever.DecodeWire(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Hash != cert.Hash {
		t.Fatalf("certificate hash = %s, want %s", got.Hash, cert.Hash)
	}
}

func TestHandleGetCertificateNotFound(t *testing.T) {
	_, vk, store := testGenesisChain(t)
	handlers := NewHandlers(store, verification.New(nil), vk, nil, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/missing", nil)
	rec := httptest.NewRecorder()
	handlers.HandleGetCertificate(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleVerifyChainRejectsGet(t *testing.T) {
	_, vk, store := testGenesisChain(t)
	handlers := NewHandlers(store, verification.New(nil), vk, nil, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chains/abc/verify", nil)
	rec := httptest.NewRecorder()
	handlers.HandleVerifyChain(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
