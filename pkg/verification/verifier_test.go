// Copyright 2025 Certen Protocol

package verification

import (
	"errors"
	"testing"

	"github.com/certen/mithril-verifier/pkg/entities"
	"github.com/certen/mithril-verifier/pkg/genesissig"
	"github.com/certen/mithril-verifier/pkg/stm"
)

func TestVerifyGenesisAccepts(t *testing.T) {
	vk, priv, err := genesissig.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	message := "deadbeef"
	sig := genesissig.Sign(priv, []byte(message))

	cert := entities.Certificate{
		Hash:          "cert-1",
		SignedMessage: message,
		Signature:     entities.NewGenesisSignature(sig),
	}

	v := New(nil)
	if err := v.VerifyGenesis(cert, vk); err != nil {
		t.Fatalf("expected genesis verification to succeed, got %v", err)
	}
}

func TestVerifyGenesisRejectsWrongKey(t *testing.T) {
	_, priv, err := genesissig.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	otherVK, _, err := genesissig.GenerateKey()
	if err != nil {
		t.Fatalf("generate other key: %v", err)
	}
	message := "deadbeef"
	sig := genesissig.Sign(priv, []byte(message))

	cert := entities.Certificate{
		SignedMessage: message,
		Signature:     entities.NewGenesisSignature(sig),
	}

	v := New(nil)
	err = v.VerifyGenesis(cert, otherVK)
	if !errors.Is(err, ErrInvalidGenesisSignature) {
		t.Fatalf("expected ErrInvalidGenesisSignature, got %v", err)
	}
}

func TestVerifyGenesisRejectsNonGenesisVariant(t *testing.T) {
	cert := entities.Certificate{
		Signature: entities.NewMultiSignature([]byte{0x01}),
	}
	v := New(nil)
	if err := v.VerifyGenesis(cert, nil); !errors.Is(err, ErrNotAGenesisCertificate) {
		t.Fatalf("expected ErrNotAGenesisCertificate, got %v", err)
	}
}

func TestVerifyMultiWrapsSTMError(t *testing.T) {
	reg := stm.NewKeyRegistration()
	priv, pub := stm.GenerateKeyPairFromSeed([]byte("party-seed"))
	if err := reg.Register("pool-1", 100, pub); err != nil {
		t.Fatalf("register: %v", err)
	}
	avk, err := reg.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	ms := &stm.MultiSignature{Signers: []stm.SignerEntry{
		{PartyID: "pool-1", Signature: priv.Sign([]byte("tampered"))},
	}}

	cert := entities.Certificate{
		Hash:                     "cert-2",
		SignedMessage:            "original",
		AggregateVerificationKey: avk,
		Metadata:                 entities.CertificateMetadata{Parameters: entities.ProtocolParameters{K: 1, M: 1, PhiF: 0.8}},
		Signature:                entities.NewMultiSignature(ms.Encode()),
	}

	v := New(nil)
	err = v.VerifyMulti(cert)
	var wrapped *VerifyMultiSignatureError
	if !errors.As(err, &wrapped) {
		t.Fatalf("expected *VerifyMultiSignatureError, got %T: %v", err, err)
	}
}
