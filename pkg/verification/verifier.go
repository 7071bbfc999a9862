// Copyright 2025 Certen Protocol
//
// Package verification dispatches signature verification for a
// certificate to either the genesis Ed25519 check or the stake-weighted
// STM multi-signature check, depending on the certificate's signature
// variant.
package verification

import (
	"log"
	"os"

	"github.com/certen/mithril-verifier/pkg/entities"
	"github.com/certen/mithril-verifier/pkg/genesissig"
	"github.com/certen/mithril-verifier/pkg/stm"
)

// SignatureVerifier verifies the two certificate signature variants.
// It holds no state beyond a logger; it is safe for concurrent use.
type SignatureVerifier struct {
	logger *log.Logger
}

// New constructs a SignatureVerifier. A nil logger defaults to a
// standard logger writing to stderr with a "[SignatureVerifier] "
// prefix.
func New(logger *log.Logger) *SignatureVerifier {
	if logger == nil {
		logger = log.New(os.Stderr, "[SignatureVerifier] ", log.LstdFlags)
	}
	return &SignatureVerifier{logger: logger}
}

// VerifyGenesis verifies cert's genesis signature against vk. The
// certificate's signature variant must be Genesis.
func (v *SignatureVerifier) VerifyGenesis(cert entities.Certificate, vk entities.GenesisVerificationKey) error {
	if !cert.Signature.IsGenesis() {
		return ErrNotAGenesisCertificate
	}
	ok, err := genesissig.Verify(vk, []byte(cert.SignedMessage), cert.Signature.Genesis)
	if err != nil {
		return err
	}
	if !ok {
		v.logger.Printf("genesis signature rejected for certificate %s", cert.Hash)
		return ErrInvalidGenesisSignature
	}
	return nil
}

// VerifyMulti verifies cert's multi-signature against its own AVK and
// protocol parameters. The certificate's signature variant must be
// Multi.
func (v *SignatureVerifier) VerifyMulti(cert entities.Certificate) error {
	if !cert.Signature.IsMulti() {
		return ErrNotAMultiSignatureCertificate
	}
	err := stm.Verify([]byte(cert.SignedMessage), cert.AggregateVerificationKey, cert.Metadata.Parameters, cert.Signature.Multi)
	if err != nil {
		v.logger.Printf("multi-signature rejected for certificate %s: %v", cert.Hash, err)
		return &VerifyMultiSignatureError{CertificateHash: cert.Hash, Detail: err}
	}
	return nil
}

// Verify dispatches to VerifyGenesis or VerifyMulti based on cert's
// signature variant.
func (v *SignatureVerifier) Verify(cert entities.Certificate, vk entities.GenesisVerificationKey) error {
	if cert.Signature.IsGenesis() {
		return v.VerifyGenesis(cert, vk)
	}
	return v.VerifyMulti(cert)
}
