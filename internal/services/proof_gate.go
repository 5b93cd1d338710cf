package services

import (
	"context"
	"log"
	"time"

	"bridge-backend/internal/clients"
	"bridge-backend/internal/metrics"
)

// ProofBackend is the proof service surface the gate depends on; the HTTP
// client in internal/clients implements it
type ProofBackend interface {
	GenerateProof(ctx context.Context, req *clients.GenerateProofRequest) (*clients.Proof, error)
	VerifyProof(ctx context.Context, proof *clients.Proof) (bool, error)
}

// ProofGate generates a proof and verifies that exact artifact before any
// destination-chain effect is allowed. No caller receives a proof from this
// gate without it having passed verification.
type ProofGate struct {
	backend ProofBackend
}

// NewProofGate creates a new proof gate
func NewProofGate(backend ProofBackend) *ProofGate {
	return &ProofGate{backend: backend}
}

// GenerateAndVerify generates a proof for the given program execution and
// verifies it. A generation failure is a retriable remote failure; a
// verification error or rejection is definitive for this proof instance and
// is never retried here, a fresh proof must be generated from scratch.
func (g *ProofGate) GenerateAndVerify(ctx context.Context, req *clients.GenerateProofRequest) (*clients.Proof, error) {
	start := time.Now()

	proof, err := g.backend.GenerateProof(ctx, req)
	if err != nil {
		metrics.ProofGenerations.WithLabelValues("generation_failed").Inc()
		return nil, newRemoteCallError("proof generation failed", err)
	}
	metrics.ProofGenerations.WithLabelValues("generated").Inc()

	valid, err := g.backend.VerifyProof(ctx, proof)
	if err != nil {
		metrics.ProofGenerations.WithLabelValues("verify_error").Inc()
		return nil, newProofVerificationError("proof verification errored", err)
	}
	if !valid {
		metrics.ProofGenerations.WithLabelValues("rejected").Inc()
		log.Printf("❌ [ProofGate] Proof %s rejected by verifier", proof.ProofID)
		return nil, newProofVerificationError("proof rejected by verifier", nil)
	}

	metrics.ProofGenerations.WithLabelValues("verified").Inc()
	metrics.ProofDuration.Observe(time.Since(start).Seconds())
	log.Printf("✅ [ProofGate] Proof %s verified in %.1fs", proof.ProofID, time.Since(start).Seconds())
	return proof, nil
}
