package services

import (
	"context"
	"errors"
	"testing"

	"bridge-backend/internal/clients"
)

func proofRequest() *clients.GenerateProofRequest {
	return &clients.GenerateProofRequest{
		ProgramRef: "bridge_transfer",
		Inputs:     map[string]string{"order_id": "order-1"},
	}
}

func TestProofGateHappyPath(t *testing.T) {
	backend := &fakeProofBackend{valid: true}
	gate := NewProofGate(backend)

	proof, err := gate.GenerateAndVerify(context.Background(), proofRequest())
	if err != nil {
		t.Fatalf("generate and verify: %v", err)
	}
	if proof.ProofID != "proof-1" {
		t.Fatalf("unexpected proof id %q", proof.ProofID)
	}
	if backend.generated != 1 || backend.verified != 1 {
		t.Fatalf("expected one generate and one verify, got %d/%d", backend.generated, backend.verified)
	}
}

func TestProofGateGenerationFailureIsRemote(t *testing.T) {
	backend := &fakeProofBackend{generateErr: errors.New("prover offline")}
	gate := NewProofGate(backend)

	_, err := gate.GenerateAndVerify(context.Background(), proofRequest())
	if !errors.Is(err, ErrRemoteCallFailed) {
		t.Fatalf("expected remote call failure, got %v", err)
	}
	if backend.verified != 0 {
		t.Fatal("verification must not run without a proof")
	}
}

func TestProofGateVerifyErrorIsDefinitive(t *testing.T) {
	backend := &fakeProofBackend{verifyErr: errors.New("verifier crashed")}
	gate := NewProofGate(backend)

	_, err := gate.GenerateAndVerify(context.Background(), proofRequest())
	if !errors.Is(err, ErrProofVerification) {
		t.Fatalf("expected proof verification error, got %v", err)
	}
}

func TestProofGateRejectionReturnsNoProof(t *testing.T) {
	backend := &fakeProofBackend{valid: false}
	gate := NewProofGate(backend)

	proof, err := gate.GenerateAndVerify(context.Background(), proofRequest())
	if !errors.Is(err, ErrProofVerification) {
		t.Fatalf("expected proof verification error, got %v", err)
	}
	if proof != nil {
		t.Fatal("a rejected proof must never reach the caller")
	}
}
