// Package clients provides HTTP clients for external services
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ProofClient talks to the proof service that generates and verifies
// STARK-style proofs
type ProofClient struct {
	BaseURL string
	Client  *http.Client
}

// NewProofClient creates a new proof service client. timeout bounds a single
// call; proof generation is slow, so callers should pass the configured
// proof timeout rather than the gateway default.
func NewProofClient(baseURL string, timeout time.Duration) *ProofClient {
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return &ProofClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// GenerateProofRequest asks the proof service to prove a program execution
type GenerateProofRequest struct {
	ProgramRef string            `json:"program_ref"`
	Inputs     map[string]string `json:"inputs"`
	Outputs    map[string]string `json:"outputs"`
}

// Proof is the artifact returned by the proof service
type Proof struct {
	ProofID      string `json:"proof_id"`
	ProofData    string `json:"proof_data"`
	PublicInputs string `json:"public_inputs"`
	ProgramHash  string `json:"program_hash"`
}

// generateProofResponse wire shape of the generate endpoint
type generateProofResponse struct {
	Success      bool    `json:"success"`
	Proof        *Proof  `json:"proof"`
	ErrorMessage *string `json:"error_message"`
}

// verifyProofResponse wire shape of the verify endpoint
type verifyProofResponse struct {
	Success      bool    `json:"success"`
	Valid        bool    `json:"valid"`
	ErrorMessage *string `json:"error_message"`
}

// GenerateProof generates a proof for the given program execution
func (c *ProofClient) GenerateProof(ctx context.Context, req *GenerateProofRequest) (*Proof, error) {
	body, err := c.post(ctx, "/api/proof/generate", req)
	if err != nil {
		return nil, err
	}

	var result generateProofResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Success || result.Proof == nil {
		msg := "unknown error"
		if result.ErrorMessage != nil {
			msg = *result.ErrorMessage
		}
		return nil, fmt.Errorf("proof generation failed: %s", msg)
	}

	log.Printf("✅ [Proof] Generated proof %s for program %s", result.Proof.ProofID, req.ProgramRef)
	return result.Proof, nil
}

// VerifyProof verifies the exact proof artifact previously generated.
// A false return is a definitive rejection of this proof instance, not a
// transient failure.
func (c *ProofClient) VerifyProof(ctx context.Context, proof *Proof) (bool, error) {
	body, err := c.post(ctx, "/api/proof/verify", proof)
	if err != nil {
		return false, err
	}

	var result verifyProofResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Success {
		msg := "unknown error"
		if result.ErrorMessage != nil {
			msg = *result.ErrorMessage
		}
		return false, fmt.Errorf("proof verification call failed: %s", msg)
	}
	return result.Valid, nil
}

func (c *ProofClient) post(ctx context.Context, path string, reqBody interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ [Proof] %s failed: status=%d", path, resp.StatusCode)
		return nil, fmt.Errorf("proof service returned error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
