package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bridge-backend/internal/config"

	"github.com/shopspring/decimal"
)

// rpcGateway implements ChainGateway over a chain node's JSON HTTP API.
// Used for non-EVM execution environments (shielded pools, STARK rollups)
// whose bridge nodes expose lock/release/mint endpoints directly.
type rpcGateway struct {
	chainName string
	baseURL   string
	client    *http.Client
}

func newRPCGateway(name string, cfg config.NetworkConfig, callTimeout time.Duration) *rpcGateway {
	baseURL := ""
	if len(cfg.RPCEndpoints) > 0 {
		baseURL = cfg.RPCEndpoints[0]
	}
	return &rpcGateway{
		chainName: name,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: callTimeout},
	}
}

type rpcTxRequest struct {
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Reference string `json:"reference,omitempty"`
	Evidence  string `json:"evidence,omitempty"`
}

type rpcTxResponse struct {
	TxHash       string  `json:"tx_hash"`
	Success      bool    `json:"success"`
	ErrorMessage *string `json:"error_message"`
}

type rpcBalanceResponse struct {
	Balance string `json:"balance"`
}

type rpcStatusResponse struct {
	Status string `json:"status"`
}

// Lock submits a lock request to the chain node
func (g *rpcGateway) Lock(ctx context.Context, address string, amount decimal.Decimal, reference string) (string, error) {
	return g.postTx(ctx, "/v1/lock", &rpcTxRequest{Address: address, Amount: amount.String(), Reference: reference})
}

// Release submits a release request to the chain node
func (g *rpcGateway) Release(ctx context.Context, address string, amount decimal.Decimal, reference string) (string, error) {
	return g.postTx(ctx, "/v1/release", &rpcTxRequest{Address: address, Amount: amount.String(), Reference: reference})
}

// Mint submits a mint request carrying proof evidence
func (g *rpcGateway) Mint(ctx context.Context, address string, amount decimal.Decimal, evidence string) (string, error) {
	return g.postTx(ctx, "/v1/mint", &rpcTxRequest{Address: address, Amount: amount.String(), Evidence: evidence})
}

func (g *rpcGateway) postTx(ctx context.Context, path string, reqBody *rpcTxRequest) (string, error) {
	body, err := g.post(ctx, path, reqBody)
	if err != nil {
		return "", err
	}

	var result rpcTxResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Success {
		msg := "unknown error"
		if result.ErrorMessage != nil {
			msg = *result.ErrorMessage
		}
		return "", fmt.Errorf("%s node rejected %s: %s", g.chainName, path, msg)
	}
	return result.TxHash, nil
}

// GetBalance reads the balance of address from the chain node
func (g *rpcGateway) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	body, err := g.post(ctx, "/v1/balance", map[string]string{"address": address})
	if err != nil {
		return decimal.Zero, err
	}

	var result rpcBalanceResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return decimal.Zero, fmt.Errorf("failed to unmarshal balance response: %w", err)
	}
	balance, err := decimal.NewFromString(result.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance %q from %s node: %w", result.Balance, g.chainName, err)
	}
	return balance, nil
}

// GetTransactionStatus reads the status of txHash from the chain node
func (g *rpcGateway) GetTransactionStatus(ctx context.Context, txHash string) (TxStatus, error) {
	body, err := g.post(ctx, "/v1/transaction-status", map[string]string{"tx_hash": txHash})
	if err != nil {
		return "", err
	}

	var result rpcStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal status response: %w", err)
	}
	switch result.Status {
	case "pending":
		return TxStatusPending, nil
	case "completed", "confirmed":
		return TxStatusCompleted, nil
	case "failed":
		return TxStatusFailed, nil
	default:
		return "", fmt.Errorf("unknown transaction status %q from %s node", result.Status, g.chainName)
	}
}

func (g *rpcGateway) post(ctx context.Context, path string, reqBody interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s node returned error (status %d): %s", g.chainName, resp.StatusCode, string(body))
	}
	return body, nil
}
