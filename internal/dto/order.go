package dto

import (
	"time"

	"bridge-backend/internal/models"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest request body for creating a bridge order
type CreateOrderRequest struct {
	FromChain          string          `json:"from_chain" binding:"required"`
	ToChain            string          `json:"to_chain" binding:"required"`
	FromToken          string          `json:"from_token" binding:"required"`
	ToToken            string          `json:"to_token" binding:"required"`
	FromAddress        string          `json:"from_address" binding:"required"`
	DestinationAddress string          `json:"destination_address" binding:"required"`
	Amount             decimal.Decimal `json:"amount" binding:"required"`
	ExchangeRate       decimal.Decimal `json:"exchange_rate" binding:"required"`
	ExpiresInMinutes   int             `json:"expires_in_minutes"`

	RequireProofVerification bool   `json:"require_proof_verification"`
	ViewingKey               string `json:"viewing_key"`
	EnableViewingKeyAudit    bool   `json:"enable_viewing_key_audit"`
}

// SubmitProofRequest request body for the proof step of a privacy-routed order
type SubmitProofRequest struct {
	ProgramRef string            `json:"program_ref"`
	Inputs     map[string]string `json:"inputs"`
	Outputs    map[string]string `json:"outputs"`
}

// ResolveDisputeRequest request body for resolving a disputed order
type ResolveDisputeRequest struct {
	Note string `json:"note"`
}

// OrderResponse API view of a bridge order. The viewing key hash is exposed,
// the raw viewing key never exists server-side.
type OrderResponse struct {
	BridgeID           string          `json:"bridge_id"`
	Status             string          `json:"status"`
	FromChain          string          `json:"from_chain"`
	ToChain            string          `json:"to_chain"`
	FromToken          string          `json:"from_token"`
	ToToken            string          `json:"to_token"`
	FromAddress        string          `json:"from_address"`
	DestinationAddress string          `json:"destination_address"`
	Amount             decimal.Decimal `json:"amount"`
	ExchangeRate       decimal.Decimal `json:"exchange_rate"`
	ToAmount           decimal.Decimal `json:"to_amount"`
	FailReason         string          `json:"fail_reason,omitempty"`
	LockTxHash         string          `json:"lock_tx_hash,omitempty"`
	MintTxHash         string          `json:"mint_tx_hash,omitempty"`
	ReleaseTxHash      string          `json:"release_tx_hash,omitempty"`
	ProofID            string          `json:"proof_id,omitempty"`
	ViewingKeyHash     string          `json:"viewing_key_hash,omitempty"`
	PrivacyRouted      bool            `json:"privacy_routed"`
	CreatedAt          time.Time       `json:"created_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	FailedAt           *time.Time      `json:"failed_at,omitempty"`
}

// NewOrderResponse maps the persistence model to its API view
func NewOrderResponse(order *models.BridgeOrder) *OrderResponse {
	return &OrderResponse{
		BridgeID:           order.ID,
		Status:             string(order.Status),
		FromChain:          order.FromChain,
		ToChain:            order.ToChain,
		FromToken:          order.FromToken,
		ToToken:            order.ToToken,
		FromAddress:        order.FromAddress,
		DestinationAddress: order.DestinationAddress,
		Amount:             order.Amount,
		ExchangeRate:       order.ExchangeRate,
		ToAmount:           order.ToAmount,
		FailReason:         string(order.FailReason),
		LockTxHash:         order.LockTxHash,
		MintTxHash:         order.MintTxHash,
		ReleaseTxHash:      order.ReleaseTxHash,
		ProofID:            order.ProofID,
		ViewingKeyHash:     order.ViewingKeyHash,
		PrivacyRouted:      order.PrivacyRouted,
		CreatedAt:          order.CreatedAt,
		ExpiresAt:          order.ExpiresAt,
		CompletedAt:        order.CompletedAt,
		FailedAt:           order.FailedAt,
	}
}

// OrderListResponse paginated list of orders
type OrderListResponse struct {
	Success    bool             `json:"success"`
	Orders     []*OrderResponse `json:"orders"`
	Pagination Pagination       `json:"pagination"`
}
