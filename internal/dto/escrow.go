package dto

import (
	"time"

	"bridge-backend/internal/models"

	"github.com/shopspring/decimal"
)

// CreateEscrowRequest request body for creating an escrow; the payer is the
// authenticated caller
type CreateEscrowRequest struct {
	PayeeAvatarID string            `json:"payee_avatar_id" binding:"required"`
	PayerAddress  string            `json:"payer_address" binding:"required"`
	PayeeAddress  string            `json:"payee_address" binding:"required"`
	Approvers     []string          `json:"approvers"`
	Amount        decimal.Decimal   `json:"amount" binding:"required"`
	Currency      string            `json:"currency" binding:"required"`
	Chain         string            `json:"chain" binding:"required"`
	Conditions    map[string]string `json:"conditions"`
	ReleaseDate   *time.Time        `json:"release_date"`
}

// DisputeEscrowRequest request body for raising an escrow dispute
type DisputeEscrowRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ResolveEscrowRequest request body for settling a disputed escrow
type ResolveEscrowRequest struct {
	Resolution string `json:"resolution" binding:"required"` // "release" or "refund"
}

// EscrowResponse API view of an escrow
type EscrowResponse struct {
	EscrowID      string            `json:"escrow_id"`
	Status        string            `json:"status"`
	PayerAvatarID string            `json:"payer_avatar_id"`
	PayeeAvatarID string            `json:"payee_avatar_id"`
	Approvers     []string          `json:"approvers"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Chain         string            `json:"chain"`
	Conditions    map[string]string `json:"conditions,omitempty"`
	ReleaseDate   *time.Time        `json:"release_date,omitempty"`
	FundTxHash    string            `json:"fund_tx_hash,omitempty"`
	ReleaseTxHash string            `json:"release_tx_hash,omitempty"`
	RefundTxHash  string            `json:"refund_tx_hash,omitempty"`
	DisputeReason string            `json:"dispute_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	FundedDate    *time.Time        `json:"funded_date,omitempty"`
	ReleasedDate  *time.Time        `json:"released_date,omitempty"`
}

// NewEscrowResponse maps the persistence model to its API view
func NewEscrowResponse(escrow *models.Escrow) *EscrowResponse {
	return &EscrowResponse{
		EscrowID:      escrow.ID,
		Status:        string(escrow.Status),
		PayerAvatarID: escrow.PayerAvatarID,
		PayeeAvatarID: escrow.PayeeAvatarID,
		Approvers:     escrow.ApproverList(),
		Amount:        escrow.Amount,
		Currency:      escrow.Currency,
		Chain:         escrow.Chain,
		Conditions:    escrow.ConditionMap(),
		ReleaseDate:   escrow.ReleaseDate,
		FundTxHash:    escrow.FundTxHash,
		ReleaseTxHash: escrow.ReleaseTxHash,
		RefundTxHash:  escrow.RefundTxHash,
		DisputeReason: escrow.DisputeReason,
		CreatedAt:     escrow.CreatedAt,
		FundedDate:    escrow.FundedDate,
		ReleasedDate:  escrow.ReleasedDate,
	}
}
