package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus bridge order lifecycle status
type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"       // created, source funds not locked yet
	OrderStatusLocked       OrderStatus = "locked"        // source funds locked, LockTxHash recorded
	OrderStatusProofPending OrderStatus = "proof_pending" // proof generation in flight (privacy-routed orders)
	OrderStatusMinting      OrderStatus = "minting"       // proof verified, destination mint in flight
	OrderStatusCompleted    OrderStatus = "completed"     // destination mint confirmed, MintTxHash recorded
	OrderStatusFailed       OrderStatus = "failed"        // terminal failure, see FailReason
	OrderStatusDisputed     OrderStatus = "disputed"      // escalated for manual resolution
	OrderStatusRolledBack   OrderStatus = "rolled_back"   // dispute resolved by returning source funds
)

// IsTerminal reports whether no further automatic transition may leave s.
// Disputed is non-terminal: an operator can still move it to rolled_back.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusFailed, OrderStatusRolledBack:
		return true
	}
	return false
}

// FailReason terminal failure reasons
type FailReason string

const (
	FailReasonExpired                 FailReason = "expired"
	FailReasonProofVerificationFailed FailReason = "proof_verification_failed"
	FailReasonManual                  FailReason = "manual"
)

// BridgeOrder tracks a single cross-chain value transfer end to end.
// ToAmount is computed server-side at creation (Amount × ExchangeRate) and
// never mutated afterwards.
type BridgeOrder struct {
	ID string `json:"id" gorm:"primaryKey"` // UUID

	FromChain          string `json:"from_chain" gorm:"size:50;not null;index"`
	ToChain            string `json:"to_chain" gorm:"size:50;not null;index"`
	FromToken          string `json:"from_token" gorm:"size:50;not null"`
	ToToken            string `json:"to_token" gorm:"size:50;not null"`
	FromAddress        string `json:"from_address" gorm:"size:128;not null"`
	DestinationAddress string `json:"destination_address" gorm:"size:128;not null"`
	UserID             string `json:"user_id" gorm:"size:64;index"`

	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(38,18);not null"`
	ExchangeRate decimal.Decimal `json:"exchange_rate" gorm:"type:numeric(38,18);not null"`
	ToAmount     decimal.Decimal `json:"to_amount" gorm:"type:numeric(38,18);not null"`

	Status     OrderStatus `json:"status" gorm:"size:20;not null;default:'pending';index"`
	FailReason FailReason  `json:"fail_reason,omitempty" gorm:"size:40"`

	// Evidence recorded as the order advances; a transition never commits
	// without the evidence its target state requires
	LockTxHash     string `json:"lock_tx_hash,omitempty" gorm:"size:128"`
	MintTxHash     string `json:"mint_tx_hash,omitempty" gorm:"size:128"`
	ReleaseTxHash  string `json:"release_tx_hash,omitempty" gorm:"size:128"` // set on rollback
	ProofID        string `json:"proof_id,omitempty" gorm:"size:128"`
	ViewingKeyHash string `json:"viewing_key_hash,omitempty" gorm:"size:128"`

	// Privacy routing options captured at creation
	PrivacyRouted     bool `json:"privacy_routed" gorm:"not null;default:false"`
	ViewingKeyAudited bool `json:"viewing_key_audited" gorm:"not null;default:false"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"not null;index"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
}

// TableName sets the table name
func (BridgeOrder) TableName() string {
	return "bridge_orders"
}
