package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EscrowStatus escrow lifecycle status
type EscrowStatus string

const (
	EscrowStatusPending   EscrowStatus = "pending"   // created, not funded yet
	EscrowStatusFunded    EscrowStatus = "funded"    // payer funds locked on chain
	EscrowStatusReleased  EscrowStatus = "released"  // funds transferred to payee
	EscrowStatusCancelled EscrowStatus = "cancelled" // cancelled before release
	EscrowStatusDisputed  EscrowStatus = "disputed"  // a party raised a dispute
)

// Escrow holds funds pending a conditional, approver-gated release.
// Approvers and Conditions are stored as JSON strings; release never depends
// on re-parsing Conditions (it is an opaque annotation bag).
type Escrow struct {
	ID string `json:"id" gorm:"primaryKey"` // UUID

	PayerAvatarID string `json:"payer_avatar_id" gorm:"size:64;not null;index"`
	PayeeAvatarID string `json:"payee_avatar_id" gorm:"size:64;not null;index"`
	PayerAddress  string `json:"payer_address" gorm:"size:128;not null"`
	PayeeAddress  string `json:"payee_address" gorm:"size:128;not null"`
	Approvers     string `json:"-" gorm:"type:text;not null"` // JSON array of avatar ids

	Amount   decimal.Decimal `json:"amount" gorm:"type:numeric(38,18);not null"`
	Currency string          `json:"currency" gorm:"size:20;not null"`
	Chain    string          `json:"chain" gorm:"size:50;not null"`

	Conditions  string     `json:"-" gorm:"type:text"` // opaque JSON key/value bag
	ReleaseDate *time.Time `json:"release_date,omitempty"`

	Status EscrowStatus `json:"status" gorm:"size:20;not null;default:'pending';index"`

	FundTxHash    string `json:"fund_tx_hash,omitempty" gorm:"size:128"`
	ReleaseTxHash string `json:"release_tx_hash,omitempty" gorm:"size:128"`
	RefundTxHash  string `json:"refund_tx_hash,omitempty" gorm:"size:128"`
	DisputeReason string `json:"dispute_reason,omitempty" gorm:"size:500"`

	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	FundedDate   *time.Time `json:"funded_date,omitempty"`
	ReleasedDate *time.Time `json:"released_date,omitempty"`
}

// TableName sets the table name
func (Escrow) TableName() string {
	return "escrows"
}

// ApproverList decodes the stored approver set
func (e *Escrow) ApproverList() []string {
	var approvers []string
	if e.Approvers == "" {
		return approvers
	}
	if err := json.Unmarshal([]byte(e.Approvers), &approvers); err != nil {
		return nil
	}
	return approvers
}

// SetApprovers encodes the approver set for storage
func (e *Escrow) SetApprovers(approvers []string) error {
	data, err := json.Marshal(approvers)
	if err != nil {
		return err
	}
	e.Approvers = string(data)
	return nil
}

// HasApprover reports whether avatarID is a member of the approver set
func (e *Escrow) HasApprover(avatarID string) bool {
	for _, a := range e.ApproverList() {
		if a == avatarID {
			return true
		}
	}
	return false
}

// ConditionMap decodes the opaque conditions bag
func (e *Escrow) ConditionMap() map[string]string {
	conditions := make(map[string]string)
	if e.Conditions == "" {
		return conditions
	}
	if err := json.Unmarshal([]byte(e.Conditions), &conditions); err != nil {
		return map[string]string{}
	}
	return conditions
}

// SetConditions encodes the conditions bag for storage
func (e *Escrow) SetConditions(conditions map[string]string) error {
	if len(conditions) == 0 {
		e.Conditions = ""
		return nil
	}
	data, err := json.Marshal(conditions)
	if err != nil {
		return err
	}
	e.Conditions = string(data)
	return nil
}
