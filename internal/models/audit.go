package models

import "time"

// AuditAction the sensitive operation an audit entry records
type AuditAction string

const (
	AuditActionViewingKeyDisclosed AuditAction = "viewing_key_disclosed"
	AuditActionProofSubmitted      AuditAction = "proof_submitted"
)

// AuditEntry is an append-only record of a sensitive operation.
// Rows are never updated or deleted; corrections append new entries.
type AuditEntry struct {
	ID               string      `json:"id" gorm:"primaryKey"` // UUID
	TransactionID    string      `json:"transaction_id" gorm:"size:128;not null;index"`
	Action           AuditAction `json:"action" gorm:"size:40;not null;index"`
	SourceChain      string      `json:"source_chain" gorm:"size:50;not null"`
	DestinationChain string      `json:"destination_chain" gorm:"size:50;not null"`
	DestinationAddr  string      `json:"destination_address" gorm:"size:128;not null"`
	UserID           string      `json:"user_id,omitempty" gorm:"size:64;index"`
	ViewingKeyHash   string      `json:"viewing_key_hash,omitempty" gorm:"size:128"`
	Notes            string      `json:"notes,omitempty" gorm:"size:500"`
	Timestamp        time.Time   `json:"timestamp" gorm:"autoCreateTime;index"`
}

// TableName sets the table name
func (AuditEntry) TableName() string {
	return "audit_entries"
}
