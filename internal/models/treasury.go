package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// WorkflowTrigger treasury workflow trigger kinds
type WorkflowTrigger string

const (
	WorkflowTriggerManual   WorkflowTrigger = "manual"
	WorkflowTriggerInterval WorkflowTrigger = "interval"
)

// Treasury owns a main wallet whose balance is periodically fanned out
// across budgeted destination wallets
type Treasury struct {
	ID            string `json:"id" gorm:"primaryKey"` // UUID
	OwnerAvatarID string `json:"owner_avatar_id" gorm:"size:64;not null;index"`
	Name          string `json:"name" gorm:"size:100;not null"`

	Wallets []TreasuryWallet `json:"wallets" gorm:"foreignKey:TreasuryID"`

	// Budgets maps category -> percentage of the main wallet balance.
	// Stored as a JSON object; percentages must sum to at most 100.
	Budgets string `json:"-" gorm:"type:text;not null"`

	WorkflowTrigger  WorkflowTrigger `json:"workflow_trigger" gorm:"size:20;not null;default:'manual'"`
	WorkflowInterval int             `json:"workflow_interval"` // minutes, interval trigger only

	// LastAllocationResult records the category -> txHash map of the most
	// recent run, including its partial failures, as a JSON object
	LastAllocationResult string     `json:"-" gorm:"type:text"`
	LastAllocationDate   *time.Time `json:"last_allocation_date,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name
func (Treasury) TableName() string {
	return "treasuries"
}

// BudgetMap decodes the category -> percentage budgets
func (t *Treasury) BudgetMap() map[string]decimal.Decimal {
	budgets := make(map[string]decimal.Decimal)
	if t.Budgets == "" {
		return budgets
	}
	raw := make(map[string]string)
	if err := json.Unmarshal([]byte(t.Budgets), &raw); err != nil {
		return budgets
	}
	for category, pct := range raw {
		d, err := decimal.NewFromString(pct)
		if err != nil {
			continue
		}
		budgets[category] = d
	}
	return budgets
}

// SetBudgets encodes the budgets map for storage
func (t *Treasury) SetBudgets(budgets map[string]decimal.Decimal) error {
	raw := make(map[string]string, len(budgets))
	for category, pct := range budgets {
		raw[category] = pct.String()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	t.Budgets = string(data)
	return nil
}

// MainWallet returns the wallet flagged as main, or nil
func (t *Treasury) MainWallet() *TreasuryWallet {
	for i := range t.Wallets {
		if t.Wallets[i].IsMain {
			return &t.Wallets[i]
		}
	}
	return nil
}

// WalletForCategory returns the destination wallet for a budget category, or nil
func (t *Treasury) WalletForCategory(category string) *TreasuryWallet {
	for i := range t.Wallets {
		if !t.Wallets[i].IsMain && t.Wallets[i].Category == category {
			return &t.Wallets[i]
		}
	}
	return nil
}

// TreasuryWallet is one wallet owned by a treasury; exactly one per treasury
// carries IsMain
type TreasuryWallet struct {
	ID         string `json:"id" gorm:"primaryKey"` // UUID
	TreasuryID string `json:"treasury_id" gorm:"size:64;not null;index"`
	Chain      string `json:"chain" gorm:"size:50;not null"`
	Address    string `json:"address" gorm:"size:128;not null"`
	Category   string `json:"category" gorm:"size:50"` // budget category served by this wallet
	IsMain     bool   `json:"is_main" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name
func (TreasuryWallet) TableName() string {
	return "treasury_wallets"
}
