package dto

import (
	"time"

	"bridge-backend/internal/models"

	"github.com/shopspring/decimal"
)

// TreasuryWalletRequest one wallet of a new treasury
type TreasuryWalletRequest struct {
	Chain    string `json:"chain" binding:"required"`
	Address  string `json:"address" binding:"required"`
	Category string `json:"category"`
	IsMain   bool   `json:"is_main"`
}

// CreateTreasuryRequest request body for creating a treasury
type CreateTreasuryRequest struct {
	Name             string                     `json:"name" binding:"required"`
	Wallets          []TreasuryWalletRequest    `json:"wallets" binding:"required"`
	Budgets          map[string]decimal.Decimal `json:"budgets"` // category -> percentage
	WorkflowTrigger  string                     `json:"workflow_trigger"`
	WorkflowInterval int                        `json:"workflow_interval"` // minutes
}

// TreasuryWalletResponse API view of one treasury wallet
type TreasuryWalletResponse struct {
	WalletID string `json:"wallet_id"`
	Chain    string `json:"chain"`
	Address  string `json:"address"`
	Category string `json:"category,omitempty"`
	IsMain   bool   `json:"is_main"`
}

// TreasuryResponse API view of a treasury
type TreasuryResponse struct {
	TreasuryID         string                     `json:"treasury_id"`
	OwnerAvatarID      string                     `json:"owner_avatar_id"`
	Name               string                     `json:"name"`
	Wallets            []TreasuryWalletResponse   `json:"wallets"`
	Budgets            map[string]decimal.Decimal `json:"budgets"`
	WorkflowTrigger    string                     `json:"workflow_trigger"`
	WorkflowInterval   int                        `json:"workflow_interval,omitempty"`
	LastAllocationDate *time.Time                 `json:"last_allocation_date,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
}

// NewTreasuryResponse maps the persistence model to its API view
func NewTreasuryResponse(treasury *models.Treasury) *TreasuryResponse {
	resp := &TreasuryResponse{
		TreasuryID:         treasury.ID,
		OwnerAvatarID:      treasury.OwnerAvatarID,
		Name:               treasury.Name,
		Budgets:            treasury.BudgetMap(),
		WorkflowTrigger:    string(treasury.WorkflowTrigger),
		WorkflowInterval:   treasury.WorkflowInterval,
		LastAllocationDate: treasury.LastAllocationDate,
		CreatedAt:          treasury.CreatedAt,
	}
	for _, w := range treasury.Wallets {
		resp.Wallets = append(resp.Wallets, TreasuryWalletResponse{
			WalletID: w.ID,
			Chain:    w.Chain,
			Address:  w.Address,
			Category: w.Category,
			IsMain:   w.IsMain,
		})
	}
	return resp
}
