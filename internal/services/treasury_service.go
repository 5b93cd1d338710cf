package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"bridge-backend/internal/events"
	"bridge-backend/internal/gateway"
	"bridge-backend/internal/metrics"
	"bridge-backend/internal/models"
	"bridge-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// TreasuryService fans the main wallet balance out across budgeted category
// wallets. An allocation run reads the balance exactly once and computes
// every transfer from that snapshot, so the transfer total never exceeds
// what was observed even while deposits land mid-run.
type TreasuryService struct {
	treasuryRepo repository.TreasuryRepository
	gateways     *gateway.Registry
	publisher    *events.Publisher
}

// NewTreasuryService creates a new treasury service
func NewTreasuryService(treasuryRepo repository.TreasuryRepository, gateways *gateway.Registry, publisher *events.Publisher) *TreasuryService {
	return &TreasuryService{
		treasuryRepo: treasuryRepo,
		gateways:     gateways,
		publisher:    publisher,
	}
}

// CreateTreasuryInput parameters for creating a treasury
type CreateTreasuryInput struct {
	OwnerAvatarID    string
	Name             string
	Wallets          []TreasuryWalletInput
	Budgets          map[string]decimal.Decimal // category -> percentage
	WorkflowTrigger  models.WorkflowTrigger
	WorkflowInterval int // minutes, interval trigger only
}

// TreasuryWalletInput one wallet of a new treasury
type TreasuryWalletInput struct {
	Chain    string
	Address  string
	Category string
	IsMain   bool
}

// CreateTreasury validates and persists a treasury with its wallets.
// Exactly one wallet must be main, and budget percentages must sum to at
// most 100.
func (s *TreasuryService) CreateTreasury(ctx context.Context, input *CreateTreasuryInput) (*models.Treasury, error) {
	if input.OwnerAvatarID == "" {
		return nil, newValidationError("owner is required")
	}
	if input.Name == "" {
		return nil, newValidationError("name is required")
	}
	if len(input.Wallets) == 0 {
		return nil, newValidationError("at least one wallet is required")
	}

	mainCount := 0
	for _, w := range input.Wallets {
		if w.Chain == "" || w.Address == "" {
			return nil, newValidationError("every wallet needs a chain and an address")
		}
		if _, err := s.gateways.Get(w.Chain); err != nil {
			return nil, newValidationError("unsupported chain %q", w.Chain)
		}
		if w.IsMain {
			mainCount++
		}
	}
	if mainCount != 1 {
		return nil, newValidationError("exactly one wallet must be main, got %d", mainCount)
	}

	total := decimal.Zero
	for category, pct := range input.Budgets {
		if pct.IsNegative() {
			return nil, newValidationError("budget for %s must not be negative", category)
		}
		total = total.Add(pct)
	}
	if total.GreaterThan(oneHundred) {
		return nil, newValidationError("budget percentages sum to %s, must not exceed 100", total)
	}

	if input.WorkflowTrigger == "" {
		input.WorkflowTrigger = models.WorkflowTriggerManual
	}
	if input.WorkflowTrigger == models.WorkflowTriggerInterval && input.WorkflowInterval <= 0 {
		return nil, newValidationError("interval trigger requires a positive workflow_interval")
	}

	treasury := &models.Treasury{
		ID:               uuid.New().String(),
		OwnerAvatarID:    input.OwnerAvatarID,
		Name:             input.Name,
		WorkflowTrigger:  input.WorkflowTrigger,
		WorkflowInterval: input.WorkflowInterval,
	}
	if err := treasury.SetBudgets(input.Budgets); err != nil {
		return nil, fmt.Errorf("failed to encode budgets: %w", err)
	}
	for _, w := range input.Wallets {
		treasury.Wallets = append(treasury.Wallets, models.TreasuryWallet{
			ID:         uuid.New().String(),
			TreasuryID: treasury.ID,
			Chain:      w.Chain,
			Address:    w.Address,
			Category:   w.Category,
			IsMain:     w.IsMain,
		})
	}

	if err := s.treasuryRepo.Create(ctx, treasury); err != nil {
		return nil, fmt.Errorf("failed to create treasury: %w", err)
	}

	log.Printf("📋 [Treasury] Created %s (%s): %d wallets, %d budget categories",
		treasury.ID, treasury.Name, len(treasury.Wallets), len(input.Budgets))
	return treasury, nil
}

// GetTreasury retrieves a treasury with its wallets
func (s *TreasuryService) GetTreasury(ctx context.Context, treasuryID string) (*models.Treasury, error) {
	treasury, err := s.treasuryRepo.GetByID(ctx, treasuryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("treasury", treasuryID)
		}
		return nil, fmt.Errorf("failed to load treasury %s: %w", treasuryID, err)
	}
	return treasury, nil
}

// ListTreasuries lists treasuries owned by an avatar
func (s *TreasuryService) ListTreasuries(ctx context.Context, ownerAvatarID string) ([]*models.Treasury, error) {
	if ownerAvatarID == "" {
		return nil, newValidationError("owner is required")
	}
	return s.treasuryRepo.FindByOwner(ctx, ownerAvatarID)
}

// AllocationResult the outcome of one allocation run
type AllocationResult struct {
	TreasuryID string            `json:"treasury_id"`
	Snapshot   decimal.Decimal   `json:"snapshot"`  // main balance the run was computed from
	Transfers  map[string]string `json:"transfers"` // category -> txHash
	Amounts    map[string]string `json:"amounts"`   // category -> amount transferred
	Failed     []string          `json:"failed_categories,omitempty"`
	RanAt      time.Time         `json:"ran_at"`
}

// Complete reports whether every budgeted category was transferred
func (r *AllocationResult) Complete() bool {
	return len(r.Failed) == 0
}

// ExecuteFundAllocation runs one allocation: snapshot the main balance,
// compute each category's share from the snapshot, transfer sequentially.
// Failed categories are recorded for manual retry, they are never retried in
// the same run, and the result is persisted even after partial failure.
func (s *TreasuryService) ExecuteFundAllocation(ctx context.Context, treasuryID string) (*AllocationResult, error) {
	treasury, err := s.GetTreasury(ctx, treasuryID)
	if err != nil {
		return nil, err
	}

	main := treasury.MainWallet()
	if main == nil {
		return nil, newPreconditionError("treasury %s has no main wallet", treasury.ID)
	}
	budgets := treasury.BudgetMap()
	if len(budgets) == 0 {
		return nil, newPreconditionError("treasury %s has no budgets", treasury.ID)
	}

	gw, err := s.gateways.Get(main.Chain)
	if err != nil {
		return nil, newValidationError("unsupported chain %q", main.Chain)
	}

	snapshot, err := callChainBalance(ctx, s.gateways.CallTimeout(), main.Chain, func(callCtx context.Context) (decimal.Decimal, error) {
		return gw.GetBalance(callCtx, main.Address)
	})
	if err != nil {
		return nil, newRemoteCallError(fmt.Sprintf("balance read on %s failed", main.Chain), err)
	}

	result := &AllocationResult{
		TreasuryID: treasury.ID,
		Snapshot:   snapshot,
		Transfers:  make(map[string]string),
		Amounts:    make(map[string]string),
		RanAt:      time.Now(),
	}

	// Deterministic order so repeated runs over the same budgets behave
	// identically
	categories := make([]string, 0, len(budgets))
	for category := range budgets {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		amount := snapshot.Mul(budgets[category]).Div(oneHundred)
		if !amount.IsPositive() {
			continue
		}
		wallet := treasury.WalletForCategory(category)
		if wallet == nil {
			log.Printf("⚠️ [Treasury] %s: no wallet for category %s, skipping", treasury.ID, category)
			result.Failed = append(result.Failed, category)
			metrics.AllocationTransfers.WithLabelValues("no_wallet").Inc()
			continue
		}
		// Transfers go out through the main wallet's gateway; a destination on
		// another chain cannot be paid from this run
		if wallet.Chain != main.Chain {
			log.Printf("⚠️ [Treasury] %s: wallet for %s is on %s, main is on %s, skipping", treasury.ID, category, wallet.Chain, main.Chain)
			result.Failed = append(result.Failed, category)
			metrics.AllocationTransfers.WithLabelValues("chain_mismatch").Inc()
			continue
		}

		txHash, err := callChain(ctx, s.gateways.CallTimeout(), main.Chain, "release", func(callCtx context.Context) (string, error) {
			return gw.Release(callCtx, wallet.Address, amount, treasury.ID+":"+category)
		})
		if err != nil {
			log.Printf("❌ [Treasury] %s: transfer for %s failed: %v", treasury.ID, category, err)
			result.Failed = append(result.Failed, category)
			metrics.AllocationTransfers.WithLabelValues("error").Inc()
			continue
		}

		result.Transfers[category] = txHash
		result.Amounts[category] = amount.String()
		metrics.AllocationTransfers.WithLabelValues("success").Inc()
		log.Printf("📤 [Treasury] %s: %s %s -> %s (%s, tx %s)",
			treasury.ID, amount, main.Chain, wallet.Address, category, txHash)
	}

	s.recordRun(ctx, treasury.ID, result)

	outcome := "complete"
	if !result.Complete() {
		outcome = "partial"
		if len(result.Transfers) == 0 {
			outcome = "failed"
		}
	}
	metrics.AllocationRuns.WithLabelValues(outcome).Inc()
	s.publisher.PublishAllocationRun(&events.AllocationRunEvent{
		TreasuryID: treasury.ID,
		Transfers:  result.Transfers,
		Failed:     result.Failed,
		Timestamp:  result.RanAt,
	})

	log.Printf("✅ [Treasury] %s allocation %s: %d transferred, %d failed (snapshot %s)",
		treasury.ID, outcome, len(result.Transfers), len(result.Failed), snapshot)
	return result, nil
}

// WalletBalance one wallet's balance in a summary
type WalletBalance struct {
	WalletID string          `json:"wallet_id"`
	Chain    string          `json:"chain"`
	Address  string          `json:"address"`
	Category string          `json:"category,omitempty"`
	IsMain   bool            `json:"is_main"`
	Balance  decimal.Decimal `json:"balance"`
	Failed   bool            `json:"failed,omitempty"` // balance read failed, excluded from Total
}

// BalanceSummary aggregated balances across a treasury's wallets
type BalanceSummary struct {
	TreasuryID string          `json:"treasury_id"`
	Total      decimal.Decimal `json:"total"`
	Wallets    []WalletBalance `json:"wallets"`
}

// GetBalanceSummary reads every wallet's balance. Unreachable wallets are
// reported but skipped, a partial summary is better than none.
func (s *TreasuryService) GetBalanceSummary(ctx context.Context, treasuryID string) (*BalanceSummary, error) {
	treasury, err := s.GetTreasury(ctx, treasuryID)
	if err != nil {
		return nil, err
	}

	summary := &BalanceSummary{
		TreasuryID: treasury.ID,
		Total:      decimal.Zero,
	}
	for i := range treasury.Wallets {
		wallet := &treasury.Wallets[i]
		wb := WalletBalance{
			WalletID: wallet.ID,
			Chain:    wallet.Chain,
			Address:  wallet.Address,
			Category: wallet.Category,
			IsMain:   wallet.IsMain,
		}

		gw, err := s.gateways.Get(wallet.Chain)
		if err != nil {
			wb.Failed = true
			summary.Wallets = append(summary.Wallets, wb)
			continue
		}
		balance, err := callChainBalance(ctx, s.gateways.CallTimeout(), wallet.Chain, func(callCtx context.Context) (decimal.Decimal, error) {
			return gw.GetBalance(callCtx, wallet.Address)
		})
		if err != nil {
			log.Printf("⚠️ [Treasury] %s: balance read for wallet %s failed: %v", treasury.ID, wallet.ID, err)
			wb.Failed = true
			summary.Wallets = append(summary.Wallets, wb)
			continue
		}

		wb.Balance = balance
		summary.Total = summary.Total.Add(balance)
		summary.Wallets = append(summary.Wallets, wb)
	}

	return summary, nil
}

// recordRun persists the allocation result; a persistence failure is logged,
// the chain transfers already happened and must not be reported as failed
func (s *TreasuryService) recordRun(ctx context.Context, treasuryID string, result *AllocationResult) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("❌ [Treasury] %s: failed to marshal allocation result: %v", treasuryID, err)
		return
	}
	if err := s.treasuryRepo.RecordAllocation(ctx, treasuryID, string(data), result.RanAt); err != nil {
		log.Printf("❌ [Treasury] %s: failed to persist allocation result: %v", treasuryID, err)
	}
}
