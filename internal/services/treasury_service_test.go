package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"bridge-backend/internal/gateway"
	"bridge-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeTreasuryRepo in-memory TreasuryRepository
type fakeTreasuryRepo struct {
	mu         sync.Mutex
	treasuries map[string]*models.Treasury

	lastResultJSON string
	lastRanAt      time.Time
	recordCalls    int
}

func newFakeTreasuryRepo() *fakeTreasuryRepo {
	return &fakeTreasuryRepo{treasuries: make(map[string]*models.Treasury)}
}

func (f *fakeTreasuryRepo) Create(ctx context.Context, treasury *models.Treasury) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *treasury
	f.treasuries[treasury.ID] = &clone
	return nil
}

func (f *fakeTreasuryRepo) GetByID(ctx context.Context, id string) (*models.Treasury, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	treasury, ok := f.treasuries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *treasury
	return &clone, nil
}

func (f *fakeTreasuryRepo) FindByOwner(ctx context.Context, ownerAvatarID string) ([]*models.Treasury, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Treasury
	for _, treasury := range f.treasuries {
		if treasury.OwnerAvatarID == ownerAvatarID {
			clone := *treasury
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeTreasuryRepo) FindIntervalTriggered(ctx context.Context) ([]*models.Treasury, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Treasury
	for _, treasury := range f.treasuries {
		if treasury.WorkflowTrigger == models.WorkflowTriggerInterval {
			clone := *treasury
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeTreasuryRepo) RecordAllocation(ctx context.Context, id string, resultJSON string, ranAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordCalls++
	f.lastResultJSON = resultJSON
	f.lastRanAt = ranAt
	if treasury, ok := f.treasuries[id]; ok {
		treasury.LastAllocationResult = resultJSON
		treasury.LastAllocationDate = &ranAt
	}
	return nil
}

type treasuryFixture struct {
	service *TreasuryService
	repo    *fakeTreasuryRepo
	chain   *fakeChainGateway
}

func newTreasuryFixture() *treasuryFixture {
	repo := newFakeTreasuryRepo()
	chain := &fakeChainGateway{balance: decimal.RequireFromString("1000")}
	registry := gateway.NewRegistryWithGateways(map[string]gateway.ChainGateway{
		"ethereum": chain,
	})
	return &treasuryFixture{
		service: NewTreasuryService(repo, registry, nil),
		repo:    repo,
		chain:   chain,
	}
}

func validTreasuryInput() *CreateTreasuryInput {
	return &CreateTreasuryInput{
		OwnerAvatarID: "owner",
		Name:          "Ops Treasury",
		Wallets: []TreasuryWalletInput{
			{Chain: "ethereum", Address: "0xmain", IsMain: true},
			{Chain: "ethereum", Address: "0xdev", Category: "development"},
			{Chain: "ethereum", Address: "0xmkt", Category: "marketing"},
		},
		Budgets: map[string]decimal.Decimal{
			"development": decimal.RequireFromString("40"),
			"marketing":   decimal.RequireFromString("25"),
		},
	}
}

func TestCreateTreasuryValidation(t *testing.T) {
	f := newTreasuryFixture()

	t.Run("two main wallets", func(t *testing.T) {
		input := validTreasuryInput()
		input.Wallets[1].IsMain = true
		_, err := f.service.CreateTreasury(context.Background(), input)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("budgets over 100", func(t *testing.T) {
		input := validTreasuryInput()
		input.Budgets["reserve"] = decimal.RequireFromString("60")
		_, err := f.service.CreateTreasury(context.Background(), input)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("interval without period", func(t *testing.T) {
		input := validTreasuryInput()
		input.WorkflowTrigger = models.WorkflowTriggerInterval
		_, err := f.service.CreateTreasury(context.Background(), input)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestExecuteFundAllocationFromSnapshot(t *testing.T) {
	f := newTreasuryFixture()
	treasury, err := f.service.CreateTreasury(context.Background(), validTreasuryInput())
	if err != nil {
		t.Fatalf("create treasury: %v", err)
	}

	result, err := f.service.ExecuteFundAllocation(context.Background(), treasury.ID)
	if err != nil {
		t.Fatalf("execute allocation: %v", err)
	}

	if !result.Complete() {
		t.Fatalf("expected complete run, failed: %v", result.Failed)
	}
	if len(result.Transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(result.Transfers))
	}
	if !result.Snapshot.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("expected snapshot 1000, got %s", result.Snapshot)
	}

	// 40% and 25% of the snapshot, and never more than the snapshot total
	total := decimal.Zero
	for _, amount := range f.chain.released {
		total = total.Add(amount)
	}
	if !total.Equal(decimal.RequireFromString("650")) {
		t.Fatalf("expected 650 transferred, got %s", total)
	}
	if total.GreaterThan(result.Snapshot) {
		t.Fatalf("transfers %s exceed snapshot %s", total, result.Snapshot)
	}

	if f.repo.recordCalls != 1 {
		t.Fatalf("expected result persisted once, got %d", f.repo.recordCalls)
	}

	reloaded, _ := f.service.GetTreasury(context.Background(), treasury.ID)
	if reloaded.LastAllocationDate == nil {
		t.Fatal("expected last allocation date recorded")
	}
}

func TestExecuteFundAllocationPartialFailure(t *testing.T) {
	f := newTreasuryFixture()
	treasury, _ := f.service.CreateTreasury(context.Background(), validTreasuryInput())

	f.chain.releaseErr = errors.New("rpc down")
	result, err := f.service.ExecuteFundAllocation(context.Background(), treasury.ID)
	if err != nil {
		t.Fatalf("execute allocation: %v", err)
	}

	if result.Complete() {
		t.Fatal("expected failed categories")
	}
	if len(result.Failed) != 2 || len(result.Transfers) != 0 {
		t.Fatalf("expected all categories failed, got failed=%v transfers=%v", result.Failed, result.Transfers)
	}

	// The partial result is persisted so the failures are visible for
	// manual retry
	if f.repo.recordCalls != 1 {
		t.Fatalf("expected result persisted, got %d calls", f.repo.recordCalls)
	}
	var persisted AllocationResult
	if err := json.Unmarshal([]byte(f.repo.lastResultJSON), &persisted); err != nil {
		t.Fatalf("persisted result not valid JSON: %v", err)
	}
	if len(persisted.Failed) != 2 {
		t.Fatalf("expected persisted failures, got %v", persisted.Failed)
	}

	// Manual retry after the chain recovers transfers everything
	f.chain.releaseErr = nil
	retry, err := f.service.ExecuteFundAllocation(context.Background(), treasury.ID)
	if err != nil {
		t.Fatalf("retry allocation: %v", err)
	}
	if !retry.Complete() {
		t.Fatalf("expected complete retry, failed: %v", retry.Failed)
	}
}

func TestExecuteFundAllocationReportsMissingWallets(t *testing.T) {
	f := newTreasuryFixture()
	input := validTreasuryInput()
	input.Budgets = map[string]decimal.Decimal{
		"development": decimal.RequireFromString("40"),
		"legal":       decimal.RequireFromString("10"), // no wallet for this category
	}
	treasury, _ := f.service.CreateTreasury(context.Background(), input)

	result, err := f.service.ExecuteFundAllocation(context.Background(), treasury.ID)
	if err != nil {
		t.Fatalf("execute allocation: %v", err)
	}
	if len(result.Transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(result.Transfers))
	}
	if len(result.Failed) != 1 || result.Failed[0] != "legal" {
		t.Fatalf("expected legal reported as failed, got %v", result.Failed)
	}
}

func TestExecuteFundAllocationSkipsCrossChainWallets(t *testing.T) {
	f := newTreasuryFixture()
	aleo := &fakeChainGateway{balance: decimal.RequireFromString("500")}
	registry := gateway.NewRegistryWithGateways(map[string]gateway.ChainGateway{
		"ethereum": f.chain,
		"aleo":     aleo,
	})
	f.service = NewTreasuryService(f.repo, registry, nil)

	input := validTreasuryInput()
	input.Wallets[2] = TreasuryWalletInput{Chain: "aleo", Address: "aleo1mkt", Category: "marketing"}
	treasury, _ := f.service.CreateTreasury(context.Background(), input)

	result, err := f.service.ExecuteFundAllocation(context.Background(), treasury.ID)
	if err != nil {
		t.Fatalf("execute allocation: %v", err)
	}

	// Only the same-chain development wallet is paid; marketing lives on
	// another chain and must never receive a release from the main gateway
	if len(result.Transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(result.Transfers))
	}
	if _, ok := result.Transfers["development"]; !ok {
		t.Fatalf("expected development transfer, got %v", result.Transfers)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "marketing" {
		t.Fatalf("expected marketing reported as failed, got %v", result.Failed)
	}
	for _, to := range f.chain.releasedTo {
		if to == "aleo1mkt" {
			t.Fatal("cross-chain wallet paid through the main wallet's gateway")
		}
	}
	if aleo.releaseCalls != 0 {
		t.Fatalf("no transfer may run on the destination wallet's chain, got %d", aleo.releaseCalls)
	}
}

func TestGetBalanceSummarySkipsFailures(t *testing.T) {
	f := newTreasuryFixture()
	input := validTreasuryInput()
	// A wallet on a chain with no gateway is reported but excluded
	input.Wallets = append(input.Wallets, TreasuryWalletInput{
		Chain: "ethereum", Address: "0xreserve", Category: "reserve",
	})
	treasury, _ := f.service.CreateTreasury(context.Background(), input)

	// Force one wallet's chain offline after creation
	f.repo.mu.Lock()
	f.repo.treasuries[treasury.ID].Wallets[3].Chain = "offline-chain"
	f.repo.mu.Unlock()

	summary, err := f.service.GetBalanceSummary(context.Background(), treasury.ID)
	if err != nil {
		t.Fatalf("balance summary: %v", err)
	}
	if len(summary.Wallets) != 4 {
		t.Fatalf("expected 4 wallets reported, got %d", len(summary.Wallets))
	}

	failed := 0
	for _, w := range summary.Wallets {
		if w.Failed {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("expected 1 failed wallet, got %d", failed)
	}
	// 3 reachable wallets at 1000 each
	if !summary.Total.Equal(decimal.RequireFromString("3000")) {
		t.Fatalf("expected total 3000, got %s", summary.Total)
	}
}

func TestAllocationUnknownTreasury(t *testing.T) {
	f := newTreasuryFixture()
	_, err := f.service.ExecuteFundAllocation(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
