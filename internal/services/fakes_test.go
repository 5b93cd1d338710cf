package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bridge-backend/internal/clients"
	"bridge-backend/internal/gateway"
	"bridge-backend/internal/models"
	"bridge-backend/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeOrderRepo in-memory OrderRepository with real conditional-update
// semantics
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.BridgeOrder

	// beforeAdvance runs between the caller's read and the conditional
	// write, to simulate a concurrent transition
	beforeAdvance func(id string)
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.BridgeOrder)}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.BridgeOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id string) (*models.BridgeOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeOrderRepo) FindByUser(ctx context.Context, userID string, status string, page, pageSize int) ([]*models.BridgeOrder, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BridgeOrder
	for _, order := range f.orders {
		if order.UserID != userID {
			continue
		}
		if status != "" && string(order.Status) != status {
			continue
		}
		clone := *order
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) FindByStatus(ctx context.Context, status models.OrderStatus) ([]*models.BridgeOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BridgeOrder
	for _, order := range f.orders {
		if order.Status == status {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) FindExpired(ctx context.Context, statuses []models.OrderStatus, before time.Time) ([]*models.BridgeOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BridgeOrder
	for _, order := range f.orders {
		if !order.ExpiresAt.Before(before) {
			continue
		}
		for _, status := range statuses {
			if order.Status == status {
				clone := *order
				out = append(out, &clone)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) AdvanceStatus(ctx context.Context, id string, from, to models.OrderStatus, updates map[string]interface{}) error {
	if f.beforeAdvance != nil {
		f.beforeAdvance(id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return repository.ErrNoRowsUpdated
	}
	order.Status = to
	for key, value := range updates {
		switch key {
		case "lock_tx_hash":
			order.LockTxHash = value.(string)
		case "mint_tx_hash":
			order.MintTxHash = value.(string)
		case "release_tx_hash":
			order.ReleaseTxHash = value.(string)
		case "proof_id":
			order.ProofID = value.(string)
		case "fail_reason":
			order.FailReason = value.(models.FailReason)
		case "failed_at":
			ts := value.(time.Time)
			order.FailedAt = &ts
		case "completed_at":
			ts := value.(time.Time)
			order.CompletedAt = &ts
		}
	}
	return nil
}

// setStatus test helper to force a persisted status directly
func (f *fakeOrderRepo) setStatus(id string, status models.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[id]; ok {
		order.Status = status
	}
}

// fakeAuditRepo in-memory append-only audit store
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
}

func (f *fakeAuditRepo) Append(ctx context.Context, entry *models.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *entry
	f.entries = append(f.entries, &clone)
	return nil
}

func (f *fakeAuditRepo) FindByTransaction(ctx context.Context, transactionID string) ([]*models.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AuditEntry
	for _, entry := range f.entries {
		if entry.TransactionID == transactionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) List(ctx context.Context, page, pageSize int) ([]*models.AuditEntry, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, int64(len(f.entries)), nil
}

// fakeChainGateway scripted ChainGateway
type fakeChainGateway struct {
	mu sync.Mutex

	lockErr    error
	releaseErr error
	mintErr    error
	balance    decimal.Decimal
	balanceErr error

	lockCalls    int
	releaseCalls int
	mintCalls    int

	releasedTo []string
	released   []decimal.Decimal
	mintedTo   []string
	minted     []decimal.Decimal
}

func (f *fakeChainGateway) Lock(ctx context.Context, address string, amount decimal.Decimal, reference string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockCalls++
	if f.lockErr != nil {
		return "", f.lockErr
	}
	return fmt.Sprintf("0xlock-%s", reference), nil
}

func (f *fakeChainGateway) Release(ctx context.Context, address string, amount decimal.Decimal, reference string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	if f.releaseErr != nil {
		return "", f.releaseErr
	}
	f.releasedTo = append(f.releasedTo, address)
	f.released = append(f.released, amount)
	return fmt.Sprintf("0xrelease-%s", reference), nil
}

func (f *fakeChainGateway) Mint(ctx context.Context, address string, amount decimal.Decimal, evidence string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintCalls++
	if f.mintErr != nil {
		return "", f.mintErr
	}
	f.mintedTo = append(f.mintedTo, address)
	f.minted = append(f.minted, amount)
	return fmt.Sprintf("0xmint-%s", evidence), nil
}

func (f *fakeChainGateway) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeChainGateway) GetTransactionStatus(ctx context.Context, txHash string) (gateway.TxStatus, error) {
	return gateway.TxStatusCompleted, nil
}

// fakeProofBackend scripted proof service
type fakeProofBackend struct {
	generateErr error
	verifyErr   error
	valid       bool

	generated int
	verified  int
	lastReq   *clients.GenerateProofRequest
}

func (f *fakeProofBackend) GenerateProof(ctx context.Context, req *clients.GenerateProofRequest) (*clients.Proof, error) {
	f.generated++
	f.lastReq = req
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &clients.Proof{
		ProofID:     "proof-1",
		ProofData:   "data",
		ProgramHash: "hash",
	}, nil
}

func (f *fakeProofBackend) VerifyProof(ctx context.Context, proof *clients.Proof) (bool, error) {
	f.verified++
	if f.verifyErr != nil {
		return false, f.verifyErr
	}
	return f.valid, nil
}
