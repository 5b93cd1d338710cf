package services

import (
	"context"
	"errors"
	"fmt"
	"log"
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

// EscrowService coordinates approver-gated conditional payments. Release
// checks run in a fixed order (authorization, funding, release date) so a
// caller failing several at once always sees the same error, and a failed
// chain call never advances escrow state.
type EscrowService struct {
	escrowRepo repository.EscrowRepository
	gateways   *gateway.Registry
	publisher  *events.Publisher
}

// NewEscrowService creates a new escrow service
func NewEscrowService(escrowRepo repository.EscrowRepository, gateways *gateway.Registry, publisher *events.Publisher) *EscrowService {
	return &EscrowService{
		escrowRepo: escrowRepo,
		gateways:   gateways,
		publisher:  publisher,
	}
}

// CreateEscrowInput parameters for creating an escrow
type CreateEscrowInput struct {
	PayerAvatarID string
	PayeeAvatarID string
	PayerAddress  string
	PayeeAddress  string
	Approvers     []string
	Amount        decimal.Decimal
	Currency      string
	Chain         string
	Conditions    map[string]string
	ReleaseDate   *time.Time
}

// CreateEscrow validates and persists a new escrow in Pending. When no
// approvers are given the payer becomes the sole approver.
func (s *EscrowService) CreateEscrow(ctx context.Context, input *CreateEscrowInput) (*models.Escrow, error) {
	if input.PayerAvatarID == "" || input.PayeeAvatarID == "" {
		return nil, newValidationError("payer and payee are required")
	}
	if input.PayerAddress == "" || input.PayeeAddress == "" {
		return nil, newValidationError("payer_address and payee_address are required")
	}
	if !input.Amount.IsPositive() {
		return nil, newValidationError("amount must be positive, got %s", input.Amount)
	}
	if input.Chain == "" {
		return nil, newValidationError("chain is required")
	}
	if _, err := s.gateways.Get(input.Chain); err != nil {
		return nil, newValidationError("unsupported chain %q", input.Chain)
	}

	approvers := input.Approvers
	if len(approvers) == 0 {
		approvers = []string{input.PayerAvatarID}
	}

	escrow := &models.Escrow{
		ID:            uuid.New().String(),
		PayerAvatarID: input.PayerAvatarID,
		PayeeAvatarID: input.PayeeAvatarID,
		PayerAddress:  input.PayerAddress,
		PayeeAddress:  input.PayeeAddress,
		Amount:        input.Amount,
		Currency:      input.Currency,
		Chain:         input.Chain,
		ReleaseDate:   input.ReleaseDate,
		Status:        models.EscrowStatusPending,
	}
	if err := escrow.SetApprovers(approvers); err != nil {
		return nil, fmt.Errorf("failed to encode approvers: %w", err)
	}
	if err := escrow.SetConditions(input.Conditions); err != nil {
		return nil, fmt.Errorf("failed to encode conditions: %w", err)
	}

	if err := s.escrowRepo.Create(ctx, escrow); err != nil {
		return nil, fmt.Errorf("failed to create escrow: %w", err)
	}

	log.Printf("📋 [Escrow] Created %s: %s %s from %s to %s (%d approvers)",
		escrow.ID, escrow.Amount, escrow.Currency, escrow.PayerAvatarID, escrow.PayeeAvatarID, len(approvers))
	return escrow, nil
}

// GetEscrow retrieves an escrow by id
func (s *EscrowService) GetEscrow(ctx context.Context, escrowID string) (*models.Escrow, error) {
	escrow, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("escrow", escrowID)
		}
		return nil, fmt.Errorf("failed to load escrow %s: %w", escrowID, err)
	}
	return escrow, nil
}

// ListEscrowsFor lists escrows the avatar participates in as payer, payee
// or approver
func (s *EscrowService) ListEscrowsFor(ctx context.Context, avatarID, status string) ([]*models.Escrow, error) {
	if avatarID == "" {
		return nil, newValidationError("avatar id is required")
	}
	return s.escrowRepo.ListForAvatar(ctx, avatarID, status)
}

// FundEscrow locks the payer's funds on chain and advances the escrow to
// Funded. Only the payer may fund, and only from Pending.
func (s *EscrowService) FundEscrow(ctx context.Context, escrowID, actorID string) (*models.Escrow, error) {
	escrow, err := s.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	if actorID != escrow.PayerAvatarID {
		return nil, newNotAuthorizedError("only the payer may fund escrow %s", escrow.ID)
	}
	if escrow.Status == models.EscrowStatusFunded && escrow.FundTxHash != "" {
		return nil, newPreconditionErrorWithReason("already_done", "escrow %s is already funded (tx %s)", escrow.ID, escrow.FundTxHash)
	}
	if escrow.Status != models.EscrowStatusPending {
		return nil, newPreconditionError("escrow %s is %s, expected %s", escrow.ID, escrow.Status, models.EscrowStatusPending)
	}

	gw, err := s.gateways.Get(escrow.Chain)
	if err != nil {
		return nil, newValidationError("unsupported chain %q", escrow.Chain)
	}

	txHash, err := callChain(ctx, s.gateways.CallTimeout(), escrow.Chain, "lock", func(callCtx context.Context) (string, error) {
		return gw.Lock(callCtx, escrow.PayerAddress, escrow.Amount, escrow.ID)
	})
	if err != nil {
		return nil, newRemoteCallError(fmt.Sprintf("fund lock on %s failed", escrow.Chain), err)
	}

	now := time.Now()
	if err := s.commitTransition(ctx, escrow, models.EscrowStatusPending, models.EscrowStatusFunded,
		map[string]interface{}{"fund_tx_hash": txHash, "funded_date": now}, actorID, txHash); err != nil {
		return nil, err
	}

	log.Printf("✅ [Escrow] %s funded by %s (tx %s)", escrow.ID, actorID, txHash)
	return s.GetEscrow(ctx, escrowID)
}

// ReleaseEscrow transfers the held funds to the payee. The caller must be an
// approver, the escrow must be funded, and the release date (when set) must
// have passed; the checks run in that order.
func (s *EscrowService) ReleaseEscrow(ctx context.Context, escrowID, actorID string) (*models.Escrow, error) {
	escrow, err := s.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	if !escrow.HasApprover(actorID) {
		return nil, newNotAuthorizedError("%s is not an approver of escrow %s", actorID, escrow.ID)
	}
	if escrow.Status == models.EscrowStatusReleased && escrow.ReleaseTxHash != "" {
		return nil, newPreconditionErrorWithReason("already_done", "escrow %s is already released (tx %s)", escrow.ID, escrow.ReleaseTxHash)
	}
	if escrow.Status != models.EscrowStatusFunded {
		return nil, newPreconditionErrorWithReason("not_funded", "escrow %s is %s, release requires %s", escrow.ID, escrow.Status, models.EscrowStatusFunded)
	}
	if escrow.ReleaseDate != nil && time.Now().Before(*escrow.ReleaseDate) {
		return nil, newPreconditionErrorWithReason("too_early", "escrow %s releases no earlier than %s", escrow.ID, escrow.ReleaseDate.Format(time.RFC3339))
	}

	gw, err := s.gateways.Get(escrow.Chain)
	if err != nil {
		return nil, newValidationError("unsupported chain %q", escrow.Chain)
	}

	txHash, err := callChain(ctx, s.gateways.CallTimeout(), escrow.Chain, "release", func(callCtx context.Context) (string, error) {
		return gw.Release(callCtx, escrow.PayeeAddress, escrow.Amount, escrow.ID)
	})
	if err != nil {
		return nil, newRemoteCallError(fmt.Sprintf("release on %s failed", escrow.Chain), err)
	}

	now := time.Now()
	if err := s.commitTransition(ctx, escrow, models.EscrowStatusFunded, models.EscrowStatusReleased,
		map[string]interface{}{"release_tx_hash": txHash, "released_date": now}, actorID, txHash); err != nil {
		return nil, err
	}

	log.Printf("✅ [Escrow] %s released to %s by approver %s (tx %s)", escrow.ID, escrow.PayeeAvatarID, actorID, txHash)
	return s.GetEscrow(ctx, escrowID)
}

// CancelEscrow cancels a pending or funded escrow. Cancelling a funded
// escrow first refunds the payer on chain; the cancellation only commits
// once the refund succeeded.
func (s *EscrowService) CancelEscrow(ctx context.Context, escrowID, actorID string) (*models.Escrow, error) {
	escrow, err := s.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	if actorID != escrow.PayerAvatarID && !escrow.HasApprover(actorID) {
		return nil, newNotAuthorizedError("%s may not cancel escrow %s", actorID, escrow.ID)
	}

	switch escrow.Status {
	case models.EscrowStatusPending:
		if err := s.commitTransition(ctx, escrow, models.EscrowStatusPending, models.EscrowStatusCancelled, nil, actorID, ""); err != nil {
			return nil, err
		}

	case models.EscrowStatusFunded:
		gw, err := s.gateways.Get(escrow.Chain)
		if err != nil {
			return nil, newValidationError("unsupported chain %q", escrow.Chain)
		}
		txHash, err := callChain(ctx, s.gateways.CallTimeout(), escrow.Chain, "release", func(callCtx context.Context) (string, error) {
			return gw.Release(callCtx, escrow.PayerAddress, escrow.Amount, escrow.ID)
		})
		if err != nil {
			return nil, newRemoteCallError(fmt.Sprintf("refund on %s failed", escrow.Chain), err)
		}
		if err := s.commitTransition(ctx, escrow, models.EscrowStatusFunded, models.EscrowStatusCancelled,
			map[string]interface{}{"refund_tx_hash": txHash}, actorID, txHash); err != nil {
			return nil, err
		}

	default:
		return nil, newPreconditionError("escrow %s is %s, cancel requires %s or %s",
			escrow.ID, escrow.Status, models.EscrowStatusPending, models.EscrowStatusFunded)
	}

	log.Printf("🔄 [Escrow] %s cancelled by %s", escrow.ID, actorID)
	return s.GetEscrow(ctx, escrowID)
}

// DisputeEscrow freezes a funded escrow for manual resolution. Only the
// payer or payee may raise a dispute.
func (s *EscrowService) DisputeEscrow(ctx context.Context, escrowID, actorID, reason string) (*models.Escrow, error) {
	escrow, err := s.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	if actorID != escrow.PayerAvatarID && actorID != escrow.PayeeAvatarID {
		return nil, newNotAuthorizedError("%s is not a party of escrow %s", actorID, escrow.ID)
	}
	if escrow.Status != models.EscrowStatusFunded {
		return nil, newPreconditionError("escrow %s is %s, dispute requires %s", escrow.ID, escrow.Status, models.EscrowStatusFunded)
	}

	if err := s.commitTransition(ctx, escrow, models.EscrowStatusFunded, models.EscrowStatusDisputed,
		map[string]interface{}{"dispute_reason": reason}, actorID, ""); err != nil {
		return nil, err
	}

	log.Printf("⚠️ [Escrow] %s disputed by %s: %s", escrow.ID, actorID, reason)
	return s.GetEscrow(ctx, escrowID)
}

// ResolveEscrowDispute settles a disputed escrow. resolution "release" pays
// the payee, "refund" returns the funds to the payer. Admin-only.
func (s *EscrowService) ResolveEscrowDispute(ctx context.Context, escrowID, resolution string) (*models.Escrow, error) {
	escrow, err := s.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != models.EscrowStatusDisputed {
		return nil, newPreconditionError("escrow %s is %s, expected %s", escrow.ID, escrow.Status, models.EscrowStatusDisputed)
	}

	gw, err := s.gateways.Get(escrow.Chain)
	if err != nil {
		return nil, newValidationError("unsupported chain %q", escrow.Chain)
	}

	switch resolution {
	case "release":
		txHash, err := callChain(ctx, s.gateways.CallTimeout(), escrow.Chain, "release", func(callCtx context.Context) (string, error) {
			return gw.Release(callCtx, escrow.PayeeAddress, escrow.Amount, escrow.ID)
		})
		if err != nil {
			return nil, newRemoteCallError(fmt.Sprintf("release on %s failed", escrow.Chain), err)
		}
		now := time.Now()
		if err := s.commitTransition(ctx, escrow, models.EscrowStatusDisputed, models.EscrowStatusReleased,
			map[string]interface{}{"release_tx_hash": txHash, "released_date": now}, "", txHash); err != nil {
			return nil, err
		}

	case "refund":
		txHash, err := callChain(ctx, s.gateways.CallTimeout(), escrow.Chain, "release", func(callCtx context.Context) (string, error) {
			return gw.Release(callCtx, escrow.PayerAddress, escrow.Amount, escrow.ID)
		})
		if err != nil {
			return nil, newRemoteCallError(fmt.Sprintf("refund on %s failed", escrow.Chain), err)
		}
		if err := s.commitTransition(ctx, escrow, models.EscrowStatusDisputed, models.EscrowStatusCancelled,
			map[string]interface{}{"refund_tx_hash": txHash}, "", txHash); err != nil {
			return nil, err
		}

	default:
		return nil, newValidationError("unknown resolution %q, expected release or refund", resolution)
	}

	log.Printf("🔄 [Escrow] %s dispute resolved: %s", escrow.ID, resolution)
	return s.GetEscrow(ctx, escrowID)
}

// commitTransition commits one optimistic escrow transition and emits its
// event and metrics
func (s *EscrowService) commitTransition(ctx context.Context, escrow *models.Escrow, from, to models.EscrowStatus, updates map[string]interface{}, actorID, txHash string) error {
	if err := s.escrowRepo.AdvanceStatus(ctx, escrow.ID, from, to, updates); err != nil {
		if errors.Is(err, repository.ErrNoRowsUpdated) {
			return newConcurrentModificationError("escrow", escrow.ID)
		}
		return fmt.Errorf("failed to advance escrow %s from %s to %s: %w", escrow.ID, from, to, err)
	}

	metrics.EscrowTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.publisher.PublishEscrowTransition(&events.EscrowTransitionEvent{
		EscrowID:   escrow.ID,
		FromStatus: string(from),
		ToStatus:   string(to),
		ActorID:    actorID,
		TxHash:     txHash,
	})
	return nil
}
