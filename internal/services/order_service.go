package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"bridge-backend/internal/clients"
	"bridge-backend/internal/events"
	"bridge-backend/internal/gateway"
	"bridge-backend/internal/metrics"
	"bridge-backend/internal/models"
	"bridge-backend/internal/push"
	"bridge-backend/internal/repository"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/sha3"
	"gorm.io/gorm"
)

// OrderService drives a bridge order through its lifecycle. Every transition
// is committed through a conditional update keyed on the expected pre-state,
// so two racing callers can never both advance the same order.
type OrderService struct {
	orderRepo repository.OrderRepository
	auditRepo repository.AuditRepository
	gateways  *gateway.Registry
	proofGate *ProofGate
	publisher *events.Publisher
	pusher    *push.Service
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo repository.OrderRepository,
	auditRepo repository.AuditRepository,
	gateways *gateway.Registry,
	proofGate *ProofGate,
	publisher *events.Publisher,
	pusher *push.Service,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		auditRepo: auditRepo,
		gateways:  gateways,
		proofGate: proofGate,
		publisher: publisher,
		pusher:    pusher,
	}
}

// CreateOrderInput parameters for creating a bridge order
type CreateOrderInput struct {
	FromChain          string
	ToChain            string
	FromToken          string
	ToToken            string
	FromAddress        string
	DestinationAddress string
	UserID             string
	Amount             decimal.Decimal
	ExchangeRate       decimal.Decimal
	ExpiresInMinutes   int

	// Privacy routing options
	PrivacyRouted         bool
	ViewingKey            string
	EnableViewingKeyAudit bool
}

// CreateOrder validates the request, freezes the destination amount at the
// quoted rate and persists the order in Pending. The raw viewing key is
// hashed immediately and never stored.
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*models.BridgeOrder, error) {
	if input.FromChain == "" || input.ToChain == "" {
		return nil, newValidationError("from_chain and to_chain are required")
	}
	if input.FromChain == input.ToChain {
		return nil, newValidationError("from_chain and to_chain must differ")
	}
	if input.FromAddress == "" || input.DestinationAddress == "" {
		return nil, newValidationError("from_address and destination_address are required")
	}
	if !input.Amount.IsPositive() {
		return nil, newValidationError("amount must be positive, got %s", input.Amount)
	}
	if !input.ExchangeRate.IsPositive() {
		return nil, newValidationError("exchange_rate must be positive, got %s", input.ExchangeRate)
	}
	if input.ExpiresInMinutes <= 0 {
		return nil, newValidationError("expires_in_minutes must be positive, got %d", input.ExpiresInMinutes)
	}
	if _, err := s.gateways.Get(input.FromChain); err != nil {
		return nil, newValidationError("unsupported chain %q", input.FromChain)
	}
	if _, err := s.gateways.Get(input.ToChain); err != nil {
		return nil, newValidationError("unsupported chain %q", input.ToChain)
	}
	if input.EnableViewingKeyAudit && input.ViewingKey == "" {
		return nil, newValidationError("viewing key audit requested without a viewing key")
	}

	order := &models.BridgeOrder{
		ID:                 uuid.New().String(),
		FromChain:          input.FromChain,
		ToChain:            input.ToChain,
		FromToken:          input.FromToken,
		ToToken:            input.ToToken,
		FromAddress:        input.FromAddress,
		DestinationAddress: input.DestinationAddress,
		UserID:             input.UserID,
		Amount:             input.Amount,
		ExchangeRate:       input.ExchangeRate,
		ToAmount:           input.Amount.Mul(input.ExchangeRate),
		Status:             models.OrderStatusPending,
		PrivacyRouted:      input.PrivacyRouted,
		ViewingKeyAudited:  input.EnableViewingKeyAudit,
		ExpiresAt:          time.Now().Add(time.Duration(input.ExpiresInMinutes) * time.Minute),
	}
	if input.ViewingKey != "" {
		order.ViewingKeyHash = crypto.Keccak256Hash([]byte(input.ViewingKey)).Hex()
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	log.Printf("📋 [Order] Created %s: %s %s on %s -> %s %s on %s (expires %s)",
		order.ID, order.Amount, order.FromToken, order.FromChain,
		order.ToAmount, order.ToToken, order.ToChain,
		order.ExpiresAt.Format(time.RFC3339))
	return order, nil
}

// GetOrder retrieves an order by id
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.BridgeOrder, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("order", orderID)
		}
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	return order, nil
}

// ListOrders retrieves paginated orders for a user
func (s *OrderService) ListOrders(ctx context.Context, userID, status string, page, pageSize int) ([]*models.BridgeOrder, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.orderRepo.FindByUser(ctx, userID, status, page, pageSize)
}

// LockFunds commits the source funds on the origin chain and advances the
// order to Locked. A repeated call on an already locked order reports
// already-done instead of locking twice.
func (s *OrderService) LockFunds(ctx context.Context, orderID string) (*models.BridgeOrder, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusLocked && order.LockTxHash != "" {
		return nil, newPreconditionErrorWithReason("already_done", "order %s is already locked (tx %s)", order.ID, order.LockTxHash)
	}
	if order.Status != models.OrderStatusPending {
		return nil, newPreconditionError("order %s is %s, expected %s", order.ID, order.Status, models.OrderStatusPending)
	}
	if time.Now().After(order.ExpiresAt) {
		return nil, newExpiredError("order %s expired at %s", order.ID, order.ExpiresAt.Format(time.RFC3339))
	}

	gw, err := s.gateways.Get(order.FromChain)
	if err != nil {
		return nil, newValidationError("unsupported chain %q", order.FromChain)
	}

	txHash, err := callChain(ctx, s.gateways.CallTimeout(), order.FromChain, "lock", func(callCtx context.Context) (string, error) {
		return gw.Lock(callCtx, order.FromAddress, order.Amount, order.ID)
	})
	if err != nil {
		return nil, newRemoteCallError(fmt.Sprintf("lock on %s failed", order.FromChain), err)
	}

	if err := s.commitTransition(ctx, order, models.OrderStatusPending, models.OrderStatusLocked,
		map[string]interface{}{"lock_tx_hash": txHash}, txHash, ""); err != nil {
		return nil, err
	}
	log.Printf("✅ [Order] %s locked on %s: %s", order.ID, order.FromChain, txHash)
	return s.GetOrder(ctx, orderID)
}

// SubmitProofInput parameters for the proof step of a privacy-routed order
type SubmitProofInput struct {
	ProgramRef string
	Inputs     map[string]string
	Outputs    map[string]string
}

// SubmitProof runs the verify-before-effect gate for a privacy-routed order.
// The order is claimed into ProofPending first so concurrent submissions
// collapse to one; on a definitive rejection the order fails terminally, on
// a transient proof-service failure it returns to Locked for retry.
func (s *OrderService) SubmitProof(ctx context.Context, orderID string, input *SubmitProofInput) (*models.BridgeOrder, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.PrivacyRouted {
		return nil, newPreconditionError("order %s is not privacy-routed", order.ID)
	}
	if order.Status == models.OrderStatusMinting && order.ProofID != "" {
		return nil, newPreconditionErrorWithReason("already_done", "order %s already has verified proof %s", order.ID, order.ProofID)
	}
	if order.Status != models.OrderStatusLocked {
		return nil, newPreconditionError("order %s is %s, expected %s", order.ID, order.Status, models.OrderStatusLocked)
	}

	if err := s.commitTransition(ctx, order, models.OrderStatusLocked, models.OrderStatusProofPending, nil, "", ""); err != nil {
		return nil, err
	}

	req := s.buildProofRequest(order, input)
	proof, err := s.proofGate.GenerateAndVerify(ctx, req)
	if err != nil {
		if errors.Is(err, ErrProofVerification) {
			// Definitive rejection: the order fails terminally, a compensating
			// order is required to retry the transfer
			now := time.Now()
			if cerr := s.commitTransition(ctx, order, models.OrderStatusProofPending, models.OrderStatusFailed,
				map[string]interface{}{
					"fail_reason": models.FailReasonProofVerificationFailed,
					"failed_at":   now,
				}, "", string(models.FailReasonProofVerificationFailed)); cerr != nil {
				log.Printf("⚠️ [Order] %s: failed to record proof rejection: %v", order.ID, cerr)
			}
			return nil, err
		}
		// Transient generation failure: release the claim so the proof step
		// can be retried
		if cerr := s.commitTransition(ctx, order, models.OrderStatusProofPending, models.OrderStatusLocked, nil, "", ""); cerr != nil {
			log.Printf("⚠️ [Order] %s: failed to return to locked after proof failure: %v", order.ID, cerr)
		}
		return nil, err
	}

	if err := s.commitTransition(ctx, order, models.OrderStatusProofPending, models.OrderStatusMinting,
		map[string]interface{}{"proof_id": proof.ProofID}, "", ""); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, order, models.AuditActionProofSubmitted, "", fmt.Sprintf("proof %s verified", proof.ProofID))
	if order.ViewingKeyAudited {
		s.appendAudit(ctx, order, models.AuditActionViewingKeyDisclosed, order.ViewingKeyHash, "viewing key disclosed to proof service")
	}

	log.Printf("✅ [Order] %s proof %s verified, ready to mint", order.ID, proof.ProofID)
	return s.GetOrder(ctx, orderID)
}

// CompleteMint produces the destination-chain value and completes the order.
// Privacy-routed orders must have passed the proof gate; plain orders move
// through Minting in the same call.
func (s *OrderService) CompleteMint(ctx context.Context, orderID string) (*models.BridgeOrder, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusCompleted && order.MintTxHash != "" {
		return nil, newPreconditionErrorWithReason("already_done", "order %s is already completed (tx %s)", order.ID, order.MintTxHash)
	}

	claimed := false
	switch order.Status {
	case models.OrderStatusMinting:
		// proof already verified, or a previous mint attempt failed mid-call
	case models.OrderStatusLocked:
		if order.PrivacyRouted {
			return nil, newPreconditionError("order %s requires a verified proof before minting", order.ID)
		}
		if err := s.commitTransition(ctx, order, models.OrderStatusLocked, models.OrderStatusMinting, nil, "", ""); err != nil {
			return nil, err
		}
		claimed = true
	default:
		return nil, newPreconditionError("order %s is %s, expected %s or %s",
			order.ID, order.Status, models.OrderStatusLocked, models.OrderStatusMinting)
	}

	if order.LockTxHash == "" {
		return nil, newPreconditionError("order %s has no lock evidence", order.ID)
	}

	evidence := order.ProofID
	if evidence == "" {
		evidence = order.LockTxHash
	}

	gw, err := s.gateways.Get(order.ToChain)
	if err != nil {
		return nil, newValidationError("unsupported chain %q", order.ToChain)
	}

	txHash, err := callChain(ctx, s.gateways.CallTimeout(), order.ToChain, "mint", func(callCtx context.Context) (string, error) {
		return gw.Mint(callCtx, order.DestinationAddress, order.ToAmount, evidence)
	})
	if err != nil {
		if claimed {
			// The claim was only taken in this call; undo it so the plain
			// order stays retriable from Locked
			if cerr := s.commitTransition(ctx, order, models.OrderStatusMinting, models.OrderStatusLocked, nil, "", ""); cerr != nil {
				log.Printf("⚠️ [Order] %s: failed to return to locked after mint failure: %v", order.ID, cerr)
			}
		}
		return nil, newRemoteCallError(fmt.Sprintf("mint on %s failed", order.ToChain), err)
	}

	now := time.Now()
	if err := s.commitTransition(ctx, order, models.OrderStatusMinting, models.OrderStatusCompleted,
		map[string]interface{}{"mint_tx_hash": txHash, "completed_at": now}, txHash, ""); err != nil {
		return nil, err
	}

	log.Printf("✅ [Order] %s completed: minted %s %s on %s (tx %s)",
		order.ID, order.ToAmount, order.ToToken, order.ToChain, txHash)
	return s.GetOrder(ctx, orderID)
}

// ExpireStale sweeps orders past their deadline. Orders without a destination
// effect fail terminally; an order already minting cannot be failed safely
// and escalates to Disputed for manual resolution. Returns the number of
// orders expired and disputed.
func (s *OrderService) ExpireStale(ctx context.Context) (int, int, error) {
	now := time.Now()

	stale, err := s.orderRepo.FindExpired(ctx, []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusLocked,
		models.OrderStatusProofPending,
	}, now)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to find expired orders: %w", err)
	}

	expired := 0
	for _, order := range stale {
		err := s.commitTransition(ctx, order, order.Status, models.OrderStatusFailed,
			map[string]interface{}{
				"fail_reason": models.FailReasonExpired,
				"failed_at":   now,
			}, "", string(models.FailReasonExpired))
		if err != nil {
			// Lost the race to a concurrent transition; the winner decided
			// the order's fate
			log.Printf("⚠️ [Order] Skipping expiry of %s: %v", order.ID, err)
			continue
		}
		metrics.OrdersExpired.Inc()
		expired++
		log.Printf("⏰ [Order] %s expired (was %s)", order.ID, order.Status)
	}

	minting, err := s.orderRepo.FindExpired(ctx, []models.OrderStatus{models.OrderStatusMinting}, now)
	if err != nil {
		return expired, 0, fmt.Errorf("failed to find stale minting orders: %w", err)
	}

	disputed := 0
	for _, order := range minting {
		err := s.commitTransition(ctx, order, models.OrderStatusMinting, models.OrderStatusDisputed, nil, "", "stale_minting")
		if err != nil {
			log.Printf("⚠️ [Order] Skipping dispute escalation of %s: %v", order.ID, err)
			continue
		}
		metrics.OrdersDisputed.Inc()
		disputed++
		log.Printf("⚠️ [Order] %s escalated to disputed: stale in minting past expiry", order.ID)
	}

	return expired, disputed, nil
}

// ResolveDispute rolls a disputed order back by releasing the locked source
// funds to the payer. Admin-only.
func (s *OrderService) ResolveDispute(ctx context.Context, orderID string) (*models.BridgeOrder, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusDisputed {
		return nil, newPreconditionError("order %s is %s, expected %s", order.ID, order.Status, models.OrderStatusDisputed)
	}

	gw, err := s.gateways.Get(order.FromChain)
	if err != nil {
		return nil, newValidationError("unsupported chain %q", order.FromChain)
	}

	txHash, err := callChain(ctx, s.gateways.CallTimeout(), order.FromChain, "release", func(callCtx context.Context) (string, error) {
		return gw.Release(callCtx, order.FromAddress, order.Amount, order.ID)
	})
	if err != nil {
		return nil, newRemoteCallError(fmt.Sprintf("release on %s failed", order.FromChain), err)
	}

	if err := s.commitTransition(ctx, order, models.OrderStatusDisputed, models.OrderStatusRolledBack,
		map[string]interface{}{"release_tx_hash": txHash}, txHash, "dispute_rollback"); err != nil {
		return nil, err
	}

	log.Printf("🔄 [Order] %s rolled back: released %s to %s (tx %s)",
		order.ID, order.Amount, order.FromAddress, txHash)
	return s.GetOrder(ctx, orderID)
}

// buildProofRequest assembles the proof-service request, seeding the inputs
// with the order's lock evidence so the proof binds to this transfer
func (s *OrderService) buildProofRequest(order *models.BridgeOrder, input *SubmitProofInput) *clients.GenerateProofRequest {
	req := &clients.GenerateProofRequest{
		ProgramRef: "bridge_transfer",
		Inputs:     make(map[string]string),
		Outputs:    make(map[string]string),
	}
	if input != nil {
		if input.ProgramRef != "" {
			req.ProgramRef = input.ProgramRef
		}
		for k, v := range input.Inputs {
			req.Inputs[k] = v
		}
		for k, v := range input.Outputs {
			req.Outputs[k] = v
		}
	}
	req.Inputs["order_id"] = order.ID
	req.Inputs["lock_tx_hash"] = order.LockTxHash
	req.Inputs["amount"] = order.Amount.String()
	// Binding digest ties the proof to this order's lock evidence
	binding := sha3.Sum256([]byte(order.ID + ":" + order.LockTxHash))
	req.Inputs["binding"] = hex.EncodeToString(binding[:])
	req.Outputs["to_amount"] = order.ToAmount.String()
	req.Outputs["destination_address"] = order.DestinationAddress
	return req
}

// commitTransition commits one optimistic transition and emits the
// transition's event, push update and metrics. A lost race surfaces as a
// concurrent-modification error.
func (s *OrderService) commitTransition(ctx context.Context, order *models.BridgeOrder, from, to models.OrderStatus, updates map[string]interface{}, txHash, reason string) error {
	if err := s.orderRepo.AdvanceStatus(ctx, order.ID, from, to, updates); err != nil {
		if errors.Is(err, repository.ErrNoRowsUpdated) {
			metrics.OrderTransitionConflicts.Inc()
			return newConcurrentModificationError("order", order.ID)
		}
		return fmt.Errorf("failed to advance order %s from %s to %s: %w", order.ID, from, to, err)
	}

	metrics.OrderTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.publisher.PublishOrderTransition(&events.OrderTransitionEvent{
		OrderID:    order.ID,
		FromStatus: string(from),
		ToStatus:   string(to),
		FromChain:  order.FromChain,
		ToChain:    order.ToChain,
		TxHash:     txHash,
		Reason:     reason,
	})
	s.pusher.PushOrderStatus(order.ID, string(to), txHash, reason)
	return nil
}

// appendAudit appends an audit entry for the order; audit write failures are
// logged, they never roll back a committed transition
func (s *OrderService) appendAudit(ctx context.Context, order *models.BridgeOrder, action models.AuditAction, viewingKeyHash, notes string) {
	entry := &models.AuditEntry{
		ID:               uuid.New().String(),
		TransactionID:    order.ID,
		Action:           action,
		SourceChain:      order.FromChain,
		DestinationChain: order.ToChain,
		DestinationAddr:  order.DestinationAddress,
		UserID:           order.UserID,
		ViewingKeyHash:   viewingKeyHash,
		Notes:            notes,
	}
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		log.Printf("❌ [Audit] Failed to append %s entry for order %s: %v", action, order.ID, err)
	}
}
