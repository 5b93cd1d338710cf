package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bridge-backend/internal/gateway"
	"bridge-backend/internal/models"

	"github.com/shopspring/decimal"
)

type orderFixture struct {
	service   *OrderService
	orderRepo *fakeOrderRepo
	auditRepo *fakeAuditRepo
	source    *fakeChainGateway
	dest      *fakeChainGateway
	proof     *fakeProofBackend
}

func newOrderFixture() *orderFixture {
	orderRepo := newFakeOrderRepo()
	auditRepo := &fakeAuditRepo{}
	source := &fakeChainGateway{}
	dest := &fakeChainGateway{}
	proof := &fakeProofBackend{valid: true}

	registry := gateway.NewRegistryWithGateways(map[string]gateway.ChainGateway{
		"ethereum": source,
		"aleo":     dest,
	})

	service := NewOrderService(orderRepo, auditRepo, registry, NewProofGate(proof), nil, nil)
	return &orderFixture{
		service:   service,
		orderRepo: orderRepo,
		auditRepo: auditRepo,
		source:    source,
		dest:      dest,
		proof:     proof,
	}
}

func validOrderInput() *CreateOrderInput {
	return &CreateOrderInput{
		FromChain:          "ethereum",
		ToChain:            "aleo",
		FromToken:          "USDC",
		ToToken:            "wUSDC",
		FromAddress:        "0xpayer",
		DestinationAddress: "aleo1dest",
		UserID:             "user-1",
		Amount:             decimal.RequireFromString("100.5"),
		ExchangeRate:       decimal.RequireFromString("0.98"),
		ExpiresInMinutes:   60,
	}
}

func TestCreateOrderFreezesToAmount(t *testing.T) {
	f := newOrderFixture()

	order, err := f.service.CreateOrder(context.Background(), validOrderInput())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	want := decimal.RequireFromString("98.49")
	if !order.ToAmount.Equal(want) {
		t.Fatalf("expected to_amount %s, got %s", want, order.ToAmount)
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if order.ExpiresAt.Before(time.Now()) {
		t.Fatal("expected a future expiry")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newOrderFixture()

	cases := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{"same chain", func(in *CreateOrderInput) { in.ToChain = in.FromChain }},
		{"zero amount", func(in *CreateOrderInput) { in.Amount = decimal.Zero }},
		{"negative amount", func(in *CreateOrderInput) { in.Amount = decimal.NewFromInt(-1) }},
		{"zero rate", func(in *CreateOrderInput) { in.ExchangeRate = decimal.Zero }},
		{"missing from address", func(in *CreateOrderInput) { in.FromAddress = "" }},
		{"missing destination", func(in *CreateOrderInput) { in.DestinationAddress = "" }},
		{"unknown chain", func(in *CreateOrderInput) { in.FromChain = "dogecoin" }},
		{"zero expiry", func(in *CreateOrderInput) { in.ExpiresInMinutes = 0 }},
		{"negative expiry", func(in *CreateOrderInput) { in.ExpiresInMinutes = -5 }},
		{"audit without key", func(in *CreateOrderInput) { in.EnableViewingKeyAudit = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validOrderInput()
			tc.mutate(input)
			_, err := f.service.CreateOrder(context.Background(), input)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateOrderHashesViewingKey(t *testing.T) {
	f := newOrderFixture()

	input := validOrderInput()
	input.ViewingKey = "super-secret-viewing-key"
	input.PrivacyRouted = true
	input.EnableViewingKeyAudit = true

	order, err := f.service.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ViewingKeyHash == "" {
		t.Fatal("expected a viewing key hash")
	}
	if order.ViewingKeyHash == input.ViewingKey {
		t.Fatal("raw viewing key must never be stored")
	}
}

func TestLockFundsRecordsEvidence(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.service.CreateOrder(context.Background(), validOrderInput())

	locked, err := f.service.LockFunds(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("lock funds: %v", err)
	}
	if locked.Status != models.OrderStatusLocked {
		t.Fatalf("expected locked, got %s", locked.Status)
	}
	if locked.LockTxHash == "" {
		t.Fatal("expected lock evidence")
	}
	if f.source.lockCalls != 1 {
		t.Fatalf("expected 1 lock call, got %d", f.source.lockCalls)
	}
}

func TestLockFundsTwiceReportsAlreadyDone(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.service.CreateOrder(context.Background(), validOrderInput())
	if _, err := f.service.LockFunds(context.Background(), order.ID); err != nil {
		t.Fatalf("first lock: %v", err)
	}

	_, err := f.service.LockFunds(context.Background(), order.ID)
	if !errors.Is(err, ErrAlreadyDone) {
		t.Fatalf("expected already-done, got %v", err)
	}
	if f.source.lockCalls != 1 {
		t.Fatalf("duplicate lock reached the chain: %d calls", f.source.lockCalls)
	}
}

func TestLockFundsRemoteFailureLeavesPending(t *testing.T) {
	f := newOrderFixture()
	f.source.lockErr = errors.New("rpc timeout")
	order, _ := f.service.CreateOrder(context.Background(), validOrderInput())

	_, err := f.service.LockFunds(context.Background(), order.ID)
	if !errors.Is(err, ErrRemoteCallFailed) {
		t.Fatalf("expected remote failure, got %v", err)
	}

	reloaded, _ := f.service.GetOrder(context.Background(), order.ID)
	if reloaded.Status != models.OrderStatusPending {
		t.Fatalf("failed remote call advanced state to %s", reloaded.Status)
	}
	if reloaded.LockTxHash != "" {
		t.Fatal("no evidence may be recorded for a failed call")
	}
}

func TestLockFundsLostRace(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.service.CreateOrder(context.Background(), validOrderInput())

	// A concurrent sweep fails the order between the read and the write
	f.orderRepo.beforeAdvance = func(id string) {
		f.orderRepo.beforeAdvance = nil
		f.orderRepo.setStatus(id, models.OrderStatusFailed)
	}

	_, err := f.service.LockFunds(context.Background(), order.ID)
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected concurrent modification, got %v", err)
	}
}

func newPrivacyOrder(t *testing.T, f *orderFixture) *models.BridgeOrder {
	t.Helper()
	input := validOrderInput()
	input.PrivacyRouted = true
	input.ViewingKey = "vk"
	input.EnableViewingKeyAudit = true
	order, err := f.service.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := f.service.LockFunds(context.Background(), order.ID); err != nil {
		t.Fatalf("lock funds: %v", err)
	}
	return order
}

func TestSubmitProofAdvancesToMinting(t *testing.T) {
	f := newOrderFixture()
	order := newPrivacyOrder(t, f)

	updated, err := f.service.SubmitProof(context.Background(), order.ID, nil)
	if err != nil {
		t.Fatalf("submit proof: %v", err)
	}
	if updated.Status != models.OrderStatusMinting {
		t.Fatalf("expected minting, got %s", updated.Status)
	}
	if updated.ProofID != "proof-1" {
		t.Fatalf("expected proof evidence, got %q", updated.ProofID)
	}
	if f.proof.lastReq.Inputs["order_id"] != order.ID {
		t.Fatal("proof request not bound to the order")
	}

	// proof_submitted plus viewing_key_disclosed for the audited key
	entries, _ := f.auditRepo.FindByTransaction(context.Background(), order.ID)
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
}

func TestSubmitProofRejectionIsTerminal(t *testing.T) {
	f := newOrderFixture()
	f.proof.valid = false
	order := newPrivacyOrder(t, f)

	_, err := f.service.SubmitProof(context.Background(), order.ID, nil)
	if !errors.Is(err, ErrProofVerification) {
		t.Fatalf("expected proof verification failure, got %v", err)
	}

	reloaded, _ := f.service.GetOrder(context.Background(), order.ID)
	if reloaded.Status != models.OrderStatusFailed {
		t.Fatalf("expected terminal failed, got %s", reloaded.Status)
	}
	if reloaded.FailReason != models.FailReasonProofVerificationFailed {
		t.Fatalf("expected proof_verification_failed, got %s", reloaded.FailReason)
	}
	if f.dest.mintCalls != 0 {
		t.Fatal("rejected proof must never reach the destination chain")
	}

	// No automatic retry of the rejected artifact
	if f.proof.generated != 1 || f.proof.verified != 1 {
		t.Fatalf("expected one generate/verify, got %d/%d", f.proof.generated, f.proof.verified)
	}
}

func TestSubmitProofGenerationFailureReturnsToLocked(t *testing.T) {
	f := newOrderFixture()
	f.proof.generateErr = errors.New("prover overloaded")
	order := newPrivacyOrder(t, f)

	_, err := f.service.SubmitProof(context.Background(), order.ID, nil)
	if !errors.Is(err, ErrRemoteCallFailed) {
		t.Fatalf("expected remote failure, got %v", err)
	}

	reloaded, _ := f.service.GetOrder(context.Background(), order.ID)
	if reloaded.Status != models.OrderStatusLocked {
		t.Fatalf("expected retriable locked, got %s", reloaded.Status)
	}
}

func TestCompleteMintRequiresProofForPrivacyOrders(t *testing.T) {
	f := newOrderFixture()
	order := newPrivacyOrder(t, f)

	_, err := f.service.CompleteMint(context.Background(), order.ID)
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	if f.dest.mintCalls != 0 {
		t.Fatal("mint must not run without a verified proof")
	}
}

func TestCompleteMintPlainOrder(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.service.CreateOrder(context.Background(), validOrderInput())
	if _, err := f.service.LockFunds(context.Background(), order.ID); err != nil {
		t.Fatalf("lock funds: %v", err)
	}

	completed, err := f.service.CompleteMint(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("complete mint: %v", err)
	}
	if completed.Status != models.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if completed.MintTxHash == "" {
		t.Fatal("expected mint evidence")
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completed_at")
	}
	if len(f.dest.minted) != 1 || !f.dest.minted[0].Equal(order.ToAmount) {
		t.Fatalf("expected mint of frozen to_amount %s, got %v", order.ToAmount, f.dest.minted)
	}
}

func TestCompleteMintRemoteFailureStaysRetriable(t *testing.T) {
	f := newOrderFixture()
	f.dest.mintErr = errors.New("rpc down")
	order, _ := f.service.CreateOrder(context.Background(), validOrderInput())
	f.service.LockFunds(context.Background(), order.ID)

	_, err := f.service.CompleteMint(context.Background(), order.ID)
	if !errors.Is(err, ErrRemoteCallFailed) {
		t.Fatalf("expected remote failure, got %v", err)
	}

	reloaded, _ := f.service.GetOrder(context.Background(), order.ID)
	if reloaded.Status != models.OrderStatusLocked {
		t.Fatalf("expected locked after failed mint, got %s", reloaded.Status)
	}

	// Retry succeeds once the chain recovers
	f.dest.mintErr = nil
	completed, err := f.service.CompleteMint(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("retry mint: %v", err)
	}
	if completed.Status != models.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
}

func TestExpireStale(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	pending, _ := f.service.CreateOrder(ctx, validOrderInput())
	locked, _ := f.service.CreateOrder(ctx, validOrderInput())
	f.service.LockFunds(ctx, locked.ID)
	minting, _ := f.service.CreateOrder(ctx, validOrderInput())
	f.service.LockFunds(ctx, minting.ID)
	f.orderRepo.setStatus(minting.ID, models.OrderStatusMinting)
	fresh, _ := f.service.CreateOrder(ctx, validOrderInput())

	// Push everything but fresh past its deadline
	past := time.Now().Add(-time.Minute)
	for _, id := range []string{pending.ID, locked.ID, minting.ID} {
		f.orderRepo.mu.Lock()
		f.orderRepo.orders[id].ExpiresAt = past
		f.orderRepo.mu.Unlock()
	}

	expired, disputed, err := f.service.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("expire stale: %v", err)
	}
	if expired != 2 {
		t.Fatalf("expected 2 expired, got %d", expired)
	}
	if disputed != 1 {
		t.Fatalf("expected 1 disputed, got %d", disputed)
	}

	for _, id := range []string{pending.ID, locked.ID} {
		order, _ := f.service.GetOrder(ctx, id)
		if order.Status != models.OrderStatusFailed || order.FailReason != models.FailReasonExpired {
			t.Fatalf("order %s: expected failed/expired, got %s/%s", id, order.Status, order.FailReason)
		}
	}

	escalated, _ := f.service.GetOrder(ctx, minting.ID)
	if escalated.Status != models.OrderStatusDisputed {
		t.Fatalf("expected minting order escalated to disputed, got %s", escalated.Status)
	}

	untouched, _ := f.service.GetOrder(ctx, fresh.ID)
	if untouched.Status != models.OrderStatusPending {
		t.Fatalf("fresh order swept: %s", untouched.Status)
	}
}

func TestResolveDisputeRollsBack(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	order, _ := f.service.CreateOrder(ctx, validOrderInput())
	f.service.LockFunds(ctx, order.ID)
	f.orderRepo.setStatus(order.ID, models.OrderStatusDisputed)

	resolved, err := f.service.ResolveDispute(ctx, order.ID)
	if err != nil {
		t.Fatalf("resolve dispute: %v", err)
	}
	if resolved.Status != models.OrderStatusRolledBack {
		t.Fatalf("expected rolled_back, got %s", resolved.Status)
	}
	if resolved.ReleaseTxHash == "" {
		t.Fatal("expected release evidence")
	}
	if len(f.source.releasedTo) != 1 || f.source.releasedTo[0] != order.FromAddress {
		t.Fatalf("rollback must refund the payer, released to %v", f.source.releasedTo)
	}
	if !f.source.released[0].Equal(order.Amount) {
		t.Fatalf("rollback must release the source amount %s, got %s", order.Amount, f.source.released[0])
	}
}

func TestResolveDisputeRequiresDisputed(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.service.CreateOrder(context.Background(), validOrderInput())

	_, err := f.service.ResolveDispute(context.Background(), order.ID)
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
}
