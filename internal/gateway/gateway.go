// Package gateway provides typed per-chain capabilities for locking,
// releasing, and minting funds. Gateways are selected through a registry
// built from configuration; there is no runtime method lookup and no ambient
// "current provider" state.
package gateway

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bridge-backend/internal/config"

	"github.com/shopspring/decimal"
)

// TxStatus remote transaction status
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
	TxStatusFailed    TxStatus = "failed"
)

// ChainGateway is the per-chain capability consumed by the orchestration
// engine. Every call is one bounded network round trip; the gateway holds no
// cross-call state (in-flight state lives in the order or escrow).
type ChainGateway interface {
	// Lock commits funds on the chain so they cannot be spent while a swap
	// is in flight. reference keys the call to its order/escrow for
	// idempotency on the remote side.
	Lock(ctx context.Context, address string, amount decimal.Decimal, reference string) (string, error)

	// Release returns custody of already-held funds to address.
	Release(ctx context.Context, address string, amount decimal.Decimal, reference string) (string, error)

	// Mint produces the corresponding value on the destination chain.
	// evidence carries the verified proof id backing the mint.
	Mint(ctx context.Context, address string, amount decimal.Decimal, evidence string) (string, error)

	// GetBalance reads the current balance of address.
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)

	// GetTransactionStatus reports the chain's view of txHash.
	GetTransactionStatus(ctx context.Context, txHash string) (TxStatus, error)
}

// Registry resolves a ChainGateway by chain name. It is immutable after
// construction; provider selection is a pure function of configuration.
type Registry struct {
	gateways    map[string]ChainGateway
	callTimeout time.Duration
}

// NewRegistry builds a registry from the chains configuration
func NewRegistry(cfg config.ChainsConfig) (*Registry, error) {
	callTimeout := 30 * time.Second
	if cfg.CallTimeout > 0 {
		callTimeout = time.Duration(cfg.CallTimeout) * time.Second
	}

	r := &Registry{
		gateways:    make(map[string]ChainGateway),
		callTimeout: callTimeout,
	}

	for name, network := range cfg.Networks {
		var (
			gw  ChainGateway
			err error
		)
		switch network.Kind {
		case "evm":
			gw, err = newEVMGateway(name, network, callTimeout)
		case "rpc", "":
			gw = newRPCGateway(name, network, callTimeout)
		default:
			err = fmt.Errorf("unknown gateway kind %q", network.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gateway for chain %s: %w", name, err)
		}
		r.gateways[name] = gw
	}

	return r, nil
}

// NewRegistryWithGateways builds a registry from pre-constructed gateways
func NewRegistryWithGateways(gateways map[string]ChainGateway) *Registry {
	return &Registry{
		gateways:    gateways,
		callTimeout: 30 * time.Second,
	}
}

// Get returns the gateway for chain, or an error when the chain is not
// configured
func (r *Registry) Get(chain string) (ChainGateway, error) {
	gw, ok := r.gateways[chain]
	if !ok {
		return nil, fmt.Errorf("no gateway configured for chain %q", chain)
	}
	return gw, nil
}

// Chains returns the configured chain names, sorted
func (r *Registry) Chains() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallTimeout returns the per-call timeout applied to gateway round trips
func (r *Registry) CallTimeout() time.Duration {
	return r.callTimeout
}
