package gateway

import (
	"context"
	"reflect"
	"testing"
	"time"

	"bridge-backend/internal/config"

	"github.com/shopspring/decimal"
)

type stubGateway struct{}

func (stubGateway) Lock(ctx context.Context, address string, amount decimal.Decimal, reference string) (string, error) {
	return "0x1", nil
}
func (stubGateway) Release(ctx context.Context, address string, amount decimal.Decimal, reference string) (string, error) {
	return "0x2", nil
}
func (stubGateway) Mint(ctx context.Context, address string, amount decimal.Decimal, evidence string) (string, error) {
	return "0x3", nil
}
func (stubGateway) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (stubGateway) GetTransactionStatus(ctx context.Context, txHash string) (TxStatus, error) {
	return TxStatusCompleted, nil
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistryWithGateways(map[string]ChainGateway{
		"ethereum": stubGateway{},
		"aleo":     stubGateway{},
	})

	if _, err := registry.Get("ethereum"); err != nil {
		t.Fatalf("expected ethereum gateway, got %v", err)
	}
	if _, err := registry.Get("solana"); err == nil {
		t.Fatal("expected error for unconfigured chain")
	}
}

func TestRegistryChainsSorted(t *testing.T) {
	registry := NewRegistryWithGateways(map[string]ChainGateway{
		"ethereum": stubGateway{},
		"aleo":     stubGateway{},
		"base":     stubGateway{},
	})

	got := registry.Chains()
	want := []string{"aleo", "base", "ethereum"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := config.ChainsConfig{
		CallTimeout: 45,
		Networks: map[string]config.NetworkConfig{
			"aleo": {Kind: "rpc", RPCEndpoints: []string{"http://localhost:3030"}},
		},
	}

	registry, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	if registry.CallTimeout() != 45*time.Second {
		t.Fatalf("expected 45s call timeout, got %s", registry.CallTimeout())
	}
	if _, err := registry.Get("aleo"); err != nil {
		t.Fatalf("expected aleo gateway, got %v", err)
	}
}

func TestNewRegistryRejectsUnknownKind(t *testing.T) {
	cfg := config.ChainsConfig{
		Networks: map[string]config.NetworkConfig{
			"mystery": {Kind: "carrier-pigeon"},
		},
	}

	if _, err := NewRegistry(cfg); err == nil {
		t.Fatal("expected error for unknown gateway kind")
	}
}
