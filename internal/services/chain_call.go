package services

import (
	"context"
	"time"

	"bridge-backend/internal/metrics"

	"github.com/shopspring/decimal"
)

// callChain runs one gateway round trip under the registry's per-call
// timeout and records call metrics. fn returns the transaction hash.
func callChain(ctx context.Context, timeout time.Duration, chain, operation string, fn func(context.Context) (string, error)) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	txHash, err := fn(callCtx)
	metrics.GatewayCallDuration.WithLabelValues(chain, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayCalls.WithLabelValues(chain, operation, "error").Inc()
		return "", err
	}
	metrics.GatewayCalls.WithLabelValues(chain, operation, "success").Inc()
	return txHash, nil
}

// callChainBalance is callChain for balance reads
func callChainBalance(ctx context.Context, timeout time.Duration, chain string, fn func(context.Context) (decimal.Decimal, error)) (decimal.Decimal, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	balance, err := fn(callCtx)
	metrics.GatewayCallDuration.WithLabelValues(chain, "balance").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayCalls.WithLabelValues(chain, "balance", "error").Inc()
		return decimal.Zero, err
	}
	metrics.GatewayCalls.WithLabelValues(chain, "balance", "success").Inc()
	return balance, nil
}
