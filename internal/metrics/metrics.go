package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Database connection metrics
	// ============================================
	DBConnectionPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_db_connection_pool_size",
		Help: "Database connection pool size",
	})

	DBConnectionIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_db_connection_idle",
		Help: "Number of idle database connections",
	})

	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	// ============================================
	// Order state machine metrics
	// ============================================
	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_order_transitions_total",
			Help: "Total number of order state transitions",
		},
		[]string{"from", "to"},
	)

	OrderTransitionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_order_transition_conflicts_total",
		Help: "Total number of order transitions lost to an optimistic race",
	})

	OrdersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_orders_expired_total",
		Help: "Total number of orders failed by the expiry sweep",
	})

	OrdersDisputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_orders_disputed_total",
		Help: "Total number of orders escalated to disputed",
	})

	// ============================================
	// Proof gate metrics
	// ============================================
	ProofGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_proof_generations_total",
			Help: "Total number of proof generation attempts",
		},
		[]string{"result"}, // generated, generation_failed, verified, rejected, verify_error
	)

	ProofDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_proof_duration_seconds",
		Help:    "End-to-end generate-and-verify duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	// ============================================
	// Chain gateway metrics
	// ============================================
	GatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_gateway_calls_total",
			Help: "Total number of chain gateway calls",
		},
		[]string{"chain", "operation", "result"},
	)

	GatewayCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_gateway_call_duration_seconds",
			Help:    "Chain gateway call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain", "operation"},
	)

	// ============================================
	// Escrow and treasury metrics
	// ============================================
	EscrowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_escrow_transitions_total",
			Help: "Total number of escrow state transitions",
		},
		[]string{"from", "to"},
	)

	AllocationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_treasury_allocation_runs_total",
			Help: "Total number of treasury allocation runs",
		},
		[]string{"result"}, // complete, partial, failed
	)

	AllocationTransfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_treasury_allocation_transfers_total",
			Help: "Total number of per-category allocation transfers",
		},
		[]string{"result"},
	)

	// ============================================
	// WebSocket push metrics
	// ============================================
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	WebSocketPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_websocket_pushes_total",
			Help: "Total number of WebSocket status pushes",
		},
		[]string{"result"},
	)
)
