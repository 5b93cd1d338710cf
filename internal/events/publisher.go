// Package events publishes state-transition events to NATS so downstream
// consumers (indexers, notification services) can react without polling
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"bridge-backend/internal/config"

	"github.com/nats-io/nats.go"
)

// Subjects published by the engine
const (
	SubjectOrderTransition  = "bridge.orders.transition"
	SubjectEscrowTransition = "bridge.escrows.transition"
	SubjectAllocationRun    = "bridge.treasury.allocation"
)

// OrderTransitionEvent is emitted after every committed order transition
type OrderTransitionEvent struct {
	OrderID    string    `json:"order_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	FromChain  string    `json:"from_chain"`
	ToChain    string    `json:"to_chain"`
	TxHash     string    `json:"tx_hash,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EscrowTransitionEvent is emitted after every committed escrow transition
type EscrowTransitionEvent struct {
	EscrowID   string    `json:"escrow_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id,omitempty"`
	TxHash     string    `json:"tx_hash,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AllocationRunEvent is emitted after a treasury allocation run finishes
type AllocationRunEvent struct {
	TreasuryID string            `json:"treasury_id"`
	Transfers  map[string]string `json:"transfers"` // category -> txHash
	Failed     []string          `json:"failed_categories,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Publisher publishes engine events to NATS. A nil Publisher is valid and
// drops events, so the engine runs without a broker in tests and dev.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS using the application configuration
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("NATS not configured")
	}

	opts := []nats.Option{
		nats.Name("bridge-backend"),
		nats.MaxReconnects(cfg.MaxReconnects),
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(time.Duration(cfg.ReconnectWait)*time.Second))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	p := &Publisher{conn: conn}

	if cfg.EnableJetStream {
		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to get JetStream context: %w", err)
		}
		streamName := cfg.StreamName
		if streamName == "" {
			streamName = "bridge-events"
		}
		// Idempotent: AddStream succeeds when the stream already exists with
		// the same config
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{"bridge.>"},
		}); err != nil {
			log.Printf("⚠️ [Events] Failed to ensure stream %s: %v", streamName, err)
		}
		p.js = js
	}

	log.Printf("✅ NATS publisher connected: %s", cfg.URL)
	return p, nil
}

// PublishOrderTransition publishes an order transition event
func (p *Publisher) PublishOrderTransition(event *OrderTransitionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.publish(SubjectOrderTransition, event)
}

// PublishEscrowTransition publishes an escrow transition event
func (p *Publisher) PublishEscrowTransition(event *EscrowTransitionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.publish(SubjectEscrowTransition, event)
}

// PublishAllocationRun publishes a treasury allocation run event
func (p *Publisher) PublishAllocationRun(event *AllocationRunEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.publish(SubjectAllocationRun, event)
}

// publish serializes and sends one event; publish failures are logged, never
// propagated, event delivery must not fail a committed transition
func (p *Publisher) publish(subject string, event interface{}) {
	if p == nil || p.conn == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ [Events] Failed to marshal event for %s: %v", subject, err)
		return
	}

	if p.js != nil {
		if _, err := p.js.Publish(subject, data); err != nil {
			log.Printf("❌ [Events] Failed to publish to %s: %v", subject, err)
		}
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		log.Printf("❌ [Events] Failed to publish to %s: %v", subject, err)
	}
}

// Close drains the connection
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
	log.Println("🛑 NATS publisher closed")
}
