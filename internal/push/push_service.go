// Package push delivers order status updates to subscribed WebSocket clients
package push

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"bridge-backend/internal/metrics"

	"github.com/gorilla/websocket"
)

// StatusUpdate is the message pushed when an order changes state
type StatusUpdate struct {
	Type      string    `json:"type"` // always "order_status"
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one connected WebSocket subscriber
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	orders map[string]bool // subscribed order ids; empty means all
	mu     sync.RWMutex
}

// Service fans order status updates out to connected clients.
// A nil Service is valid and drops updates.
type Service struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewService creates a new push service
func NewService() *Service {
	return &Service{
		clients: make(map[*Client]bool),
	}
}

// Register adds a connection and starts its writer; the returned client is
// handed to the read loop owned by the HTTP handler
func (s *Service) Register(conn *websocket.Conn) *Client {
	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 64),
		orders: make(map[string]bool),
	}

	s.mu.Lock()
	s.clients[client] = true
	count := len(s.clients)
	s.mu.Unlock()
	metrics.WebSocketClients.Set(float64(count))

	go client.writeLoop()

	log.Printf("🔌 [Push] Client connected (%d total)", count)
	return client
}

// Unregister removes a connection
func (s *Service) Unregister(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
	count := len(s.clients)
	s.mu.Unlock()
	metrics.WebSocketClients.Set(float64(count))
}

// Subscribe subscribes the client to updates for orderID
func (c *Client) Subscribe(orderID string) {
	c.mu.Lock()
	c.orders[orderID] = true
	c.mu.Unlock()
}

// wants reports whether the client should receive updates for orderID
func (c *Client) wants(orderID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.orders) == 0 {
		return true
	}
	return c.orders[orderID]
}

// writeLoop serializes writes to the connection
func (c *Client) writeLoop() {
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// PushOrderStatus notifies subscribed clients of an order status change.
// Slow clients are skipped, not waited on.
func (s *Service) PushOrderStatus(orderID, status, txHash, reason string) {
	if s == nil {
		return
	}

	update := &StatusUpdate{
		Type:      "order_status",
		OrderID:   orderID,
		Status:    status,
		TxHash:    txHash,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("❌ [Push] Failed to marshal status update: %v", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if !client.wants(orderID) {
			continue
		}
		select {
		case client.send <- data:
			metrics.WebSocketPushes.WithLabelValues("delivered").Inc()
		default:
			metrics.WebSocketPushes.WithLabelValues("dropped").Inc()
		}
	}
}
