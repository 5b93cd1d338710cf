package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"bridge-backend/internal/push"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades connections and feeds order subscriptions into
// the push service
type WebSocketHandler struct {
	pushService *push.Service
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(pushService *push.Service) *WebSocketHandler {
	return &WebSocketHandler{
		pushService: pushService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// subscribeMessage client -> server subscription request
type subscribeMessage struct {
	Action  string `json:"action"` // "subscribe"
	OrderID string `json:"order_id"`
}

// HandleWebSocket handles one WebSocket connection
// GET /api/ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	// Greet before registering: once registered, the push service's write
	// loop owns all writes to the connection
	conn.WriteJSON(map[string]interface{}{
		"type":      "connected",
		"message":   "Connected to order status stream",
		"timestamp": time.Now(),
	})

	client := h.pushService.Register(conn)
	defer func() {
		h.pushService.Unregister(client)
		conn.Close()
	}()

	// Read loop: the client may narrow the stream to specific orders;
	// without a subscription it receives every update
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg subscribeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Action == "subscribe" && msg.OrderID != "" {
			client.Subscribe(msg.OrderID)
		}
	}
}
