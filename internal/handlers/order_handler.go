package handlers

import (
	"net/http"
	"strconv"

	"bridge-backend/internal/dto"
	"bridge-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// OrderHandler exposes the bridge order lifecycle over HTTP
type OrderHandler struct {
	orderService *services.OrderService
	logger       *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *services.OrderService, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// CreateOrderHandler creates a bridge order
// POST /api/orders
func (h *OrderHandler) CreateOrderHandler(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "INVALID_REQUEST",
		})
		return
	}

	userID := c.GetString("user_id")
	privacyRouted := req.RequireProofVerification || req.ViewingKey != ""

	order, err := h.orderService.CreateOrder(c.Request.Context(), &services.CreateOrderInput{
		FromChain:             req.FromChain,
		ToChain:               req.ToChain,
		FromToken:             req.FromToken,
		ToToken:               req.ToToken,
		FromAddress:           req.FromAddress,
		DestinationAddress:    req.DestinationAddress,
		UserID:                userID,
		Amount:                req.Amount,
		ExchangeRate:          req.ExchangeRate,
		ExpiresInMinutes:      req.ExpiresInMinutes,
		PrivacyRouted:         privacyRouted,
		ViewingKey:            req.ViewingKey,
		EnableViewingKeyAudit: req.EnableViewingKeyAudit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"user_id":    userID,
		"from_chain": order.FromChain,
		"to_chain":   order.ToChain,
	}).Info("Order created")

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"order":   dto.NewOrderResponse(order),
	})
}

// GetOrderHandler returns one order
// GET /api/orders/:id
func (h *OrderHandler) GetOrderHandler(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   dto.NewOrderResponse(order),
	})
}

// ListOrdersHandler returns the caller's orders, paginated
// GET /api/orders?status=&page=&page_size=
func (h *OrderHandler) ListOrdersHandler(c *gin.Context) {
	userID := c.GetString("user_id")
	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), userID, status, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.OrderListResponse{
		Success: true,
		Orders:  make([]*dto.OrderResponse, 0, len(orders)),
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}
	for _, order := range orders {
		resp.Orders = append(resp.Orders, dto.NewOrderResponse(order))
	}
	c.JSON(http.StatusOK, resp)
}

// LockFundsHandler locks the source funds for an order
// POST /api/orders/:id/lock
func (h *OrderHandler) LockFundsHandler(c *gin.Context) {
	order, err := h.orderService.LockFunds(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   dto.NewOrderResponse(order),
	})
}

// SubmitProofHandler runs the proof gate for a privacy-routed order
// POST /api/orders/:id/proof
func (h *OrderHandler) SubmitProofHandler(c *gin.Context) {
	var req dto.SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "INVALID_REQUEST",
		})
		return
	}

	order, err := h.orderService.SubmitProof(c.Request.Context(), c.Param("id"), &services.SubmitProofInput{
		ProgramRef: req.ProgramRef,
		Inputs:     req.Inputs,
		Outputs:    req.Outputs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   dto.NewOrderResponse(order),
	})
}

// CompleteMintHandler mints on the destination chain and completes the order
// POST /api/orders/:id/mint
func (h *OrderHandler) CompleteMintHandler(c *gin.Context) {
	order, err := h.orderService.CompleteMint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   dto.NewOrderResponse(order),
	})
}

// ResolveDisputeHandler rolls a disputed order back. Admin-only.
// POST /api/admin/orders/:id/resolve
func (h *OrderHandler) ResolveDisputeHandler(c *gin.Context) {
	var req dto.ResolveDisputeRequest
	_ = c.ShouldBindJSON(&req) // note is optional

	order, err := h.orderService.ResolveDispute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"note":     req.Note,
	}).Warn("Disputed order rolled back by admin")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   dto.NewOrderResponse(order),
	})
}
