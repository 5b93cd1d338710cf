package handlers

import (
	"net/http"

	"bridge-backend/internal/dto"
	"bridge-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// EscrowHandler exposes the escrow lifecycle over HTTP. The acting avatar is
// always the authenticated caller; the service enforces who may do what.
type EscrowHandler struct {
	escrowService *services.EscrowService
	logger        *logrus.Logger
}

// NewEscrowHandler creates a new escrow handler
func NewEscrowHandler(escrowService *services.EscrowService, logger *logrus.Logger) *EscrowHandler {
	return &EscrowHandler{
		escrowService: escrowService,
		logger:        logger,
	}
}

// CreateEscrowHandler creates an escrow with the caller as payer
// POST /api/escrows
func (h *EscrowHandler) CreateEscrowHandler(c *gin.Context) {
	var req dto.CreateEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "INVALID_REQUEST",
		})
		return
	}

	payerID := c.GetString("user_id")
	escrow, err := h.escrowService.CreateEscrow(c.Request.Context(), &services.CreateEscrowInput{
		PayerAvatarID: payerID,
		PayeeAvatarID: req.PayeeAvatarID,
		PayerAddress:  req.PayerAddress,
		PayeeAddress:  req.PayeeAddress,
		Approvers:     req.Approvers,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Chain:         req.Chain,
		Conditions:    req.Conditions,
		ReleaseDate:   req.ReleaseDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"escrow_id": escrow.ID,
		"payer":     payerID,
		"payee":     req.PayeeAvatarID,
	}).Info("Escrow created")

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"escrow":  dto.NewEscrowResponse(escrow),
	})
}

// GetEscrowHandler returns one escrow
// GET /api/escrows/:id
func (h *EscrowHandler) GetEscrowHandler(c *gin.Context) {
	escrow, err := h.escrowService.GetEscrow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"escrow":  dto.NewEscrowResponse(escrow),
	})
}

// ListEscrowsHandler lists escrows the caller participates in
// GET /api/escrows?status=
func (h *EscrowHandler) ListEscrowsHandler(c *gin.Context) {
	escrows, err := h.escrowService.ListEscrowsFor(c.Request.Context(), c.GetString("user_id"), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]*dto.EscrowResponse, 0, len(escrows))
	for _, escrow := range escrows {
		views = append(views, dto.NewEscrowResponse(escrow))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"escrows": views,
	})
}

// FundEscrowHandler funds an escrow
// POST /api/escrows/:id/fund
func (h *EscrowHandler) FundEscrowHandler(c *gin.Context) {
	escrow, err := h.escrowService.FundEscrow(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"escrow":  dto.NewEscrowResponse(escrow),
	})
}

// ReleaseEscrowHandler releases an escrow to the payee
// POST /api/escrows/:id/release
func (h *EscrowHandler) ReleaseEscrowHandler(c *gin.Context) {
	escrow, err := h.escrowService.ReleaseEscrow(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"escrow":  dto.NewEscrowResponse(escrow),
	})
}

// CancelEscrowHandler cancels an escrow, refunding the payer if funded
// POST /api/escrows/:id/cancel
func (h *EscrowHandler) CancelEscrowHandler(c *gin.Context) {
	escrow, err := h.escrowService.CancelEscrow(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"escrow":  dto.NewEscrowResponse(escrow),
	})
}

// DisputeEscrowHandler raises a dispute on a funded escrow
// POST /api/escrows/:id/dispute
func (h *EscrowHandler) DisputeEscrowHandler(c *gin.Context) {
	var req dto.DisputeEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   "reason is required",
			Code:    "INVALID_REQUEST",
		})
		return
	}

	escrow, err := h.escrowService.DisputeEscrow(c.Request.Context(), c.Param("id"), c.GetString("user_id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"escrow":  dto.NewEscrowResponse(escrow),
	})
}

// ResolveEscrowDisputeHandler settles a disputed escrow. Admin-only.
// POST /api/admin/escrows/:id/resolve
func (h *EscrowHandler) ResolveEscrowDisputeHandler(c *gin.Context) {
	var req dto.ResolveEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   "resolution is required",
			Code:    "INVALID_REQUEST",
		})
		return
	}

	escrow, err := h.escrowService.ResolveEscrowDispute(c.Request.Context(), c.Param("id"), req.Resolution)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"escrow_id":  escrow.ID,
		"resolution": req.Resolution,
	}).Warn("Disputed escrow resolved by admin")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"escrow":  dto.NewEscrowResponse(escrow),
	})
}
