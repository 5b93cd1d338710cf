package handlers

import (
	"net/http"

	"bridge-backend/internal/dto"
	"bridge-backend/internal/models"
	"bridge-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TreasuryHandler exposes treasury management and allocation over HTTP
type TreasuryHandler struct {
	treasuryService *services.TreasuryService
	logger          *logrus.Logger
}

// NewTreasuryHandler creates a new treasury handler
func NewTreasuryHandler(treasuryService *services.TreasuryService, logger *logrus.Logger) *TreasuryHandler {
	return &TreasuryHandler{
		treasuryService: treasuryService,
		logger:          logger,
	}
}

// CreateTreasuryHandler creates a treasury owned by the caller
// POST /api/treasuries
func (h *TreasuryHandler) CreateTreasuryHandler(c *gin.Context) {
	var req dto.CreateTreasuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "INVALID_REQUEST",
		})
		return
	}

	input := &services.CreateTreasuryInput{
		OwnerAvatarID:    c.GetString("user_id"),
		Name:             req.Name,
		Budgets:          req.Budgets,
		WorkflowTrigger:  models.WorkflowTrigger(req.WorkflowTrigger),
		WorkflowInterval: req.WorkflowInterval,
	}
	for _, w := range req.Wallets {
		input.Wallets = append(input.Wallets, services.TreasuryWalletInput{
			Chain:    w.Chain,
			Address:  w.Address,
			Category: w.Category,
			IsMain:   w.IsMain,
		})
	}

	treasury, err := h.treasuryService.CreateTreasury(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"treasury_id": treasury.ID,
		"owner":       treasury.OwnerAvatarID,
	}).Info("Treasury created")

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"treasury": dto.NewTreasuryResponse(treasury),
	})
}

// GetTreasuryHandler returns one treasury
// GET /api/treasuries/:id
func (h *TreasuryHandler) GetTreasuryHandler(c *gin.Context) {
	treasury, err := h.treasuryService.GetTreasury(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"treasury": dto.NewTreasuryResponse(treasury),
	})
}

// ListTreasuriesHandler lists the caller's treasuries
// GET /api/treasuries
func (h *TreasuryHandler) ListTreasuriesHandler(c *gin.Context) {
	treasuries, err := h.treasuryService.ListTreasuries(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]*dto.TreasuryResponse, 0, len(treasuries))
	for _, treasury := range treasuries {
		views = append(views, dto.NewTreasuryResponse(treasury))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"treasuries": views,
	})
}

// ExecuteAllocationHandler runs one allocation for a treasury
// POST /api/treasuries/:id/allocate
func (h *TreasuryHandler) ExecuteAllocationHandler(c *gin.Context) {
	result, err := h.treasuryService.ExecuteFundAllocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"treasury_id": result.TreasuryID,
		"transfers":   len(result.Transfers),
		"failed":      len(result.Failed),
	}).Info("Allocation run finished")

	// Partial failure is a successful run with failed categories listed
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"complete":   result.Complete(),
		"allocation": result,
	})
}

// GetBalanceSummaryHandler reads all wallet balances of a treasury
// GET /api/treasuries/:id/balances
func (h *TreasuryHandler) GetBalanceSummaryHandler(c *gin.Context) {
	summary, err := h.treasuryService.GetBalanceSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": summary,
	})
}
