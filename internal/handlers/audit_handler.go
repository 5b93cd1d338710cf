package handlers

import (
	"net/http"
	"strconv"

	"bridge-backend/internal/dto"
	"bridge-backend/internal/repository"

	"github.com/gin-gonic/gin"
)

// AuditHandler exposes the append-only audit trail over HTTP. Admin-only.
type AuditHandler struct {
	auditRepo repository.AuditRepository
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditRepo repository.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// ListAuditEntriesHandler lists audit entries, newest first
// GET /api/admin/audit?page=&page_size=
func (h *AuditHandler) ListAuditEntriesHandler(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	entries, total, err := h.auditRepo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Success: false,
			Error:   "Failed to list audit entries",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entries": entries,
		"pagination": dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}

// GetTransactionAuditHandler lists the audit trail of one transaction,
// oldest first
// GET /api/admin/audit/:transaction_id
func (h *AuditHandler) GetTransactionAuditHandler(c *gin.Context) {
	entries, err := h.auditRepo.FindByTransaction(c.Request.Context(), c.Param("transaction_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Success: false,
			Error:   "Failed to load audit trail",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entries": entries,
	})
}
