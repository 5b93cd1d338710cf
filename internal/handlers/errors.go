package handlers

import (
	"net/http"

	"bridge-backend/internal/dto"
	"bridge-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// statusForKind maps service error kinds to HTTP status codes
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotAuthorized:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindPreconditionFailed, services.KindConcurrentModification:
		return http.StatusConflict
	case services.KindExpired:
		return http.StatusGone
	case services.KindProofVerification:
		return http.StatusUnprocessableEntity
	case services.KindRemoteCallFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes the standard error envelope for a service error
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	c.JSON(statusForKind(kind), dto.ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Code:    string(kind),
	})
}
