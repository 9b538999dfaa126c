package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pipeflow/deal-todo-api/internal/services"
	"github.com/pipeflow/deal-todo-api/pkg/utils"
)

// respondServiceError maps service-layer failures onto the HTTP surface:
// resolution misses are 404, provider failures are 502, everything else 500.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		utils.SendErrorResponse(c, http.StatusNotFound, "User is not installed", err)
	case errors.Is(err, services.ErrOrganizationNotFound):
		utils.SendErrorResponse(c, http.StatusNotFound, "Company is not installed", err)
	case services.IsProviderError(err):
		utils.SendErrorResponse(c, http.StatusBadGateway, "CRM platform request failed", err)
	default:
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
