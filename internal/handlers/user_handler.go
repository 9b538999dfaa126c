package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pipeflow/deal-todo-api/internal/middleware"
	"github.com/pipeflow/deal-todo-api/internal/services"
	"github.com/pipeflow/deal-todo-api/pkg/utils"
)

// UserHandler serves the profile refresh endpoint behind the panel and
// settings surfaces.
type UserHandler struct {
	installations *services.InstallationService
}

func NewUserHandler(installations *services.InstallationService) *UserHandler {
	return &UserHandler{installations: installations}
}

// Me re-fetches the caller's profile from the CRM platform with the stored
// token, persists the refreshed attributes and returns the profile.
func (h *UserHandler) Me(c *gin.Context) {
	userID, companyID := middleware.TenantIDs(c)

	profile, err := h.installations.RefreshProfile(c.Request.Context(), userID, companyID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SendSuccessResponse(c, gin.H{
		"id":              profile.UserID,
		"company_id":      profile.CompanyID,
		"company_name":    profile.CompanyName,
		"company_domain":  profile.CompanyDomain,
		"company_country": profile.CompanyCountry,
		"email":           profile.Email,
		"name":            profile.Name,
		"locale":          profile.Locale,
		"language":        profile.Language,
		"timezone_name":   profile.Timezone,
		"is_admin":        profile.IsAdmin,
		"active_flag":     profile.ActiveFlag,
	})
}
