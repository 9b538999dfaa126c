package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pipeflow/deal-todo-api/internal/config"
	"github.com/pipeflow/deal-todo-api/internal/services"
	"github.com/pipeflow/deal-todo-api/pkg/utils"
)

// OAuthHandler owns the installation lifecycle surface: the redirect callback
// that completes an install and the webhook the platform calls on uninstall.
type OAuthHandler struct {
	installations *services.InstallationService
	crm           services.CRMClient
	oauthCfg      config.OAuthConfig
}

func NewOAuthHandler(installations *services.InstallationService, crm services.CRMClient, oauthCfg config.OAuthConfig) *OAuthHandler {
	return &OAuthHandler{
		installations: installations,
		crm:           crm,
		oauthCfg:      oauthCfg,
	}
}

// Callback completes an installation: exchanges the authorization code,
// persists the tenant quadruple and echoes the stored grant back. External
// ids come from the token-verified profile, never from the request.
func (h *OAuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Missing authorization code", nil)
		return
	}

	grant, err := h.crm.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	installation, err := h.installations.Install(c.Request.Context(), grant)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, err := h.installations.GetInstallation(c.Request.Context(), installation.PlatformUserID, installation.CompanyID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if view == nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Installation not found after save", nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, view)
}

type uninstallRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	CompanyID int64 `json:"company_id" binding:"required"`
}

// Uninstall handles the platform's app-deleted webhook. The request is
// authenticated with the app's client credentials over HTTP basic auth.
// Repeated or unknown uninstalls succeed: the end state is identical.
func (h *OAuthHandler) Uninstall(c *gin.Context) {
	clientID, clientSecret, ok := c.Request.BasicAuth()
	if !ok ||
		subtle.ConstantTimeCompare([]byte(clientID), []byte(h.oauthCfg.ClientID)) != 1 ||
		subtle.ConstantTimeCompare([]byte(clientSecret), []byte(h.oauthCfg.ClientSecret)) != 1 {
		utils.SendErrorResponse(c, http.StatusUnauthorized, "Invalid webhook credentials", nil)
		return
	}

	var req uninstallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid uninstall payload", err)
		return
	}

	if err := h.installations.Uninstall(c.Request.Context(), req.UserID, req.CompanyID); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SendSuccessResponse(c, gin.H{"uninstalled": true})
}
