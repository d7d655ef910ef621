package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/services"
	"github.com/voicereachhq/dialer-services-backend/internal/services/telephony"
)

type ProviderSettingsHandler struct {
	settings services.ProviderSettingsStore
	manager  *telephony.Manager
}

func NewProviderSettingsHandler(settings services.ProviderSettingsStore, manager *telephony.Manager) *ProviderSettingsHandler {
	return &ProviderSettingsHandler{settings: settings, manager: manager}
}

// GetSettings godoc
// @Summary Get provider settings
// @Description Get the telephony provider configuration; the auth token is never returned
// @Tags provider
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.ProviderSettings
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/provider/settings [get]
func (h *ProviderSettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get provider settings", "details": err.Error()})
		return
	}
	if settings == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider is not configured"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Update provider settings
// @Description Replace the telephony provider credentials; the cached provider client is invalidated
// @Tags provider
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProviderSettingsRequest true "Provider credentials"
// @Success 200 {object} models.ProviderSettings
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/provider/settings [put]
func (h *ProviderSettingsHandler) UpdateSettings(c *gin.Context) {
	var req models.UpdateProviderSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	settings, err := h.settings.Upsert(req.AccountSID, req.AuthToken, req.BaseCallbackURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update provider settings", "details": err.Error()})
		return
	}
	h.manager.Invalidate()
	c.JSON(http.StatusOK, settings)
}
