package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/services"
)

// optOutTwiML is returned when the callee pressed the opt-out digit
const optOutTwiML = `<?xml version="1.0" encoding="UTF-8"?>
<Response><Say>You have been removed from our calling list. Goodbye.</Say><Hangup/></Response>`

const continueTwiML = `<?xml version="1.0" encoding="UTF-8"?>
<Response></Response>`

// WebhookHandler receives the provider's public callbacks. These endpoints
// are unauthenticated and must always acknowledge, otherwise the provider
// retries indefinitely.
type WebhookHandler struct {
	callbackService *services.CallbackService
}

func NewWebhookHandler(callbackService *services.CallbackService) *WebhookHandler {
	return &WebhookHandler{callbackService: callbackService}
}

// CallStatus godoc
// @Summary Provider call status callback
// @Description Receives form-encoded call lifecycle events from the telephony provider
// @Tags webhooks
// @Accept x-www-form-urlencoded
// @Produce json
// @Param CallSid formData string true "Provider call identifier"
// @Param CallStatus formData string true "Provider call status"
// @Param CallDuration formData int false "Call duration in seconds"
// @Param RecordingUrl formData string false "Recording locator"
// @Success 200 {object} map[string]interface{}
// @Router /webhooks/call-status [post]
func (h *WebhookHandler) CallStatus(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		logrus.Warnf("Malformed status callback: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	raw := models.JSON{}
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}

	event := services.StatusEvent{
		ProviderCallID: c.PostForm("CallSid"),
		Status:         c.PostForm("CallStatus"),
		RecordingURL:   c.PostForm("RecordingUrl"),
		Raw:            raw,
	}
	if d := c.PostForm("CallDuration"); d != "" {
		if seconds, err := strconv.Atoi(d); err == nil {
			event.Duration = &seconds
		}
	}

	if event.ProviderCallID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	// Errors are logged and the callback acknowledged regardless
	if err := h.callbackService.ProcessStatus(event); err != nil {
		logrus.Errorf("Failed to reconcile callback for call %s: %v", event.ProviderCallID, err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CallAction godoc
// @Summary Provider in-call IVR callback
// @Description Receives keypad input collected during a call; digit 9 opts the callee into the DNC registry
// @Tags webhooks
// @Accept x-www-form-urlencoded
// @Produce xml
// @Param CallSid formData string true "Provider call identifier"
// @Param Digits formData string false "Keypad digits pressed"
// @Success 200 {string} string "TwiML response"
// @Router /webhooks/call-action [post]
func (h *WebhookHandler) CallAction(c *gin.Context) {
	callID := c.PostForm("CallSid")
	digits := c.PostForm("Digits")

	optedOut, err := h.callbackService.ProcessIVRAction(callID, digits)
	if err != nil {
		logrus.Errorf("Failed to process IVR action for call %s: %v", callID, err)
	}

	c.Header("Content-Type", "application/xml")
	if optedOut {
		c.String(http.StatusOK, optOutTwiML)
		return
	}
	c.String(http.StatusOK, continueTwiML)
}
