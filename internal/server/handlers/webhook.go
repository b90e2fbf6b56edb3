package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/application/webhookservice"
	"github.com/tradepulse/custody/pkg/config"
)

type WebhookHandler struct {
	webhookSvc webhookservice.IWebhookService
	cfg        config.WebhookConfig
	logger     zerolog.Logger
}

func NewWebhookHandler(webhookSvc webhookservice.IWebhookService, cfg config.WebhookConfig, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookSvc: webhookSvc,
		cfg:        cfg,
		logger:     logger,
	}
}

// HandleDeposit authenticates and ingests a deposit notification. Verified
// payloads always get a 200, whether processed immediately or queued for
// retry; only verification failures are rejected.
func (h *WebhookHandler) HandleDeposit(c *gin.Context) {
	rawPayload, err := c.GetRawData()
	if err != nil {
		h.logger.Err(err).Msg("Failed to read webhook body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read request body"})
		return
	}

	signature := c.GetHeader(h.cfg.SignatureHeader)
	if !h.webhookSvc.VerifySignature(c.Request.Context(), rawPayload, signature) {
		h.logger.Warn().
			Str("client_ip", c.ClientIP()).
			Msg("Webhook signature verification failed")
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	if err := h.webhookSvc.HandleDeposit(c.Request.Context(), rawPayload, c.Request.Header); err != nil {
		// Could not even queue the event; let the provider redeliver.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
