package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/application/retryservice"
	"github.com/tradepulse/custody/internal/application/webhookservice"
	"github.com/tradepulse/custody/internal/application/withdrawalservice"
	"github.com/tradepulse/custody/internal/server/middleware"
	"github.com/tradepulse/custody/internal/server/websocket"
	"github.com/tradepulse/custody/pkg/config"
)

type Handlers struct {
	WithdrawalSvc withdrawalservice.IWithdrawalService
	WebhookSvc    webhookservice.IWebhookService
	RetrySvc      retryservice.IRetryService
	Hub           *websocket.Hub
	Logger        zerolog.Logger
	Config        *config.Config
}

func New(
	withdrawalSvc withdrawalservice.IWithdrawalService,
	webhookSvc webhookservice.IWebhookService,
	retrySvc retryservice.IRetryService,
	hub *websocket.Hub,
	logger zerolog.Logger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		WithdrawalSvc: withdrawalSvc,
		WebhookSvc:    webhookSvc,
		RetrySvc:      retrySvc,
		Hub:           hub,
		Logger:        logger,
		Config:        cfg,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	webhookHandler := NewWebhookHandler(h.WebhookSvc, h.Config.Webhook, h.Logger)
	withdrawalHandler := NewWithdrawalHandler(h.WithdrawalSvc, h.Logger)
	retryHandler := NewRetryHandler(h.RetrySvc, h.Logger)
	wsHandler := NewWebSocketHandler(h.Hub, h.Config.WebSocket, h.Logger)
	healthHandler := NewHealthHandler()

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/v1")
	{
		// Signature verification is the auth for webhook delivery.
		v1.POST("/webhooks/deposit", webhookHandler.HandleDeposit)

		admin := v1.Group("/admin", middleware.AdminAuth(h.Config.JWT))
		{
			admin.POST("/withdrawals", withdrawalHandler.CreateWithdrawal)
			admin.GET("/withdrawals/:id", withdrawalHandler.GetWithdrawal)
			admin.POST("/withdrawals/:id/approve", withdrawalHandler.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", withdrawalHandler.RejectWithdrawal)

			admin.GET("/retries/dead-letter", retryHandler.ListDeadLetters)
			admin.POST("/retries/:id/replay", retryHandler.ReplayDeadLetter)

			admin.GET("/status", wsHandler.HandleConnection)
		}
	}
}
