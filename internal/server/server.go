package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/application/retryservice"
	"github.com/tradepulse/custody/internal/application/webhookservice"
	"github.com/tradepulse/custody/internal/application/withdrawalservice"
	"github.com/tradepulse/custody/internal/server/handlers"
	"github.com/tradepulse/custody/internal/server/middleware"
	"github.com/tradepulse/custody/internal/server/websocket"
	"github.com/tradepulse/custody/pkg/config"
)

type Server struct {
	WithdrawalSvc withdrawalservice.IWithdrawalService
	WebhookSvc    webhookservice.IWebhookService
	RetrySvc      retryservice.IRetryService
	Hub           *websocket.Hub
	Cfg           *config.Config
	Logger        zerolog.Logger
	Router        *gin.Engine
	httpServer    *http.Server
}

func New(
	cfg *config.Config,
	withdrawalSvc withdrawalservice.IWithdrawalService,
	webhookSvc webhookservice.IWebhookService,
	retrySvc retryservice.IRetryService,
	hub *websocket.Hub,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	return &Server{
		WithdrawalSvc: withdrawalSvc,
		WebhookSvc:    webhookSvc,
		RetrySvc:      retrySvc,
		Hub:           hub,
		Cfg:           cfg,
		Logger:        logger,
		Router:        gin.New(),
	}
}

func (s *Server) SetupRouter() {
	middleware.Setup(s.Router, s.Logger)

	handler := handlers.New(
		s.WithdrawalSvc,
		s.WebhookSvc,
		s.RetrySvc,
		s.Hub,
		s.Logger,
		s.Cfg,
	)
	handler.SetupHandlers(s.Router)
}

func (s *Server) Start() {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	s.Logger.Info().Msg("Server exited gracefully")
}
