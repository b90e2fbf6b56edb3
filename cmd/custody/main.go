package main

import (
	"context"

	"github.com/tradepulse/custody/internal/application/retryservice"
	"github.com/tradepulse/custody/internal/application/webhookservice"
	"github.com/tradepulse/custody/internal/application/withdrawalservice"
	"github.com/tradepulse/custody/internal/infrastructure/chain"
	"github.com/tradepulse/custody/internal/infrastructure/clients"
	"github.com/tradepulse/custody/internal/infrastructure/database"
	"github.com/tradepulse/custody/internal/repositories/accountrepo"
	"github.com/tradepulse/custody/internal/repositories/retryrepo"
	"github.com/tradepulse/custody/internal/repositories/transactionrepo"
	"github.com/tradepulse/custody/internal/repositories/withdrawalrepo"
	"github.com/tradepulse/custody/internal/server"
	"github.com/tradepulse/custody/internal/server/websocket"
	"github.com/tradepulse/custody/pkg/config"
	"github.com/tradepulse/custody/pkg/logger"
	"github.com/tradepulse/custody/pkg/secretcache"
)

func main() {
	logger := logger.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	accountRepo := accountrepo.New(db, logger)
	withdrawalRepo := withdrawalrepo.New(db, logger)
	transactionRepo := transactionrepo.New(db, logger)
	retryRepo := retryrepo.New(db, logger)

	transfers, err := chain.NewRegistry(cfg.Chains, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize chain clients")
	}

	providerClient := clients.NewProviderClient(cfg.Webhook, logger)
	secrets := secretcache.New(cfg.Webhook.SecretTTL, providerClient.FetchWebhookSecret)
	notifier := clients.NewNotifier(cfg.Notifications, logger)

	hub := websocket.NewHub(logger)
	go hub.Run()

	withdrawalSvc := withdrawalservice.New(
		withdrawalRepo,
		accountRepo,
		transfers,
		notifier,
		hub,
		cfg.Withdrawal,
		logger,
	)
	webhookSvc := webhookservice.New(
		transactionRepo,
		accountRepo,
		retryRepo,
		secrets,
		cfg.Retry,
		logger,
	)
	retrySvc := retryservice.New(
		retryRepo,
		webhookSvc,
		notifier,
		hub,
		cfg.Retry,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go retrySvc.Run(ctx)
	go withdrawalSvc.RunReconciler(ctx)

	srv := server.New(cfg, withdrawalSvc, webhookSvc, retrySvc, hub, logger)
	srv.Start()
}
