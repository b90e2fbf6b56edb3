package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/internal/domain/interfaces"
	"github.com/tradepulse/custody/pkg/config"
	"github.com/tradepulse/custody/pkg/currency"
)

// notifierClient posts events to the platform's notification dispatcher.
// Delivery is best effort: callers log failures and move on.
type notifierClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewNotifier(cfg config.NotificationsConfig, logger zerolog.Logger) interfaces.Notifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &notifierClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *notifierClient) NotifyWithdrawalCompleted(ctx context.Context, w *domain.Withdrawal, txHash string) error {
	return c.post(ctx, "/v1/events", map[string]interface{}{
		"event":         "withdrawal.completed",
		"withdrawal_id": w.ID,
		"account_id":    w.AccountID,
		"amount":        currency.FormatUSD(w.AmountCents),
		"tx_hash":       txHash,
		"network":       w.Network,
	})
}

func (c *notifierClient) NotifyWithdrawalFailed(ctx context.Context, w *domain.Withdrawal, reason string) error {
	return c.post(ctx, "/v1/events", map[string]interface{}{
		"event":         "withdrawal.failed",
		"withdrawal_id": w.ID,
		"account_id":    w.AccountID,
		"amount":        currency.FormatUSD(w.AmountCents),
		"reason":        reason,
		"network":       w.Network,
	})
}

func (c *notifierClient) NotifyDeadLetter(ctx context.Context, r *domain.RetryRecord) error {
	return c.post(ctx, "/v1/alerts", map[string]interface{}{
		"event":        "webhook.dead_letter",
		"retry_id":     r.ID,
		"webhook_type": r.WebhookType,
		"retry_count":  r.RetryCount,
		"reason":       r.DLQReason,
	})
}

func (c *notifierClient) post(ctx context.Context, endpoint string, body map[string]interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Notification dispatch failed")
		return fmt.Errorf("notification dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("Notification dispatch rejected")
		return fmt.Errorf("notification dispatch rejected with status %d", resp.StatusCode)
	}
	return nil
}
