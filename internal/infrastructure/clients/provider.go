package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/pkg/config"
)

// ProviderClient talks to the webhook provider's control API. Its only job
// here is fetching the shared signing secret.
type ProviderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewProviderClient(cfg config.WebhookConfig, logger zerolog.Logger) *ProviderClient {
	timeout := cfg.ProviderTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &ProviderClient{
		baseURL: cfg.ProviderBaseURL,
		apiKey:  cfg.ProviderAPIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *ProviderClient) FetchWebhookSecret(ctx context.Context) (string, error) {
	url := c.baseURL + "/v1/webhooks/secret"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create secret request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Webhook secret fetch failed")
		return "", fmt.Errorf("failed to fetch webhook secret: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Webhook secret fetch rejected")
		return "", fmt.Errorf("secret fetch failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode secret response: %w", err)
	}
	if payload.Secret == "" {
		return "", fmt.Errorf("provider returned empty webhook secret")
	}
	return payload.Secret, nil
}
