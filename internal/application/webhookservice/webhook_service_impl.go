package webhookservice

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/internal/domain/interfaces"
	"github.com/tradepulse/custody/internal/repositories/accountrepo"
	"github.com/tradepulse/custody/internal/repositories/retryrepo"
	"github.com/tradepulse/custody/internal/repositories/transactionrepo"
	"github.com/tradepulse/custody/pkg/config"
)

type webhookService struct {
	transactionRepo transactionrepo.ITransactionRepository
	accountRepo     accountrepo.IAccountRepository
	retryRepo       retryrepo.IRetryRepository
	secrets         interfaces.SecretSource
	retryCfg        config.RetryConfig
	logger          zerolog.Logger
	now             func() time.Time
}

func New(
	transactionRepo transactionrepo.ITransactionRepository,
	accountRepo accountrepo.IAccountRepository,
	retryRepo retryrepo.IRetryRepository,
	secrets interfaces.SecretSource,
	retryCfg config.RetryConfig,
	logger zerolog.Logger,
) IWebhookService {
	return &webhookService{
		transactionRepo: transactionRepo,
		accountRepo:     accountRepo,
		retryRepo:       retryRepo,
		secrets:         secrets,
		retryCfg:        retryCfg,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *webhookService) VerifySignature(ctx context.Context, rawPayload []byte, signature string) bool {
	if signature == "" {
		return false
	}

	secret, err := s.secrets.Get(ctx)
	if err != nil {
		s.logger.Err(err).Msg("Failed to fetch webhook secret, rejecting webhook")
		return false
	}

	keyed := make([]byte, 0, len(rawPayload)+len(secret))
	keyed = append(keyed, rawPayload...)
	keyed = append(keyed, secret...)
	sum := sha256.Sum256(keyed)
	expected := hex.EncodeToString(sum[:])

	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

func (s *webhookService) HandleDeposit(ctx context.Context, rawPayload []byte, headers http.Header) error {
	err := s.ProcessDeposit(ctx, rawPayload)
	if err == nil {
		return nil
	}

	headerJSON, marshalErr := json.Marshal(headers)
	if marshalErr != nil {
		headerJSON = nil
	}

	record := &domain.RetryRecord{
		WebhookType: domain.WebhookTypeDeposit,
		Payload:     rawPayload,
		Headers:     headerJSON,
		RetryCount:  0,
		MaxRetries:  s.retryCfg.MaxRetries,
		NextRetryAt: s.now(),
		Status:      domain.RetryStatusPending,
		ErrorHistory: []domain.RetryError{{
			At:      s.now(),
			Attempt: 0,
			Error:   err.Error(),
		}},
	}

	if createErr := s.retryRepo.Create(ctx, record); createErr != nil {
		// Nothing durable holds this event now; let the provider retry.
		s.logger.Error().Err(createErr).Msg("Failed to persist retry record for failed webhook")
		return createErr
	}

	s.logger.Warn().
		Err(err).
		Str("retry_id", record.ID).
		Msg("Deposit webhook processing failed, queued for retry")
	return nil
}

func (s *webhookService) ProcessDeposit(ctx context.Context, rawPayload []byte) error {
	var payload domain.DepositWebhook
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		return fmt.Errorf("failed to parse deposit payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid deposit payload: %w", err)
	}

	existing, err := s.transactionRepo.GetByExternalHash(ctx, payload.ExternalTxHash)
	if err != nil {
		return err
	}
	if existing != nil {
		s.logger.Info().
			Str("external_tx_hash", payload.ExternalTxHash).
			Msg("Deposit already processed, ignoring redelivery")
		return nil
	}

	if _, err := s.accountRepo.GetAccount(ctx, payload.AccountID); err != nil {
		return fmt.Errorf("deposit for account %s: %w", payload.AccountID, err)
	}

	amountCents, err := payload.AmountCents()
	if err != nil {
		return fmt.Errorf("failed to convert deposit amount: %w", err)
	}

	record := &domain.TransactionRecord{
		ExternalTxHash: payload.ExternalTxHash,
		AccountID:      payload.AccountID,
		AmountCents:    amountCents,
		Network:        payload.Network,
		Status:         domain.TransactionStatusCredited,
		BlockNumber:    payload.BlockNumber,
		Metadata:       rawPayload,
	}

	credited, err := s.transactionRepo.CreateWithCredit(ctx, record)
	if err != nil {
		return err
	}
	if !credited {
		// Lost the insert race against a concurrent delivery of the same
		// hash; the other writer credited the balance.
		s.logger.Info().
			Str("external_tx_hash", payload.ExternalTxHash).
			Msg("Deposit concurrently processed, ignoring")
		return nil
	}

	s.logger.Info().
		Str("external_tx_hash", payload.ExternalTxHash).
		Str("account_id", payload.AccountID).
		Int64("amount_cents", amountCents).
		Str("network", payload.Network).
		Msg("Deposit credited")
	return nil
}
