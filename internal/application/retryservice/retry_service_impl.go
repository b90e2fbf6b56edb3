package retryservice

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/internal/domain/interfaces"
	"github.com/tradepulse/custody/internal/repositories/retryrepo"
	"github.com/tradepulse/custody/pkg/config"
)

type retryService struct {
	retryRepo   retryrepo.IRetryRepository
	processor   Processor
	notifier    interfaces.Notifier
	broadcaster interfaces.StatusBroadcaster
	cfg         config.RetryConfig
	logger      zerolog.Logger
	now         func() time.Time
}

func New(
	retryRepo retryrepo.IRetryRepository,
	processor Processor,
	notifier interfaces.Notifier,
	broadcaster interfaces.StatusBroadcaster,
	cfg config.RetryConfig,
	logger zerolog.Logger,
) IRetryService {
	return &retryService{
		retryRepo:   retryRepo,
		processor:   processor,
		notifier:    notifier,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *retryService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", s.cfg.SweepInterval).
		Int("batch_size", s.cfg.BatchSize).
		Msg("Retry scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Retry scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Err(err).Msg("Retry sweep failed")
			}
		}
	}
}

func (s *retryService) Sweep(ctx context.Context) (int, error) {
	records, err := s.retryRepo.ClaimDue(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	succeeded := 0
	for i := range records {
		if s.attempt(ctx, &records[i]) {
			succeeded++
		}
	}
	return succeeded, nil
}

func (s *retryService) attempt(ctx context.Context, rec *domain.RetryRecord) bool {
	log := s.logger.With().
		Str("retry_id", rec.ID).
		Str("webhook_type", rec.WebhookType).
		Int("retry_count", rec.RetryCount).
		Logger()

	err := s.dispatch(ctx, rec)
	if err == nil {
		if markErr := s.retryRepo.MarkSuccess(ctx, rec.ID, s.now()); markErr != nil {
			log.Err(markErr).Msg("Failed to mark retry success")
			return false
		}
		log.Info().Msg("Retry succeeded")
		return true
	}

	attempt := rec.RetryCount + 1
	entry := domain.RetryError{
		At:      s.now(),
		Attempt: attempt,
		Error:   err.Error(),
	}

	if attempt >= rec.MaxRetries {
		reason := fmt.Sprintf("retries exhausted after %d attempts: %v", attempt, err)
		if dlqErr := s.retryRepo.MarkDeadLetter(ctx, rec.ID, entry, reason); dlqErr != nil {
			log.Err(dlqErr).Msg("Failed to dead-letter retry record")
			return false
		}
		rec.Status = domain.RetryStatusDeadLetter
		rec.RetryCount = attempt
		rec.DLQReason = reason
		log.Error().Err(err).Msg("Retry record moved to dead letter, operator attention required")

		s.broadcaster.DeadLettered(rec)
		if alertErr := s.notifier.NotifyDeadLetter(ctx, rec); alertErr != nil {
			log.Warn().Err(alertErr).Msg("Dead-letter alert failed")
		}
		return false
	}

	// Exponential backoff: 1s, 2s, 4s, ... doubling per failed attempt.
	delay := s.cfg.BackoffBase << uint(rec.RetryCount)
	nextRetryAt := s.now().Add(delay)
	if reschedErr := s.retryRepo.RescheduleFailure(ctx, rec.ID, entry, nextRetryAt); reschedErr != nil {
		log.Err(reschedErr).Msg("Failed to reschedule retry")
		return false
	}
	log.Warn().Err(err).Dur("next_in", delay).Msg("Retry failed, rescheduled")
	return false
}

func (s *retryService) dispatch(ctx context.Context, rec *domain.RetryRecord) error {
	switch rec.WebhookType {
	case domain.WebhookTypeDeposit:
		return s.processor.ProcessDeposit(ctx, rec.Payload)
	default:
		return fmt.Errorf("unknown webhook type %q", rec.WebhookType)
	}
}

func (s *retryService) Replay(ctx context.Context, retryID string) error {
	if err := s.retryRepo.Requeue(ctx, retryID, s.now()); err != nil {
		return err
	}
	s.logger.Info().Str("retry_id", retryID).Msg("Dead-letter record requeued for replay")
	return nil
}

func (s *retryService) DeadLetters(ctx context.Context, limit int) ([]domain.RetryRecord, error) {
	return s.retryRepo.ListDeadLetters(ctx, limit)
}
