package retryrepo

import (
	"context"
	"time"

	"github.com/tradepulse/custody/internal/domain"
)

type IRetryRepository interface {
	Create(ctx context.Context, r *domain.RetryRecord) error
	GetByID(ctx context.Context, id string) (*domain.RetryRecord, error)

	// ClaimDue atomically transitions due pending/retrying records to
	// retrying with a fresh last-attempt timestamp and returns them.
	// Claimed rows are skipped by overlapping sweeps, so each record has at
	// most one active attempt at a time.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.RetryRecord, error)

	MarkSuccess(ctx context.Context, id string, at time.Time) error

	// RescheduleFailure appends the error to the history, increments the
	// retry count and schedules the next attempt.
	RescheduleFailure(ctx context.Context, id string, entry domain.RetryError, nextRetryAt time.Time) error

	// MarkDeadLetter appends the final error and parks the record for
	// manual operator replay.
	MarkDeadLetter(ctx context.Context, id string, entry domain.RetryError, reason string) error

	ListDeadLetters(ctx context.Context, limit int) ([]domain.RetryRecord, error)

	// Requeue returns a dead-letter record to the pending state for an
	// immediate replay attempt.
	Requeue(ctx context.Context, id string, at time.Time) error
}
