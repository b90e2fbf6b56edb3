package retryrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sqlc-dev/pqtype"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/internal/infrastructure/database"
)

const retryColumns = `id, webhook_type, payload, headers, retry_count, max_retries, next_retry_at,
	status, error_history, COALESCE(dlq_reason, ''), last_attempt_at, success_at, created_at, updated_at`

type RetryRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IRetryRepository {
	return &RetryRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *RetryRepository) Create(ctx context.Context, rec *domain.RetryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = domain.RetryStatusPending
	}
	history, err := json.Marshal(rec.ErrorHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal error history: %w", err)
	}
	headers := pqtype.NullRawMessage{RawMessage: rec.Headers, Valid: len(rec.Headers) > 0}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO webhook_retries (id, webhook_type, payload, headers, retry_count, max_retries, next_retry_at, status, error_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, rec.ID, rec.WebhookType, []byte(rec.Payload), headers, rec.RetryCount, rec.MaxRetries,
		rec.NextRetryAt, rec.Status, history).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		r.logger.Err(err).Str("webhook_type", rec.WebhookType).Msg("Failed to create retry record")
		return fmt.Errorf("failed to create retry record: %w", err)
	}
	return nil
}

func (r *RetryRepository) GetByID(ctx context.Context, id string) (*domain.RetryRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+retryColumns+` FROM webhook_retries WHERE id = $1
	`, id)
	rec, err := scanRetry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRetryNotFound
		}
		return nil, fmt.Errorf("failed to get retry record: %w", err)
	}
	return rec, nil
}

func (r *RetryRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.RetryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE webhook_retries
		SET status = 'retrying', last_attempt_at = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM webhook_retries
			WHERE status IN ('pending', 'retrying')
			  AND next_retry_at <= $1
			  AND (last_attempt_at IS NULL OR status = 'pending' OR last_attempt_at < next_retry_at)
			ORDER BY next_retry_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+retryColumns+`
	`, now, limit)
	if err != nil {
		r.logger.Err(err).Msg("Failed to claim due retry records")
		return nil, fmt.Errorf("failed to claim due retry records: %w", err)
	}
	defer rows.Close()

	var records []domain.RetryRecord
	for rows.Next() {
		rec, err := scanRetry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan retry record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *RetryRepository) MarkSuccess(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE webhook_retries
		SET status = 'success', success_at = $2, updated_at = now()
		WHERE id = $1
	`, id, at)
	if err != nil {
		r.logger.Err(err).Str("retry_id", id).Msg("Failed to mark retry success")
		return fmt.Errorf("failed to mark retry success: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRetryNotFound
	}
	return nil
}

func (r *RetryRepository) RescheduleFailure(ctx context.Context, id string, entry domain.RetryError, nextRetryAt time.Time) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal retry error: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE webhook_retries
		SET retry_count = retry_count + 1,
		    error_history = error_history || $2::jsonb,
		    next_retry_at = $3,
		    status = 'retrying',
		    updated_at = now()
		WHERE id = $1
	`, id, entryJSON, nextRetryAt)
	if err != nil {
		r.logger.Err(err).Str("retry_id", id).Msg("Failed to reschedule retry")
		return fmt.Errorf("failed to reschedule retry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRetryNotFound
	}
	return nil
}

func (r *RetryRepository) MarkDeadLetter(ctx context.Context, id string, entry domain.RetryError, reason string) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal retry error: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE webhook_retries
		SET retry_count = retry_count + 1,
		    error_history = error_history || $2::jsonb,
		    status = 'dead_letter',
		    dlq_reason = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, entryJSON, reason)
	if err != nil {
		r.logger.Err(err).Str("retry_id", id).Msg("Failed to dead-letter retry record")
		return fmt.Errorf("failed to dead-letter retry record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRetryNotFound
	}
	return nil
}

func (r *RetryRepository) ListDeadLetters(ctx context.Context, limit int) ([]domain.RetryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+retryColumns+`
		FROM webhook_retries
		WHERE status = 'dead_letter'
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		r.logger.Err(err).Msg("Failed to list dead-letter records")
		return nil, fmt.Errorf("failed to list dead-letter records: %w", err)
	}
	defer rows.Close()

	var records []domain.RetryRecord
	for rows.Next() {
		rec, err := scanRetry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan retry record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *RetryRepository) Requeue(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE webhook_retries
		SET status = 'pending', next_retry_at = $2, dlq_reason = NULL, updated_at = now()
		WHERE id = $1 AND status = 'dead_letter'
	`, id, at)
	if err != nil {
		r.logger.Err(err).Str("retry_id", id).Msg("Failed to requeue dead-letter record")
		return fmt.Errorf("failed to requeue dead-letter record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRetryNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRetry(row rowScanner) (*domain.RetryRecord, error) {
	var rec domain.RetryRecord
	var payload []byte
	var headers pqtype.NullRawMessage
	var history []byte
	var lastAttemptAt, successAt sql.NullTime

	err := row.Scan(
		&rec.ID,
		&rec.WebhookType,
		&payload,
		&headers,
		&rec.RetryCount,
		&rec.MaxRetries,
		&rec.NextRetryAt,
		&rec.Status,
		&history,
		&rec.DLQReason,
		&lastAttemptAt,
		&successAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Payload = payload
	if headers.Valid {
		rec.Headers = headers.RawMessage
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &rec.ErrorHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal error history: %w", err)
		}
	}
	if lastAttemptAt.Valid {
		rec.LastAttemptAt = &lastAttemptAt.Time
	}
	if successAt.Valid {
		rec.SuccessAt = &successAt.Time
	}
	return &rec, nil
}
