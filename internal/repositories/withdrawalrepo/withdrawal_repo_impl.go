package withdrawalrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/internal/infrastructure/database"
)

const withdrawalColumns = `id, account_id, amount_cents, destination_address, network, status,
	COALESCE(tx_hash, ''), COALESCE(failure_reason, ''), requested_at, processed_at,
	COALESCE(processed_by, ''), created_at, updated_at`

type WithdrawalRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IWithdrawalRepository {
	return &WithdrawalRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *WithdrawalRepository) Create(ctx context.Context, w *domain.Withdrawal) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.Status == "" {
		w.Status = domain.WithdrawalStatusPending
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO withdrawals (id, account_id, amount_cents, destination_address, network, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING requested_at, created_at, updated_at
	`, w.ID, w.AccountID, w.AmountCents, w.DestinationAddress, w.Network, w.Status).
		Scan(&w.RequestedAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		r.logger.Err(err).Str("account_id", w.AccountID).Msg("Failed to create withdrawal")
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return nil
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, withdrawalID string) (*domain.Withdrawal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1
	`, withdrawalID)
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWithdrawalNotFound
		}
		r.logger.Err(err).Str("withdrawal_id", withdrawalID).Msg("Failed to get withdrawal")
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return w, nil
}

func (r *WithdrawalRepository) ClaimPending(ctx context.Context, withdrawalID, approverID string) (*domain.Withdrawal, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE withdrawals
		SET status = 'processing', processed_by = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+withdrawalColumns+`
	`, withdrawalID, approverID)
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewWithdrawalError(domain.ErrKindAlreadyProcessed,
				"withdrawal is not in pending state")
		}
		r.logger.Err(err).Str("withdrawal_id", withdrawalID).Msg("Failed to claim withdrawal")
		return nil, fmt.Errorf("failed to claim withdrawal: %w", err)
	}
	return w, nil
}

func (r *WithdrawalRepository) HasRecentDuplicate(ctx context.Context, accountID string, amountCents int64, destination string, since time.Time, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM withdrawals
			WHERE account_id = $1
			  AND amount_cents = $2
			  AND destination_address = $3
			  AND created_at >= $4
			  AND id <> $5
			  AND status IN ('pending', 'processing')
		)
	`, accountID, amountCents, destination, since, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate withdrawal: %w", err)
	}
	return exists, nil
}

func (r *WithdrawalRepository) ResetToPending(ctx context.Context, withdrawalID, reason string) error {
	return r.setStatus(ctx, withdrawalID, domain.WithdrawalStatusPending, reason, false)
}

func (r *WithdrawalRepository) MarkFailed(ctx context.Context, withdrawalID, reason string) error {
	return r.setStatus(ctx, withdrawalID, domain.WithdrawalStatusFailed, reason, true)
}

func (r *WithdrawalRepository) setStatus(ctx context.Context, withdrawalID string, status domain.WithdrawalStatus, reason string, processed bool) error {
	var processedAt interface{}
	if processed {
		processedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = $2, failure_reason = NULLIF($3, ''), processed_at = COALESCE($4, processed_at), updated_at = now()
		WHERE id = $1
	`, withdrawalID, status, reason, processedAt)
	if err != nil {
		r.logger.Err(err).Str("withdrawal_id", withdrawalID).Str("status", string(status)).Msg("Failed to update withdrawal status")
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrWithdrawalNotFound
	}
	return nil
}

func (r *WithdrawalRepository) MarkRejected(ctx context.Context, withdrawalID, approverID, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = 'rejected', processed_by = $2, failure_reason = NULLIF($3, ''),
		    processed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, withdrawalID, approverID, reason)
	if err != nil {
		r.logger.Err(err).Str("withdrawal_id", withdrawalID).Msg("Failed to reject withdrawal")
		return fmt.Errorf("failed to reject withdrawal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewWithdrawalError(domain.ErrKindAlreadyProcessed,
			"withdrawal is not in pending state")
	}
	return nil
}

func (r *WithdrawalRepository) SetTxHash(ctx context.Context, withdrawalID, txHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE withdrawals SET tx_hash = $2, updated_at = now() WHERE id = $1
	`, withdrawalID, txHash)
	if err != nil {
		r.logger.Err(err).Str("withdrawal_id", withdrawalID).Str("tx_hash", txHash).Msg("Failed to record tx hash")
		return fmt.Errorf("failed to record tx hash: %w", err)
	}
	return nil
}

func (r *WithdrawalRepository) CompleteWithDebit(ctx context.Context, withdrawalID, accountID string, amountCents int64, txHash string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin commit transaction: %w", err)
	}
	defer tx.Rollback()

	var newBalance int64
	err = tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET earnings_balance_cents = earnings_balance_cents - $2, updated_at = now()
		WHERE id = $1 AND earnings_balance_cents >= $2
		RETURNING earnings_balance_cents
	`, accountID, amountCents).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &domain.WithdrawalError{
				Kind:    domain.ErrKindInsufficientBalance,
				Message: "ledger debit would make balance negative",
			}
		}
		return 0, fmt.Errorf("failed to debit ledger: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = 'completed', tx_hash = $2, processed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'processing'
	`, withdrawalID, txHash)
	if err != nil {
		return 0, fmt.Errorf("failed to complete withdrawal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, domain.NewWithdrawalError(domain.ErrKindAlreadyProcessed,
			"withdrawal left processing state before commit")
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit withdrawal: %w", err)
	}
	return newBalance, nil
}

func (r *WithdrawalRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]domain.Withdrawal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE status = 'processing' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		r.logger.Err(err).Msg("Failed to list stale processing withdrawals")
		return nil, fmt.Errorf("failed to list stale withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, *w)
	}
	return withdrawals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWithdrawal(row rowScanner) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	var processedAt sql.NullTime
	err := row.Scan(
		&w.ID,
		&w.AccountID,
		&w.AmountCents,
		&w.DestinationAddress,
		&w.Network,
		&w.Status,
		&w.TxHash,
		&w.FailureReason,
		&w.RequestedAt,
		&processedAt,
		&w.ProcessedBy,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if processedAt.Valid {
		w.ProcessedAt = &processedAt.Time
	}
	return &w, nil
}
