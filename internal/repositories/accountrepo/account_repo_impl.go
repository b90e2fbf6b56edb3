package accountrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/internal/infrastructure/database"
)

type AccountRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IAccountRepository {
	return &AccountRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *AccountRepository) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, earnings_balance_cents, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, accountID).Scan(&a.ID, &a.Email, &a.EarningsBalanceCents, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		r.logger.Err(err).Str("account_id", accountID).Msg("Failed to get account")
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (r *AccountRepository) AvailableBalance(ctx context.Context, accountID, excludeWithdrawalID string) (int64, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin balance check: %w", err)
	}
	defer tx.Rollback()

	var balanceCents int64
	err = tx.QueryRowContext(ctx, `
		SELECT earnings_balance_cents FROM accounts WHERE id = $1 FOR UPDATE
	`, accountID).Scan(&balanceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, domain.ErrAccountNotFound
		}
		return 0, 0, fmt.Errorf("failed to lock account row: %w", err)
	}

	var reservedCents int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM withdrawals
		WHERE account_id = $1
		  AND status IN ('pending', 'processing')
		  AND id <> $2
	`, accountID, excludeWithdrawalID).Scan(&reservedCents)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum reserved withdrawals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit balance check: %w", err)
	}
	return balanceCents, reservedCents, nil
}
