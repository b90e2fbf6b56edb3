package transactionrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/sqlc-dev/pqtype"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/internal/infrastructure/database"
)

const uniqueViolation = "23505"

type TransactionRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) ITransactionRepository {
	return &TransactionRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *TransactionRepository) GetByExternalHash(ctx context.Context, externalTxHash string) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	var metadata pqtype.NullRawMessage
	err := r.db.QueryRowContext(ctx, `
		SELECT id, external_tx_hash, account_id, amount_cents, network, status, block_number, metadata, created_at
		FROM transactions
		WHERE external_tx_hash = $1
	`, externalTxHash).Scan(
		&rec.ID,
		&rec.ExternalTxHash,
		&rec.AccountID,
		&rec.AmountCents,
		&rec.Network,
		&rec.Status,
		&rec.BlockNumber,
		&metadata,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Err(err).Str("external_tx_hash", externalTxHash).Msg("Failed to get transaction record")
		return nil, fmt.Errorf("failed to get transaction record: %w", err)
	}
	if metadata.Valid {
		rec.Metadata = metadata.RawMessage
	}
	return &rec, nil
}

func (r *TransactionRepository) CreateWithCredit(ctx context.Context, rec *domain.TransactionRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = domain.TransactionStatusCredited
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin deposit transaction: %w", err)
	}
	defer tx.Rollback()

	metadata := pqtype.NullRawMessage{RawMessage: rec.Metadata, Valid: len(rec.Metadata) > 0}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (id, external_tx_hash, account_id, amount_cents, network, status, block_number, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, rec.ID, rec.ExternalTxHash, rec.AccountID, rec.AmountCents, rec.Network, rec.Status, rec.BlockNumber, metadata).
		Scan(&rec.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			// Redelivery of an already-credited deposit.
			return false, nil
		}
		r.logger.Err(err).Str("external_tx_hash", rec.ExternalTxHash).Msg("Failed to insert transaction record")
		return false, fmt.Errorf("failed to insert transaction record: %w", err)
	}

	// The credit is derived from "record created": the insert above is the
	// single source of truth, so a retried webhook can never credit twice.
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET earnings_balance_cents = earnings_balance_cents + $2, updated_at = now()
		WHERE id = $1
	`, rec.AccountID, rec.AmountCents)
	if err != nil {
		return false, fmt.Errorf("failed to credit ledger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, domain.ErrAccountNotFound
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit deposit: %w", err)
	}
	return true, nil
}
