package withdrawalrepo

import (
	"context"
	"time"

	"github.com/tradepulse/custody/internal/domain"
)

type IWithdrawalRepository interface {
	Create(ctx context.Context, w *domain.Withdrawal) error
	GetByID(ctx context.Context, withdrawalID string) (*domain.Withdrawal, error)

	// ClaimPending atomically moves the record from pending to processing.
	// It is the saga's mutual-exclusion primitive: of two concurrent
	// approvals, exactly one succeeds; the other gets an
	// already_processed WithdrawalError.
	ClaimPending(ctx context.Context, withdrawalID, approverID string) (*domain.Withdrawal, error)

	// HasRecentDuplicate reports whether another live request with the same
	// account, amount and destination was created inside the window.
	HasRecentDuplicate(ctx context.Context, accountID string, amountCents int64, destination string, since time.Time, excludeID string) (bool, error)

	ResetToPending(ctx context.Context, withdrawalID, reason string) error
	MarkFailed(ctx context.Context, withdrawalID, reason string) error
	MarkRejected(ctx context.Context, withdrawalID, approverID, reason string) error
	SetTxHash(ctx context.Context, withdrawalID, txHash string) error

	// CompleteWithDebit debits the ledger and marks the withdrawal completed
	// in one database transaction. The debit is conditional on the balance
	// covering the amount, so the ledger can never go negative.
	CompleteWithDebit(ctx context.Context, withdrawalID, accountID string, amountCents int64, txHash string) (newBalanceCents int64, err error)

	// ListStaleProcessing returns processing records untouched since the
	// cutoff, for the reconciliation sweep.
	ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]domain.Withdrawal, error)
}
