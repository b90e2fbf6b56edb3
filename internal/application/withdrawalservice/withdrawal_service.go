package withdrawalservice

import (
	"context"

	"github.com/tradepulse/custody/internal/domain"
)

type IWithdrawalService interface {
	// Create registers a user withdrawal request in pending state.
	Create(ctx context.Context, w *domain.Withdrawal) error

	Get(ctx context.Context, withdrawalID string) (*domain.Withdrawal, error)

	// Process drives one withdrawal through the saga:
	// lock -> validate -> transfer -> commit. The ledger is debited only
	// after the chain transfer is confirmed; any failure before the commit
	// leaves the balance untouched.
	Process(ctx context.Context, withdrawalID, approverID string) (*domain.WithdrawalResult, error)

	// Reject moves a pending withdrawal to rejected without attempting a
	// transfer.
	Reject(ctx context.Context, withdrawalID, approverID, reason string) error

	// ReconcileStale resolves processing withdrawals that outlived the
	// staleness window by checking chain state, and returns how many were
	// resolved.
	ReconcileStale(ctx context.Context) (int, error)

	// RunReconciler runs ReconcileStale on a fixed interval until the
	// context is cancelled.
	RunReconciler(ctx context.Context)
}
