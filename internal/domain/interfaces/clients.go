package interfaces

import (
	"context"

	"github.com/tradepulse/custody/internal/domain"
)

// TransferClient moves funds out of the custodial wallet on one network.
// It never touches the ledger; the saga owns ordering and the debit.
type TransferClient interface {
	// Transfer validates the destination, checks custodial token and gas
	// balances, submits the transfer and waits for one confirmation.
	// Failures carry a domain.WithdrawalError with a closed error kind; a
	// confirmation timeout includes the broadcast hash for reconciliation.
	Transfer(ctx context.Context, destination string, amountCents int64) (*domain.TransferReceipt, error)

	// ConfirmedTransfer looks up a previously broadcast transaction.
	// A nil receipt with nil error means the hash is unknown to the chain.
	ConfirmedTransfer(ctx context.Context, txHash string) (*domain.TransferReceipt, error)

	Network() string
}

// TransferRegistry resolves the transfer client for a withdrawal's network.
type TransferRegistry interface {
	ForNetwork(network string) (TransferClient, error)
}

// Notifier dispatches fire-and-forget notifications. Errors are logged by
// callers and never roll back a financial transaction.
type Notifier interface {
	NotifyWithdrawalCompleted(ctx context.Context, w *domain.Withdrawal, txHash string) error
	NotifyWithdrawalFailed(ctx context.Context, w *domain.Withdrawal, reason string) error
	NotifyDeadLetter(ctx context.Context, r *domain.RetryRecord) error
}

// SecretSource yields the webhook signing secret.
type SecretSource interface {
	Get(ctx context.Context) (string, error)
}

// StatusBroadcaster pushes state transitions to connected operator
// dashboards. Implementations must never block the caller.
type StatusBroadcaster interface {
	WithdrawalUpdated(w *domain.Withdrawal)
	DeadLettered(r *domain.RetryRecord)
}
