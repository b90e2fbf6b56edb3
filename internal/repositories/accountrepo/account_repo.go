package accountrepo

import (
	"context"

	"github.com/tradepulse/custody/internal/domain"
)

type IAccountRepository interface {
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)

	// AvailableBalance returns the ledger balance together with the sum of
	// amounts reserved by pending/processing withdrawals, excluding the
	// withdrawal being validated. The account row is locked for the duration
	// of the statement so concurrent approvals serialize per account.
	AvailableBalance(ctx context.Context, accountID, excludeWithdrawalID string) (balanceCents, reservedCents int64, err error)
}
