package transactionrepo

import (
	"context"

	"github.com/tradepulse/custody/internal/domain"
)

type ITransactionRepository interface {
	GetByExternalHash(ctx context.Context, externalTxHash string) (*domain.TransactionRecord, error)

	// CreateWithCredit inserts the transaction record and credits the
	// account's ledger balance in one database transaction. It returns
	// credited=false without error when a record with the same external tx
	// hash already exists, making redelivery a no-op.
	CreateWithCredit(ctx context.Context, rec *domain.TransactionRecord) (credited bool, err error)
}
