package domain

import (
	"encoding/json"
	"time"
)

type TransactionStatus string

const (
	TransactionStatusCredited TransactionStatus = "credited"
)

// TransactionRecord is the append-only ledger of external chain movements.
// ExternalTxHash is the idempotency key: at most one record exists per hash.
type TransactionRecord struct {
	ID             string            `json:"id" db:"id"`
	ExternalTxHash string            `json:"external_tx_hash" db:"external_tx_hash"`
	AccountID      string            `json:"account_id" db:"account_id"`
	AmountCents    int64             `json:"amount_cents" db:"amount_cents"`
	Network        string            `json:"network" db:"network"`
	Status         TransactionStatus `json:"status" db:"status"`
	BlockNumber    int64             `json:"block_number" db:"block_number"`
	Metadata       json.RawMessage   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

// TransferReceipt is the confirmed outcome of a custodial chain transfer.
type TransferReceipt struct {
	TxHash      string `json:"tx_hash"`
	GasUsed     uint64 `json:"gas_used"`
	BlockNumber int64  `json:"block_number"`
}
