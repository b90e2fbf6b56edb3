package domain

import (
	"time"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
)

type Withdrawal struct {
	ID                 string           `json:"id" db:"id"`
	AccountID          string           `json:"account_id" db:"account_id" binding:"required"`
	AmountCents        int64            `json:"amount_cents" db:"amount_cents" binding:"required"`
	DestinationAddress string           `json:"destination_address" db:"destination_address" binding:"required"`
	Network            string           `json:"network" db:"network" binding:"required"`
	Status             WithdrawalStatus `json:"status" db:"status"`
	TxHash             string           `json:"tx_hash,omitempty" db:"tx_hash"`
	FailureReason      string           `json:"failure_reason,omitempty" db:"failure_reason"`
	RequestedAt        time.Time        `json:"requested_at" db:"requested_at"`
	ProcessedAt        *time.Time       `json:"processed_at,omitempty" db:"processed_at"`
	ProcessedBy        string           `json:"processed_by,omitempty" db:"processed_by"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
}

// WithdrawalResult is returned to the approver on a successful saga commit.
type WithdrawalResult struct {
	WithdrawalID    string `json:"withdrawal_id"`
	TxHash          string `json:"tx_hash"`
	NewBalanceCents int64  `json:"new_balance_cents"`
}
