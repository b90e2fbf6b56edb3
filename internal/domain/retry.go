package domain

import (
	"encoding/json"
	"time"
)

type RetryStatus string

const (
	RetryStatusPending    RetryStatus = "pending"
	RetryStatusRetrying   RetryStatus = "retrying"
	RetryStatusSuccess    RetryStatus = "success"
	RetryStatusDeadLetter RetryStatus = "dead_letter"
)

const WebhookTypeDeposit = "deposit"

// RetryError is one entry in a retry record's error history.
type RetryError struct {
	At      time.Time `json:"at"`
	Attempt int       `json:"attempt"`
	Error   string    `json:"error"`
}

// RetryRecord captures a webhook whose processing failed, so the scheduler
// can re-drive it with backoff instead of relying on the provider's cadence.
type RetryRecord struct {
	ID            string          `json:"id" db:"id"`
	WebhookType   string          `json:"webhook_type" db:"webhook_type"`
	Payload       json.RawMessage `json:"payload" db:"payload"`
	Headers       json.RawMessage `json:"headers,omitempty" db:"headers"`
	RetryCount    int             `json:"retry_count" db:"retry_count"`
	MaxRetries    int             `json:"max_retries" db:"max_retries"`
	NextRetryAt   time.Time       `json:"next_retry_at" db:"next_retry_at"`
	Status        RetryStatus     `json:"status" db:"status"`
	ErrorHistory  []RetryError    `json:"error_history" db:"error_history"`
	DLQReason     string          `json:"dlq_reason,omitempty" db:"dlq_reason"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty" db:"last_attempt_at"`
	SuccessAt     *time.Time      `json:"success_at,omitempty" db:"success_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
