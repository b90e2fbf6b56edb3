package domain

import (
	"time"
)

type Account struct {
	ID                   string    `json:"id" db:"id"`
	Email                string    `json:"email" db:"email"`
	EarningsBalanceCents int64     `json:"earnings_balance_cents" db:"earnings_balance_cents"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}
