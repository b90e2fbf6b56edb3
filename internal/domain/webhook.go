package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DepositWebhook is the provider's deposit notification payload.
type DepositWebhook struct {
	ExternalTxHash string `json:"tx_hash"`
	AccountID      string `json:"account_id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	ExchangeRate   string `json:"exchange_rate"`
	Network        string `json:"network"`
	BlockNumber    int64  `json:"block_number"`
}

func (w *DepositWebhook) Validate() error {
	if w.ExternalTxHash == "" {
		return fmt.Errorf("missing tx_hash")
	}
	if w.AccountID == "" {
		return fmt.Errorf("missing account_id")
	}
	if w.Network == "" {
		return fmt.Errorf("missing network")
	}
	amount, err := decimal.NewFromString(w.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", w.Amount, err)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive, got %s", w.Amount)
	}
	if _, err := decimal.NewFromString(w.ExchangeRate); err != nil {
		return fmt.Errorf("invalid exchange_rate %q: %w", w.ExchangeRate, err)
	}
	return nil
}

// AmountCents converts the crypto amount at the quoted exchange rate into
// USD cents. Validate must have passed first.
func (w *DepositWebhook) AmountCents() (int64, error) {
	amount, err := decimal.NewFromString(w.Amount)
	if err != nil {
		return 0, err
	}
	rate, err := decimal.NewFromString(w.ExchangeRate)
	if err != nil {
		return 0, err
	}
	return amount.Mul(rate).Mul(decimal.NewFromInt(100)).RoundBank(0).IntPart(), nil
}
