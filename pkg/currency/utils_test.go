package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCryptoToUSDCents(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		rate   string
		want   int64
	}{
		{"whole dollars", "2", "50000", 10000000},
		{"fractional crypto", "0.5", "3000", 150000},
		{"sub-cent truncation", "0.000001", "3000", 0},
		{"fractional cent rounds down", "0.01", "1.25", 1},
		{"fractional cent rounds up", "0.03", "1.25", 4},
		{"stable token one to one", "125.37", "1", 12537},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			rate := decimal.RequireFromString(tt.rate)
			assert.Equal(t, tt.want, CryptoToUSDCents(amount, rate))
		})
	}
}

func TestBankersRoundCents(t *testing.T) {
	// Exact halves round to the nearest even cent in both directions.
	assert.Equal(t, int64(12), BankersRoundCents(decimal.RequireFromString("0.125")))
	assert.Equal(t, int64(14), BankersRoundCents(decimal.RequireFromString("0.135")))
	assert.Equal(t, int64(13), BankersRoundCents(decimal.RequireFromString("0.134")))
}

func TestCentsToTokenUnits(t *testing.T) {
	// $1.00 in a 6-decimal token is 1_000_000 base units.
	assert.Equal(t, "1000000", CentsToTokenUnits(100, 6).String())
	assert.Equal(t, "12537000000", CentsToTokenUnits(1253700, 6).String())
	// 18-decimal token.
	assert.Equal(t, "10000000000000000", CentsToTokenUnits(1, 18).String())
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$125.37", FormatUSD(12537))
	assert.Equal(t, "$0.01", FormatUSD(1))
}
