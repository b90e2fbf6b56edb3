package currency

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var centsFactor = decimal.NewFromInt(100)

// CryptoToUSDCents converts a crypto amount at the given exchange rate into
// USD cents using banker's rounding.
func CryptoToUSDCents(amount, exchangeRate decimal.Decimal) int64 {
	return BankersRoundCents(amount.Mul(exchangeRate))
}

// BankersRoundCents rounds a USD value to whole cents, rounding exact halves
// to the nearest even cent.
func BankersRoundCents(usd decimal.Decimal) int64 {
	return usd.Mul(centsFactor).RoundBank(0).IntPart()
}

// CentsToTokenUnits converts USD cents into base token units for a stable
// token with the given number of decimals (e.g. 6 for USDT).
func CentsToTokenUnits(cents int64, decimals int32) *big.Int {
	units := decimal.New(cents, -2).Shift(decimals)
	return units.Truncate(0).BigInt()
}

// CentsToDollars converts cents to dollars for display.
func CentsToDollars(cents int64) float64 {
	return float64(cents) / 100.0
}

// FormatUSD formats cents as a USD string.
func FormatUSD(cents int64) string {
	return fmt.Sprintf("$%.2f", CentsToDollars(cents))
}
