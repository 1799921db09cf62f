package order

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// SplitCommission derives the commission and net-to-seller amounts for an
// order amount in minor units. The commission is rounded to a whole minor
// unit and the net amount is the exact remainder, so the parts always sum
// back to the original amount.
func SplitCommission(amount int64, rate decimal.Decimal) (commission, net int64) {
	c := rate.Mul(decimal.NewFromInt(amount)).Round(0).IntPart()
	return c, amount - c
}

// ValidateCurrency checks the code against the ISO 4217 registry.
func ValidateCurrency(code string) error {
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("%w: unknown currency %q", ErrValidation, code)
	}

	return nil
}

// FormatAmount renders minor units as a decimal string, e.g. 1000000 -> "10000.00".
func FormatAmount(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
