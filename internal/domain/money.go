package domain

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatAmount renders a decimal amount in the given ISO currency for display,
// e.g. 1200 INR as "₹1,200.00". Amounts are rounded to the currency's minor unit.
func FormatAmount(amount decimal.Decimal, currency string) string {
	// the Money constructor always yields a non nil currency, known or not
	cur := *money.New(0, currency).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
