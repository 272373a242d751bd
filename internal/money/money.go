// Package money centralises the monetary rounding and formatting rules used
// when talking to the payment gateway.
package money

import "github.com/shopspring/decimal"

// Scale is the number of decimal places every amount is rounded to before it
// is transmitted to the gateway. Rounding is half-up away from zero
// (decimal.Round), not banker's rounding: 5.005 rounds to 5.01.
const Scale = 2

// Round rounds an amount to the transmission scale.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Format renders an amount with exactly two fractional digits, e.g. "49.99".
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Units truncates an amount to whole currency units. The gateway's verify
// call only accepts integral amounts; the fraction is discarded, matching
// the upstream convention. Known rounding-mismatch source, kept deliberately.
func Units(d decimal.Decimal) int64 {
	return d.IntPart()
}
