// Package core holds the expense domain: records, dates, amounts and the
// aggregation arithmetic shared by every store.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Bounds on accepted amounts: at most MaxAmountIntegerDigits digits
// before the point and MaxAmountScale after it.
const (
	MaxAmountIntegerDigits = 12
	MaxAmountScale         = 8

	maxAmountInputLen = 64
)

// ParseAmount parses a decimal amount string. Leading and trailing
// whitespace is ignored; anything else that is not a number is rejected,
// as is any value outside the amount bounds.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if len(s) > maxAmountInputLen {
		return decimal.Zero, fmt.Errorf("%w: too long", ErrAmountOutOfRange)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsZero() {
		return decimal.Zero, nil
	}
	// Bound the exponent before anything rescales the coefficient:
	// "1e2000000000" is a few bytes but its expansion is not.
	exp := int64(d.Exponent())
	if exp < -(MaxAmountScale + maxAmountInputLen) || int64(d.NumDigits())+exp > MaxAmountIntegerDigits {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAmountOutOfRange, s)
	}
	// Trailing zeros past the scale are fine ("1.5000000000").
	if exp < -MaxAmountScale && !d.Equal(d.Truncate(MaxAmountScale)) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAmountOutOfRange, s)
	}
	return d, nil
}

// ParsePositiveAmount is ParseAmount restricted to values greater than zero.
func ParsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return d, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount in its shortest exact form ("12.5", "40").
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}
