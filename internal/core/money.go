// Package core holds the expense data model, balance calculation and
// settlement suggestion logic. Amounts are decimal throughout; rounding
// to two places happens only at presentation and serialization
// boundaries to avoid cumulative drift.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance used when classifying balances as settled.
// The conservation invariant (all balances sum to zero) is enforced
// within this tolerance.
var Epsilon = decimal.New(1, -6) // 1e-6

// ParseAmount converts a decimal string to an amount. It accepts both
// dot (12.34) and comma (12,34) separators. The value must be strictly
// positive.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseWeight parses a non-negative share weight.
func ParseWeight(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNegativeShare
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeShare
	}
	return d, nil
}

// Round2 rounds to currency precision for display and storage.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders an amount with two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
