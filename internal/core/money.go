// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Parsing goes through shopspring/decimal
// so user input like "12.5" or "1,234.56" never touches float arithmetic.
package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	errNegativeAmount = errors.New("amount must not be negative")
	errAmbiguousComma = errors.New(`ambiguous separator: write "1000" or "1,000.00"`)
	errBadGrouping    = errors.New("misplaced thousands separator")
)

var (
	// "12,5" and "12,50" use the comma as the decimal separator.
	decimalComma = regexp.MustCompile(`^\d+,\d{1,2}$`)
	// "1,234.56" groups thousands and keeps a dot for the decimals.
	groupedThousands = regexp.MustCompile(`^\d{1,3}(,\d{3})+\.\d+$`)
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(1 << 53)
)

// ParseAmount converts user input to non-negative cents.
//
// Without a dot, a comma is only read as the decimal separator when one or
// two digits follow it; "1,000" could mean a thousand or one and is
// rejected. With a dot, commas must group thousands correctly and are
// stripped. Values are rounded half-up on the third decimal place. Failures
// are returned as *AmountError, which matches ErrInvalidAmount and wraps the
// parse detail.
//
// Examples:
//
//	ParseAmount("12.50")    -> 1250, nil
//	ParseAmount("12,5")     -> 1250, nil
//	ParseAmount("1,234.56") -> 123456, nil
//	ParseAmount("12.345")   -> 1235, nil
//	ParseAmount("1,000")    -> error
//	ParseAmount("abc")      -> error
func ParseAmount(s string) (Money, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, &AmountError{Input: raw, Err: errors.New("empty amount")}
	}
	if strings.Contains(s, ",") {
		switch {
		case strings.Contains(s, "."):
			if !groupedThousands.MatchString(s) {
				return Money{}, &AmountError{Input: raw, Err: errBadGrouping}
			}
			s = strings.ReplaceAll(s, ",", "")
		case decimalComma.MatchString(s):
			s = strings.Replace(s, ",", ".", 1)
		default:
			return Money{}, &AmountError{Input: raw, Err: errAmbiguousComma}
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &AmountError{Input: raw, Err: err}
	}
	if d.IsNegative() {
		return Money{}, &AmountError{Input: raw, Err: errNegativeAmount}
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, &AmountError{Input: raw, Err: fmt.Errorf("amount out of range")}
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParsePositiveAmount is ParseAmount with zero rejected, for budgets, goal
// targets and contributions.
func ParsePositiveAmount(s string) (Money, error) {
	m, err := ParseAmount(s)
	if err != nil {
		return Money{}, err
	}
	if m.Cents == 0 {
		return Money{}, &AmountError{Input: s, Err: errors.New("amount must be greater than zero")}
	}
	return m, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float returns the amount in major units for charts and JSON payloads.
// Use cents for calculations.
func (m Money) Float() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
