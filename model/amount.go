package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountScale is the number of fractional digits persisted for amounts.
const MaxAmountScale = 4

// minDisplayScale keeps whole-currency amounts rendered as "100.00".
const minDisplayScale = 2

var (
	ErrAmountFormat   = errors.New("amount must be a decimal number")
	ErrAmountPositive = errors.New("amount must be greater than zero")
	ErrAmountScale    = errors.New("amount has too many fractional digits")
)

// ParseAmount parses a positive decimal amount with at most MaxAmountScale
// fractional digits. Floats never take part in the conversion.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrAmountFormat
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrAmountFormat
	}

	if err := CheckAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckAmount validates an already parsed amount.
func CheckAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrAmountPositive
	}
	if !d.Equal(d.Truncate(MaxAmountScale)) {
		return ErrAmountScale
	}
	return nil
}

// FormatAmount renders an amount with at least two and at most
// MaxAmountScale fractional digits, e.g. "100.50" or "0.0001".
func FormatAmount(d decimal.Decimal) string {
	places := int32(minDisplayScale)
	if exp := -d.Exponent(); exp > places {
		places = exp
	}
	if places > MaxAmountScale {
		places = MaxAmountScale
	}
	return d.StringFixed(places)
}

// SumAmounts adds amounts with exact decimal arithmetic.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
