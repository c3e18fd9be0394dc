// Package core holds the transaction/category data model together with the
// filtering, aggregation, and category-scoping logic.
//
// This file contains money parsing and formatting. Amounts are stored as
// integer cents; floats appear only at the JSON boundary and in display
// formatting.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in integer cents.
type Money struct {
	Cents int64
}

// ParseAmountCents converts a decimal string to cents with half-up rounding
// on the third decimal place. Both dot and comma separators are accepted.
// The result must be strictly positive; empty, malformed, signed, and zero
// inputs are rejected. This is the strict parser used by the entry form.
func ParseAmountCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// LenientAmountCents is the import-time parser: any input that the strict
// parser rejects becomes zero instead of an error, matching the documented
// fallback for historical records. Zero stays distinguishable from a missing
// field only through the caller's raw value.
func LenientAmountCents(s string) int64 {
	cents, err := ParseAmountCents(s)
	if err != nil {
		return 0
	}
	return cents
}

// Float64 returns the decimal value for display and JSON serialization.
// Use cents for all arithmetic.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}

// String formats with exactly two decimals, e.g. "1234.50".
func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// MarshalJSON emits the amount as a plain decimal number so exported files
// keep the original field shape.
func (m Money) MarshalJSON() ([]byte, error) {
	c := m.Cents
	if c%100 == 0 {
		return []byte(strconv.FormatInt(c/100, 10)), nil
	}
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts any JSON number or numeric string; anything else
// parses to zero cents rather than failing, because imported records are
// normalized, not rejected.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	m.Cents = LenientAmountCents(s)
	return nil
}
