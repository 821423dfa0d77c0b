// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Conversion to floating point happens
// only when values leave the process (JSON, CLI output).
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
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
	for _, r := range intPart + fracPart {
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
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
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

// FromFloat converts a currency amount to cents, rounding half away from zero.
func FromFloat(v float64) Money {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Money{}
	}
	return Money{Cents: int64(math.Round(v * 100))}
}

// MaxUnits is the largest whole amount, in currency units, whose cents fit in
// an int64.
const MaxUnits = math.MaxInt64 / 100

// ParseUnits converts a non-negative amount in currency units to cents. It
// rejects values that are negative, not finite or too large to hold as cents.
func ParseUnits(field string, v float64) (Money, error) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return Money{}, invalid(field, "must be a finite number")
	case v < 0:
		return Money{}, invalid(field, "must not be negative")
	case v >= MaxUnits:
		return Money{}, invalid(field, "must be less than "+strconv.FormatInt(MaxUnits, 10))
	}
	return FromFloat(v), nil
}

// Float returns the amount in currency units for display and wire formats.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) IsPositive() bool { return m.Cents > 0 }

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// MinMoney returns the smaller amount.
func MinMoney(a, b Money) Money {
	if b.Cents < a.Cents {
		return b
	}
	return a
}

// MaxMoney returns the larger amount.
func MaxMoney(a, b Money) Money {
	if b.Cents > a.Cents {
		return b
	}
	return a
}

// String formats the amount with two decimals, e.g. "12.34" or "-0.05".
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + strconv.FormatInt(c/100, 10) + "." + twoDigits(c%100)
}

func twoDigits(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}
