// Package core provides the domain records and value types shared by the
// obligation, split and ledger packages.
//
// This file contains the Money type: amounts are kept in integer cents and
// parsed/scaled through shopspring/decimal so that reconciliation checks never
// touch binary floating point.
package core

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// DefaultEpsilon is the tolerance used when reconciling split shares.
var DefaultEpsilon = Money{Cents: 1}

var (
	hundred = decimal.NewFromInt(100)
	// largest whole amount that still fits in int64 cents
	maxMajor = decimal.NewFromInt((1<<63 - 1) / 100)
)

// ParseMoney converts a decimal string to Money with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding whitespace. Signs, exponents and any other characters are
// rejected with ErrInvalidAmount. Zero is a valid amount here; records that
// need a positive value check it in Validate.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents
//	ParseMoney("-1")     -> ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	if s == "." {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return moneyFromDecimal(d)
}

// MoneyFromFloat converts a major-unit number (as decoded from JSON) to Money.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return Money{}, ErrInvalidAmount
	}
	return moneyFromDecimal(decimal.NewFromFloat(f))
}

// MustParseMoney is ParseMoney for literals in tests and defaults.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func moneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	if d.GreaterThan(maxMajor) {
		return Money{}, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	return Money{Cents: d.Round(2).Shift(2).IntPart()}, nil
}

// Cents builds Money from minor units.
func Cents(c int64) Money { return Money{Cents: c} }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// MulRatio scales the amount by num/den, rounding half away from zero to the
// nearest cent. A zero denominator yields zero.
func (m Money) MulRatio(num, den decimal.Decimal) Money {
	if den.IsZero() {
		return Money{}
	}
	v := decimal.NewFromInt(m.Cents).Mul(num).Div(den).Round(0)
	return Money{Cents: v.IntPart()}
}

// Percent returns pct percent of the amount, rounded to cents.
func (m Money) Percent(pct decimal.Decimal) Money {
	return m.MulRatio(pct, hundred)
}

// ApproxEquals reports whether |m-o| <= epsilon. It is the only comparison
// used for reconciliation.
func (m Money) ApproxEquals(o, epsilon Money) bool {
	return m.Sub(o).Abs().Cents <= epsilon.Abs().Cents
}

func (m Money) IsZero() bool { return m.Cents == 0 }

func (m Money) IsNegative() bool { return m.Cents < 0 }

// String renders the amount as a plain decimal, e.g. "1234.50" or "-0.05".
func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Euros returns the value as a float64 for display purposes only.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// Validate requires a strictly positive amount.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	neg := strings.HasPrefix(s, "-")
	parsed, err := ParseMoney(strings.TrimPrefix(s, "-"))
	if err != nil {
		return err
	}
	if neg {
		parsed = parsed.Neg()
	}
	*m = parsed
	return nil
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
