// Package money provides the fixed-precision amount type used throughout the
// ledger. Amounts are stored as integer minor units (cents) so that adding,
// subtracting and comparing never accumulate floating-point error, no matter
// how many splits a balance is built from. Decimal values cross the package
// boundary only as shopspring decimals or formatted strings.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// scale is the number of decimal places in the display currency.
const scale = 2

// EpsilonMinorUnits is the default tolerance for "settled up" and "reconciles
// with the total" comparisons: one minor unit (0.01 in the display currency).
const EpsilonMinorUnits int64 = 1

// Money is an exact amount in minor units. The zero value is zero money.
type Money struct {
	units int64
}

// Zero returns the zero amount.
func Zero() Money {
	return Money{}
}

// FromMinorUnits builds an amount from integer minor units (e.g. cents).
func FromMinorUnits(units int64) Money {
	return Money{units: units}
}

// Parse converts a decimal string such as "30.00" or "-7.5" into Money.
// Amounts with more than two decimal places are rejected rather than rounded,
// because a sub-cent input is always a caller bug in this ledger.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Exponent() < -scale && !d.Equal(d.Round(scale)) {
		return Money{}, fmt.Errorf("invalid amount %q: more than %d decimal places", s, scale)
	}
	return FromDecimal(d), nil
}

// FromDecimal converts a decimal to Money, rounding half away from zero to
// the minor unit. Callers that must not round should validate precision first.
func FromDecimal(d decimal.Decimal) Money {
	return Money{units: d.Round(scale).Shift(scale).IntPart()}
}

// MinorUnits returns the amount in integer minor units.
func (m Money) MinorUnits() int64 {
	return m.units
}

// Decimal returns the amount as an exact decimal (two fractional digits).
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.units, -scale)
}

// Add returns m + o exactly.
func (m Money) Add(o Money) Money {
	return Money{units: m.units + o.units}
}

// Sub returns m − o exactly.
func (m Money) Sub(o Money) Money {
	return Money{units: m.units - o.units}
}

// Neg returns −m.
func (m Money) Neg() Money {
	return Money{units: -m.units}
}

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m.units < 0 {
		return Money{units: -m.units}
	}
	return m
}

// Cmp returns -1, 0 or 1 as m is less than, equal to or greater than o.
func (m Money) Cmp(o Money) int {
	switch {
	case m.units < o.units:
		return -1
	case m.units > o.units:
		return 1
	default:
		return 0
	}
}

// Equal reports exact equality.
func (m Money) Equal(o Money) bool {
	return m.units == o.units
}

// IsPositive reports m > 0 exactly.
func (m Money) IsPositive() bool {
	return m.units > 0
}

// IsNegative reports m < 0 exactly.
func (m Money) IsNegative() bool {
	return m.units < 0
}

// EqualsWithin reports whether m and o differ by at most eps minor units.
// Allocation of a total into N splits may carry up to N−1 minor units of
// rounding drift, so reconciliation checks pass a widened epsilon.
func (m Money) EqualsWithin(o Money, eps int64) bool {
	diff := m.units - o.units
	if diff < 0 {
		diff = -diff
	}
	return diff <= eps
}

// IsZeroWithinEpsilon is the canonical "settled up" test: the magnitude is at
// most one minor unit.
func (m Money) IsZeroWithinEpsilon() bool {
	return m.units >= -EpsilonMinorUnits && m.units <= EpsilonMinorUnits
}

// IsZero reports exact zero.
func (m Money) IsZero() bool {
	return m.units == 0
}

// String formats the amount with exactly two decimal places, e.g. "-30.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(scale)
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes either a decimal string or a bare JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds a series of amounts exactly.
func Sum(amounts ...Money) Money {
	total := Money{}
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// SplitTolerance returns the reconciliation epsilon for a total divided into
// n parts: max(1, n−1) minor units.
func SplitTolerance(n int) int64 {
	if n <= 2 {
		return EpsilonMinorUnits
	}
	return int64(n - 1)
}
