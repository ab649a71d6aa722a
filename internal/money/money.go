package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency amount stored in integer minor units (cents, sen,
// paise). All arithmetic is exact; floats never touch a total.
type Money int64

// ErrInvalidAmount is returned when a user-facing amount cannot be converted
// into minor units without losing precision.
var ErrInvalidAmount = errors.New("money: invalid amount")

var minorFactor = decimal.NewFromInt(100)

// FromMajorUnits parses a user-facing decimal amount such as "120.50" into
// minor units. Negative amounts and amounts with sub-minor precision are
// rejected.
func FromMajorUnits(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, s)
	}
	scaled := d.Mul(minorFactor)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %q is below minor unit precision", ErrInvalidAmount, s)
	}
	return Money(scaled.IntPart()), nil
}

// FromMinorUnits wraps a raw minor-unit amount.
func FromMinorUnits(v int64) Money { return Money(v) }

// Minor returns the raw minor-unit amount.
func (m Money) Minor() int64 { return int64(m) }

// MulQty multiplies the amount by a line quantity. Exact integer arithmetic.
func (m Money) MulQty(q int) Money { return m * Money(q) }

// ApplyBps applies a rate expressed in basis points (1% == 100 bps), rounding
// half-up to the nearest minor unit. Discount percentages and tax both go
// through here so a bill reprices to identical figures every time.
func (m Money) ApplyBps(bps int64) Money {
	if m <= 0 || bps <= 0 {
		return 0
	}
	return Money((int64(m)*bps + 5000) / 10000)
}

// Add returns m + other.
func (m Money) Add(other Money) Money { return m + other }

// Sub returns m - other.
func (m Money) Sub(other Money) Money { return m - other }

// Cmp compares two amounts, returning -1, 0 or 1.
func (m Money) Cmp(other Money) int {
	switch {
	case m < other:
		return -1
	case m > other:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m == 0 }

// Format renders the amount in major units with two fraction digits.
func (m Money) Format() string {
	return decimal.New(int64(m), -2).StringFixed(2)
}

// BpsFromPercent converts a percentage such as "10" or "12.5" into basis
// points. Values finer than a hundredth of a percent are rejected.
func BpsFromPercent(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	scaled := d.Mul(minorFactor)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %q is below basis point precision", ErrInvalidAmount, s)
	}
	return scaled.IntPart(), nil
}
