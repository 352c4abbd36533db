// Package money provides the Amount value object used everywhere a
// monetary value crosses a component boundary. Amounts are immutable,
// never negative, and always held at two fractional digits using
// banker's rounding, so arithmetic results are stable regardless of
// the order operations are applied in.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

const scale = 2

var (
	// ErrNegativeAmount is returned when a construction or subtraction
	// would produce a negative monetary value.
	ErrNegativeAmount = errors.New("money: amount cannot be negative")
	// ErrDivideByZero is returned by Divide when the divisor is zero.
	ErrDivideByZero = errors.New("money: division by zero")
)

// Amount wraps a decimal value at a fixed scale of 2, rounded half-even.
type Amount struct {
	value decimal.Decimal
}

// New creates an Amount from a decimal value. The value is rescaled to
// two fractional digits with banker's rounding.
func New(value decimal.Decimal) (Amount, error) {
	if value.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	return Amount{value: value.RoundBank(scale)}, nil
}

// FromFloat creates an Amount from a float64.
func FromFloat(value float64) (Amount, error) {
	return New(decimal.NewFromFloat(value))
}

// FromString creates an Amount from a decimal string such as "150000.00".
func FromString(value string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, err
	}
	return New(d)
}

// MustFromString is FromString for static values known to be valid.
// It panics on malformed or negative input.
func MustFromString(value string) Amount {
	a, err := FromString(value)
	if err != nil {
		panic(err)
	}
	return a
}

// Zero returns the zero Amount.
func Zero() Amount {
	return Amount{value: decimal.Zero.RoundBank(scale)}
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

// Add returns the sum of a and other.
func (a Amount) Add(other Amount) Amount {
	return Amount{value: a.value.Add(other.value).RoundBank(scale)}
}

// Subtract returns a minus other, or ErrNegativeAmount when the result
// would drop below zero.
func (a Amount) Subtract(other Amount) (Amount, error) {
	result := a.value.Sub(other.value)
	if result.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	return Amount{value: result.RoundBank(scale)}, nil
}

// Multiply returns a scaled by factor. A negative factor fails with
// ErrNegativeAmount since no Amount may be negative.
func (a Amount) Multiply(factor decimal.Decimal) (Amount, error) {
	return New(a.value.Mul(factor))
}

// Divide returns a divided by divisor at the fixed scale.
func (a Amount) Divide(divisor decimal.Decimal) (Amount, error) {
	if divisor.IsZero() {
		return Amount{}, ErrDivideByZero
	}
	return New(a.value.DivRound(divisor, scale))
}

// IsZero reports whether the amount equals zero.
func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.value.IsPositive()
}

// Cmp compares two amounts, returning -1, 0 or 1.
func (a Amount) Cmp(other Amount) int {
	return a.value.Cmp(other.value)
}

// Equal reports whether two amounts hold the same value.
func (a Amount) Equal(other Amount) bool {
	return a.value.Equal(other.value)
}

// String renders the amount as a plain decimal string, e.g. "1500.50".
func (a Amount) String() string {
	return a.value.StringFixedBank(scale)
}

// MarshalJSON renders the amount as a JSON string at the fixed scale.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
