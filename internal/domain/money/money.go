package money

import (
	"errors"
	"fmt"
)

var ErrNegativeAmount = errors.New("money cannot be negative")

// Money is an amount in minor units (cents) of the marketplace currency.
type Money struct {
	cents int64
}

func FromCents(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{cents: cents}, nil
}

// MustFromCents is for constants and tests.
func MustFromCents(cents int64) Money {
	m, err := FromCents(cents)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero() Money {
	return Money{}
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) IsZero() bool {
	return m.cents == 0
}

func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}

// Sub never goes below zero.
func (m Money) Sub(other Money) Money {
	if other.cents >= m.cents {
		return Money{}
	}
	return Money{cents: m.cents - other.cents}
}

func (m Money) Times(n int) Money {
	return Money{cents: m.cents * int64(n)}
}

// Percent returns p percent of m, truncated to whole cents.
func (m Money) Percent(p float64) Money {
	if p <= 0 {
		return Money{}
	}
	if p >= 100 {
		return m
	}
	return Money{cents: int64(float64(m.cents) * p / 100.0)}
}

// Fraction returns m*num/den, truncated to whole cents.
func (m Money) Fraction(num, den int) Money {
	if den <= 0 || num <= 0 {
		return Money{}
	}
	if num >= den {
		return m
	}
	return Money{cents: m.cents * int64(num) / int64(den)}
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", m.cents/100, m.cents%100)
}
