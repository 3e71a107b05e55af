// Package money provides currency-safe financial arithmetic using integer
// paise/cents and the Fowler Money pattern. Statement amounts flow through
// this package so that journal entries balance exactly, without float drift.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	INR = "INR" // Indian Rupee
	USD = "USD" // US Dollar
	EUR = "EUR" // Euro
	GBP = "GBP" // British Pound
)

// DefaultCurrency is used when a caller does not specify one. Passbooks
// handled by this project are predominantly INR.
const DefaultCurrency = INR

// Money represents a monetary value with currency. It wraps go-money for
// safe arithmetic and shopspring/decimal for precise conversions.
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units (paise/cents) and currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{
		m: money.New(amountCents, currencyCode),
	}
}

// NewFromDecimal creates Money from a decimal value in major units.
// This is the safest way to create Money from a non-integer value.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(DefaultCurrency)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return New(cents, currency.Code)
}

// NewFromString parses a statement amount string into Money.
// Accepts comma thousands separators, currency symbols, and parenthesized
// negatives as they appear in bank statements: "1,234.56", "₹500.00",
// "(45.20)", "-45.20".
func NewFromString(amount string, currencyCode string) (*Money, error) {
	amount = strings.TrimSpace(amount)
	amount = strings.ReplaceAll(amount, " ", "")
	if amount == "" {
		return nil, errors.New("empty amount")
	}

	// Remove currency symbols and code prefixes
	for _, sym := range []string{"₹", "Rs.", "Rs", "INR", "$", "€", "£"} {
		amount = strings.ReplaceAll(amount, sym, "")
	}

	// (45.20) means -45.20
	negative := false
	if strings.HasPrefix(amount, "(") && strings.HasSuffix(amount, ")") {
		negative = true
		amount = amount[1 : len(amount)-1]
	}

	amount = strings.ReplaceAll(amount, ",", "")

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if negative {
		d = d.Neg()
	}

	return NewFromDecimal(d, currencyCode), nil
}

// Zero returns a zero Money value for the given currency.
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Amount returns the amount in minor units (paise/cents).
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero.
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// IsPositive returns true if the amount is greater than zero.
func (m *Money) IsPositive() bool {
	return m != nil && m.m != nil && m.m.IsPositive()
}

// IsNegative returns true if the amount is less than zero.
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Abs returns the absolute value.
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return Zero(DefaultCurrency)
	}
	return &Money{m: m.m.Absolute()}
}

// Negate returns the value with its sign flipped. go-money's Negative()
// returns the negative absolute value, which is not the same thing for
// amounts that are already negative, so the negation is built directly.
func (m *Money) Negate() *Money {
	if m == nil || m.m == nil {
		return Zero(DefaultCurrency)
	}
	return New(-m.m.Amount(), m.m.Currency().Code)
}

// Add adds two Money values. Returns an error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Subtract subtracts other from m. Returns an error if currencies don't match.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		if other == nil {
			return Zero(DefaultCurrency), nil
		}
		return other.Negate(), nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Subtract(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Equals returns true if both values are equal. Nil compares equal to zero.
func (m *Money) Equals(other *Money) bool {
	if m == nil || m.m == nil {
		return other == nil || other.m == nil || other.IsZero()
	}
	if other == nil || other.m == nil {
		return m.IsZero()
	}
	eq, _ := m.m.Equals(other.m)
	return eq
}

// Compare returns -1 if m < other, 0 if equal, 1 if m > other.
func (m *Money) Compare(other *Money) int {
	if m == nil || m.m == nil {
		if other == nil || other.m == nil || other.IsZero() {
			return 0
		}
		if other.IsPositive() {
			return -1
		}
		return 1
	}
	cmp, _ := m.m.Compare(other.m)
	return cmp
}

// SameCurrency returns true if both have the same currency.
func (m *Money) SameCurrency(other *Money) bool {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return false
	}
	return m.m.SameCurrency(other.m)
}

// Display returns a formatted string for display (e.g., "₹1,234.56").
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.m.Display()
}

// String returns the amount as a decimal string (e.g., "1234.56").
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().StringFixed(2)
}

// ToDecimal converts to decimal.Decimal in major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	currency := m.m.Currency()
	d := decimal.NewFromInt(m.m.Amount())
	divisor := decimal.New(1, int32(currency.Fraction))
	return d.Div(divisor)
}

// ToFloat64 converts to float64 for display only.
func (m *Money) ToFloat64() float64 {
	return m.ToDecimal().InexactFloat64()
}

// Sum adds a slice of Money values. Nil entries count as zero.
func Sum(currencyCode string, values ...*Money) (*Money, error) {
	total := Zero(currencyCode)
	for _, v := range values {
		if v == nil {
			continue
		}
		next, err := total.Add(v)
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}

// MarshalJSON renders amount, currency and display form.
func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]interface{}{
		"amount":   m.Amount(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.m = money.New(v.Amount, v.Currency)
	return nil
}
