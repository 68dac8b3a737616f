package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is an ISO 4217 currency code as stored on Account records
type Currency string

// ParseCurrency normalizes and validates a currency code
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("currency cannot be empty")
	}
	if _, err := currency.ParseISO(code); err != nil {
		return "", fmt.Errorf("invalid currency code %q: %w", code, err)
	}
	return Currency(code), nil
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// IsZero reports whether the code is unset
func (c Currency) IsZero() bool {
	return c == ""
}

// Money is an immutable amount in one currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money; the currency must be set
func NewMoney(amount decimal.Decimal, cur Currency) (Money, error) {
	if cur.IsZero() {
		return Money{}, fmt.Errorf("currency cannot be empty")
	}
	return Money{amount: amount, currency: cur}, nil
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency
func (m Money) Currency() Currency {
	return m.currency
}

// Convert multiplies by rate and relabels the result in the target currency
func (m Money) Convert(rate decimal.Decimal, to Currency) Money {
	if m.currency == to {
		return m
	}
	return Money{amount: m.amount.Mul(rate), currency: to}
}

// Format renders the amount with the ISO code and English digit grouping,
// rounded to the currency's standard scale (e.g. "USD 1,234.50").
// Codes unknown to the CLDR tables fall back to "CODE amount".
func (m Money) Format() string {
	unit, err := currency.ParseISO(m.currency.String())
	if err != nil {
		return m.currency.String() + " " + m.amount.StringFixed(2)
	}
	p := message.NewPrinter(language.English)
	return p.Sprint(currency.ISO(unit.Amount(m.amount.InexactFloat64())))
}
