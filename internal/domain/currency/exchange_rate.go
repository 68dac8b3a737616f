package currency

import (
	"context"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for effective dates
const DateLayout = "2006-01-02"

// ExchangeRate is a Currency Exchange record: 1 From = Rate To, effective from Date
type ExchangeRate struct {
	ID           uuid.UUID            `json:"id"`
	FromCurrency valueobject.Currency `json:"from_currency"`
	ToCurrency   valueobject.Currency `json:"to_currency"`
	Rate         decimal.Decimal      `json:"exchange_rate"`
	Date         time.Time            `json:"date"`
	CreatedAt    time.Time            `json:"created_at"`
}

// NewExchangeRate validates and creates a rate record
func NewExchangeRate(from, to string, rate decimal.Decimal, date time.Time) (*ExchangeRate, error) {
	fromCur, err := valueobject.ParseCurrency(from)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CURRENCY", err.Error())
	}
	toCur, err := valueobject.ParseCurrency(to)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CURRENCY", err.Error())
	}
	if fromCur == toCur {
		return nil, shared.NewDomainError("INVALID_CURRENCY_PAIR", "From and to currency must differ")
	}
	if !rate.IsPositive() {
		return nil, shared.NewDomainError("INVALID_RATE", "Exchange rate must be positive")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Effective date is required")
	}
	return &ExchangeRate{
		ID:           uuid.New(),
		FromCurrency: fromCur,
		ToCurrency:   toCur,
		Rate:         rate,
		Date:         DateOnly(date),
		CreatedAt:    time.Now(),
	}, nil
}

// RateStore reads Currency Exchange records.
// FindLatest returns the most recent record for the pair with date <= asOf,
// newest insertion first on equal dates, or shared.ErrNotFound.
type RateStore interface {
	FindLatest(ctx context.Context, from, to valueobject.Currency, asOf time.Time) (*ExchangeRate, error)
}

// RateRepository is a RateStore that also records rates
type RateRepository interface {
	RateStore
	Save(ctx context.Context, rate *ExchangeRate) error
}

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
