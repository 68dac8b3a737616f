package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ErrRateNotFound is returned when neither direction of a pair has a usable record
var ErrRateNotFound = shared.ErrRateNotFound

// LookupNotFoundError names the pair and date that could not be resolved
type LookupNotFoundError struct {
	From valueobject.Currency
	To   valueobject.Currency
	Date time.Time
}

func (e *LookupNotFoundError) Error() string {
	return fmt.Sprintf("no exchange rate for %s to %s on or before %s", e.From, e.To, e.Date.Format(DateLayout))
}

// Unwrap lets errors.Is match ErrRateNotFound
func (e *LookupNotFoundError) Unwrap() error {
	return ErrRateNotFound
}

// ExchangeRateLookup resolves the conversion factor between two currencies
type ExchangeRateLookup struct {
	store RateStore
}

// NewExchangeRateLookup creates a lookup over the given store
func NewExchangeRateLookup(store RateStore) *ExchangeRateLookup {
	return &ExchangeRateLookup{store: store}
}

// Lookup returns how many units of to one unit of from buys as of asOf.
// Equal currencies resolve to 1 without touching the store. A missing direct
// record falls back to the reciprocal of the reverse pair. It never defaults
// to parity: an unresolved pair is a *LookupNotFoundError.
func (l *ExchangeRateLookup) Lookup(ctx context.Context, from, to valueobject.Currency, asOf time.Time) (decimal.Decimal, error) {
	if from == to {
		return valueobject.One, nil
	}
	asOf = DateOnly(asOf)

	rate, err := l.find(ctx, from, to, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	if rate != nil {
		return rate.Rate, nil
	}

	reverse, err := l.find(ctx, to, from, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	if reverse != nil {
		return valueobject.Reciprocal(reverse.Rate), nil
	}

	return decimal.Zero, &LookupNotFoundError{From: from, To: to, Date: asOf}
}

// find hides not-found and non-positive records behind a nil result
func (l *ExchangeRateLookup) find(ctx context.Context, from, to valueobject.Currency, asOf time.Time) (*ExchangeRate, error) {
	rate, err := l.store.FindLatest(ctx, from, to, asOf)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find exchange rate %s/%s: %w", from, to, err)
	}
	if rate == nil || !rate.Rate.IsPositive() {
		return nil, nil
	}
	return rate, nil
}
