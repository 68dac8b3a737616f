package currency

import (
	"context"
	"sync"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
)

// MemoryRateStore is an in-process RateRepository used by tests and local runs
type MemoryRateStore struct {
	mu    sync.RWMutex
	rates []*ExchangeRate
}

// NewMemoryRateStore creates a store seeded with the given rates
func NewMemoryRateStore(rates ...*ExchangeRate) *MemoryRateStore {
	s := &MemoryRateStore{}
	s.rates = append(s.rates, rates...)
	return s
}

// Save appends a record; later saves win ties on the same date
func (s *MemoryRateStore) Save(_ context.Context, rate *ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = append(s.rates, rate)
	return nil
}

// FindLatest implements RateStore
func (s *MemoryRateStore) FindLatest(_ context.Context, from, to valueobject.Currency, asOf time.Time) (*ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *ExchangeRate
	for _, r := range s.rates {
		if r.FromCurrency != from || r.ToCurrency != to || r.Date.After(asOf) {
			continue
		}
		if best == nil || !r.Date.Before(best.Date) {
			best = r
		}
	}
	if best == nil {
		return nil, shared.ErrNotFound
	}
	return best, nil
}
