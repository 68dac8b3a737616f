package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRates struct {
	*currency.MemoryRateStore
	finds atomic.Int64
}

func (c *countingRates) FindLatest(ctx context.Context, from, to valueobject.Currency, asOf time.Time) (*currency.ExchangeRate, error) {
	c.finds.Add(1)
	return c.MemoryRateStore.FindLatest(ctx, from, to, asOf)
}

func newRate(t *testing.T, from, to, rate, date string) *currency.ExchangeRate {
	t.Helper()
	d, err := time.Parse(currency.DateLayout, date)
	require.NoError(t, err)
	r, err := currency.NewExchangeRate(from, to, decimal.RequireFromString(rate), d)
	require.NoError(t, err)
	return r
}

func TestRateCache_LocalTier(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	t.Run("second lookup on the same day is served locally", func(t *testing.T) {
		backing := &countingRates{MemoryRateStore: currency.NewMemoryRateStore(newRate(t, "USD", "EGP", "30.9", "2024-03-01"))}
		c := NewRateCache(backing, RateCacheConfig{TTL: time.Minute})

		first, err := c.FindLatest(ctx, "USD", "EGP", asOf)
		require.NoError(t, err)
		second, err := c.FindLatest(ctx, "USD", "EGP", asOf.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, int64(1), backing.finds.Load())
		stats := c.Stats()
		assert.Equal(t, int64(1), stats.LocalHits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, 1, stats.Entries)
	})

	t.Run("different dates are cached separately", func(t *testing.T) {
		backing := &countingRates{MemoryRateStore: currency.NewMemoryRateStore(newRate(t, "USD", "EGP", "30.9", "2024-03-01"))}
		c := NewRateCache(backing, RateCacheConfig{})

		_, err := c.FindLatest(ctx, "USD", "EGP", asOf)
		require.NoError(t, err)
		_, err = c.FindLatest(ctx, "USD", "EGP", asOf.AddDate(0, 0, 1))
		require.NoError(t, err)

		assert.Equal(t, int64(2), backing.finds.Load())
	})

	t.Run("not found is never cached", func(t *testing.T) {
		backing := &countingRates{MemoryRateStore: currency.NewMemoryRateStore()}
		c := NewRateCache(backing, RateCacheConfig{})

		_, err := c.FindLatest(ctx, "USD", "EGP", asOf)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		require.NoError(t, c.Save(ctx, newRate(t, "USD", "EGP", "31", "2024-03-10")))

		got, err := c.FindLatest(ctx, "USD", "EGP", asOf)
		require.NoError(t, err)
		assert.True(t, got.Rate.Equal(decimal.NewFromInt(31)))
	})

	t.Run("save invalidates only the affected pair", func(t *testing.T) {
		backing := &countingRates{MemoryRateStore: currency.NewMemoryRateStore(
			newRate(t, "USD", "EGP", "30", "2024-03-01"),
			newRate(t, "EUR", "EGP", "33", "2024-03-01"),
		)}
		c := NewRateCache(backing, RateCacheConfig{})

		_, err := c.FindLatest(ctx, "USD", "EGP", asOf)
		require.NoError(t, err)
		_, err = c.FindLatest(ctx, "EUR", "EGP", asOf)
		require.NoError(t, err)

		require.NoError(t, c.Save(ctx, newRate(t, "USD", "EGP", "32", "2024-03-12")))
		assert.Equal(t, 1, c.Stats().Entries)

		got, err := c.FindLatest(ctx, "USD", "EGP", asOf)
		require.NoError(t, err)
		assert.True(t, got.Rate.Equal(decimal.NewFromInt(32)))
	})

	t.Run("expired entries fall through", func(t *testing.T) {
		backing := &countingRates{MemoryRateStore: currency.NewMemoryRateStore(newRate(t, "USD", "EGP", "30", "2024-03-01"))}
		c := NewRateCache(backing, RateCacheConfig{TTL: 5 * time.Millisecond})

		_, err := c.FindLatest(ctx, "USD", "EGP", asOf)
		require.NoError(t, err)
		time.Sleep(15 * time.Millisecond)
		_, err = c.FindLatest(ctx, "USD", "EGP", asOf)
		require.NoError(t, err)

		assert.Equal(t, int64(2), backing.finds.Load())
	})
}
