package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRateTTL   = 10 * time.Minute
	rateKeyPrefix    = "cheques:fx:"
	rateSweepTrigger = 4096
)

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e cacheEntry[T]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// RateCacheConfig configures a RateCache
type RateCacheConfig struct {
	// TTL applies to both tiers. Zero means 10 minutes.
	TTL time.Duration
	// Redis enables the shared second tier when non-nil
	Redis  redis.UniversalClient
	Logger *zap.Logger
}

// RateCacheStats reports tier hit counters
type RateCacheStats struct {
	LocalHits  int64 `json:"local_hits"`
	RemoteHits int64 `json:"remote_hits"`
	Misses     int64 `json:"misses"`
	Entries    int   `json:"entries"`
}

// RateCache decorates a RateRepository with an in-process tier and an
// optional Redis tier. Lookups are keyed by pair and calendar date.
// Not-found results are never cached so a newly recorded rate is visible
// on the next lookup. Save invalidates the pair in both tiers.
type RateCache struct {
	next   currency.RateRepository
	ttl    time.Duration
	redis  redis.UniversalClient
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry[*currency.ExchangeRate]

	localHits  atomic.Int64
	remoteHits atomic.Int64
	misses     atomic.Int64
}

// NewRateCache wraps next
func NewRateCache(next currency.RateRepository, cfg RateCacheConfig) *RateCache {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultRateTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &RateCache{
		next:    next,
		ttl:     cfg.TTL,
		redis:   cfg.Redis,
		logger:  cfg.Logger,
		entries: make(map[string]cacheEntry[*currency.ExchangeRate]),
	}
}

func pairKey(from, to valueobject.Currency) string {
	return string(from) + "|" + string(to)
}

func localKey(from, to valueobject.Currency, day string) string {
	return pairKey(from, to) + "|" + day
}

func remoteKey(from, to valueobject.Currency) string {
	return rateKeyPrefix + string(from) + ":" + string(to)
}

// FindLatest implements currency.RateStore
func (c *RateCache) FindLatest(ctx context.Context, from, to valueobject.Currency, asOf time.Time) (*currency.ExchangeRate, error) {
	day := currency.DateOnly(asOf).Format(currency.DateLayout)
	key := localKey(from, to, day)
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && !entry.expired(now) {
		c.localHits.Add(1)
		return entry.value, nil
	}

	if c.redis != nil {
		if rate, ok := c.getRemote(ctx, from, to, day); ok {
			c.remoteHits.Add(1)
			c.storeLocal(key, rate, now)
			return rate, nil
		}
	}

	c.misses.Add(1)
	rate, err := c.next.FindLatest(ctx, from, to, asOf)
	if err != nil {
		return nil, err
	}

	c.storeLocal(key, rate, now)
	if c.redis != nil {
		c.setRemote(ctx, from, to, day, rate)
	}
	return rate, nil
}

// Save records the rate and drops every cached answer for the pair
func (c *RateCache) Save(ctx context.Context, rate *currency.ExchangeRate) error {
	if err := c.next.Save(ctx, rate); err != nil {
		return err
	}
	c.Invalidate(ctx, rate.FromCurrency, rate.ToCurrency)
	return nil
}

// Invalidate drops cached lookups for a currency pair
func (c *RateCache) Invalidate(ctx context.Context, from, to valueobject.Currency) {
	prefix := pairKey(from, to) + "|"

	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()

	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, remoteKey(from, to)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate cached rates in Redis",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
	}
}

// Stats returns hit counters and the local entry count
func (c *RateCache) Stats() RateCacheStats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return RateCacheStats{
		LocalHits:  c.localHits.Load(),
		RemoteHits: c.remoteHits.Load(),
		Misses:     c.misses.Load(),
		Entries:    n,
	}
}

func (c *RateCache) storeLocal(key string, rate *currency.ExchangeRate, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= rateSweepTrigger {
		for k, e := range c.entries {
			if e.expired(now) {
				delete(c.entries, k)
			}
		}
	}
	c.entries[key] = cacheEntry[*currency.ExchangeRate]{value: rate, expiresAt: now.Add(c.ttl)}
}

func (c *RateCache) getRemote(ctx context.Context, from, to valueobject.Currency, day string) (*currency.ExchangeRate, bool) {
	data, err := c.redis.HGet(ctx, remoteKey(from, to), day).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read cached rate from Redis", zap.Error(err))
		}
		return nil, false
	}

	var rate currency.ExchangeRate
	if err := json.Unmarshal(data, &rate); err != nil {
		c.logger.Warn("Discarding malformed cached rate",
			zap.String("key", remoteKey(from, to)),
			zap.String("date", day),
			zap.Error(err))
		return nil, false
	}
	return &rate, true
}

func (c *RateCache) setRemote(ctx context.Context, from, to valueobject.Currency, day string, rate *currency.ExchangeRate) {
	data, err := json.Marshal(rate)
	if err != nil {
		c.logger.Warn("Failed to encode rate for Redis", zap.Error(err))
		return
	}

	key := remoteKey(from, to)
	pipe := c.redis.TxPipeline()
	pipe.HSet(ctx, key, day, data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Failed to cache rate in Redis", zap.Error(fmt.Errorf("%s: %w", key, err)))
	}
}

var _ currency.RateRepository = (*RateCache)(nil)
