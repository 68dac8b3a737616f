package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyPrefix = "cheques:idempotency:"

// RedisIdempotencyStore shares issuance marks across replicas so two of
// them never create a Payment Entry for the same row. The client is
// borrowed; the caller closes it.
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisIdempotencyStore keys marks under prefix, or
// "cheques:idempotency:" when prefix is empty.
func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = defaultIdempotencyPrefix
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

// MarkProcessed claims key with SET NX so the check and the claim are one
// round trip. The value records when the claim was made.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := s.client.SetNX(ctx, s.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}

func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return n == 1, nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client outlives the store.
func (s *RedisIdempotencyStore) Close() error { return nil }

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
