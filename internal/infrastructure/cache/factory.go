package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisPingTimeout = 5 * time.Second

// NewRedisClient connects to the configured Redis and pings it. The client
// is closed again when the ping fails.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewIdempotencyStore shares issuance marks through client when there is
// one. A nil client means a single replica, so marks stay in process.
func NewIdempotencyStore(client redis.UniversalClient, logger *zap.Logger) shared.IdempotencyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		logger.Info("Using in-memory idempotency store; replicas will not share issuance marks")
		return NewInMemoryIdempotencyStore(0)
	}
	logger.Info("Using Redis idempotency store")
	return NewRedisIdempotencyStore(client, "")
}
