package shared

import (
	"context"
	"time"
)

// IdempotencyStore records processed keys so that an operation runs at most once.
// Keys are event IDs for event handlers and row keys for Payment Entry issuance.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when another
	// caller already holds the claim.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release removes a mark so the operation can be retried
	Release(ctx context.Context, key string) error

	Close() error
}
