package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyStats counts what an IdempotentHandler did
type IdempotencyStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// IdempotentHandler runs the wrapped handler at most once per event ID.
// A failed delivery releases its mark so a redelivery can retry.
type IdempotentHandler struct {
	next   shared.EventHandler
	store  shared.IdempotencyStore
	ttl    time.Duration
	prefix string
	logger *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// NewIdempotentHandler wraps next. prefix namespaces the marks per handler.
func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, prefix string, ttl time.Duration, logger *zap.Logger) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotentHandler{
		next:   next,
		store:  store,
		ttl:    ttl,
		prefix: "event:" + prefix + ":",
		logger: logger,
	}
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle implements shared.EventHandler
func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	key := h.prefix + ev.EventID().String()

	fresh, err := h.store.MarkProcessed(ctx, key, h.ttl)
	switch {
	case err != nil:
		// a duplicate is cheaper than a lost event
		h.logger.Warn("idempotency check failed, handling anyway",
			zap.String("event_id", ev.EventID().String()),
			zap.Error(err))
	case !fresh:
		h.duplicate.Add(1)
		h.logger.Debug("duplicate event skipped",
			zap.String("event_id", ev.EventID().String()),
			zap.String("event_type", ev.EventType()))
		return nil
	}

	if err := h.next.Handle(ctx, ev); err != nil {
		h.failed.Add(1)
		if relErr := h.store.Release(context.WithoutCancel(ctx), key); relErr != nil {
			h.logger.Warn("failed to release idempotency mark", zap.String("key", key), zap.Error(relErr))
		}
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns a snapshot of the counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed: h.processed.Load(),
		Duplicate: h.duplicate.Load(),
		Failed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
