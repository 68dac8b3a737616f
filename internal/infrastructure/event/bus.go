package event

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// BusStats is a snapshot of dispatch counters
type BusStats struct {
	Published int64 `json:"published"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// InMemoryEventBus dispatches cheque entry events to in-process handlers.
// Delivery is synchronous and best effort: a failing or panicking handler is
// logged and counted, the remaining handlers still run and Publish returns nil.
type InMemoryEventBus struct {
	registry       *HandlerRegistry
	logger         *zap.Logger
	handlerTimeout time.Duration
	running        atomic.Bool

	published atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithHandlerTimeout bounds each handler call. Zero disables the bound.
func WithHandlerTimeout(d time.Duration) BusOption {
	return func(b *InMemoryEventBus) {
		b.handlerTimeout = d
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(log *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry:       NewHandlerRegistry(),
		logger:         log,
		handlerTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands every event to its handlers in registration order
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		b.published.Add(1)
		for _, h := range b.registry.Handlers(ev.EventType()) {
			if err := b.dispatch(ctx, h, ev); err != nil {
				b.failed.Add(1)
				logger.WithLogger(ctx, b.logger).Error("event handler failed",
					zap.String("event_type", ev.EventType()),
					zap.String("event_id", ev.EventID().String()),
					zap.Error(err),
				)
				continue
			}
			b.delivered.Add(1)
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, falling back to handler.EventTypes()
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start marks the bus as running
func (b *InMemoryEventBus) Start(_ context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started")
	return nil
}

// Stop marks the bus as stopped. Publish is synchronous so nothing is in flight.
func (b *InMemoryEventBus) Stop(_ context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped", zap.Any("stats", b.Stats()))
	return nil
}

// Running reports whether Start has been called without a matching Stop
func (b *InMemoryEventBus) Running() bool {
	return b.running.Load()
}

// Stats returns dispatch counters
func (b *InMemoryEventBus) Stats() BusStats {
	return BusStats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Failed:    b.failed.Load(),
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	if b.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.handlerTimeout)
		defer cancel()
	}
	return h.Handle(ctx, ev)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
