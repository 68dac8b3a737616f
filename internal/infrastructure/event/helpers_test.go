package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	types []string
	err   error
	panic bool

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func (h *recordingHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, ev)
	h.mu.Unlock()
	if h.panic {
		panic("boom")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func newEntry(t *testing.T) *cheque.ChequeEntry {
	t.Helper()
	e, err := cheque.NewChequeEntry("MCE-0001", cheque.PaymentTypeReceive, "Acme", "EGP", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return e
}

func createdEvent(t *testing.T) *cheque.ChequeEntryCreatedEvent {
	t.Helper()
	return cheque.NewChequeEntryCreatedEvent(newEntry(t))
}

type handlerFunc func(ctx context.Context) error

func (f handlerFunc) Handle(ctx context.Context, _ shared.DomainEvent) error { return f(ctx) }
func (f handlerFunc) EventTypes() []string                                 { return nil }
