package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/google/uuid"
)

// Envelope is the wire form of a domain event
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// EventSerializer converts events to envelopes and back
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventSerializer creates a serializer that knows every cheque entry event
func NewEventSerializer() *EventSerializer {
	s := &EventSerializer{types: make(map[string]reflect.Type)}
	s.Register(cheque.EventTypeChequeEntryCreated, &cheque.ChequeEntryCreatedEvent{})
	s.Register(cheque.EventTypeChequeEntrySubmitted, &cheque.ChequeEntrySubmittedEvent{})
	s.Register(cheque.EventTypeChequeEntryCancelled, &cheque.ChequeEntryCancelledEvent{})
	s.Register(cheque.EventTypePaymentEntryIssued, &cheque.PaymentEntryIssuedEvent{})
	s.Register(cheque.EventTypePaymentEntryFailed, &cheque.PaymentEntryFailedEvent{})
	return s
}

// Register makes eventType decodable into the concrete type of sample
func (s *EventSerializer) Register(eventType string, sample shared.DomainEvent) {
	t := reflect.TypeOf(sample)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.mu.Lock()
	s.types[eventType] = t
	s.mu.Unlock()
}

// Encode wraps ev into a JSON envelope
func (s *EventSerializer) Encode(ev shared.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", ev.EventType(), err)
	}
	return json.Marshal(Envelope{
		ID:            ev.EventID(),
		Type:          ev.EventType(),
		AggregateID:   ev.AggregateID(),
		AggregateType: ev.AggregateType(),
		OccurredAt:    ev.OccurredAt().UTC(),
		Payload:       payload,
	})
}

// Decode reverses Encode
func (s *EventSerializer) Decode(data []byte) (shared.DomainEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	s.mu.RLock()
	t, ok := s.types[env.Type]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", env.Type)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(env.Payload, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
	}
	ev, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", t)
	}
	return ev, nil
}
