package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/cheques/internal/infrastructure/logger"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(m kafkago.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaForwarder_Handle(t *testing.T) {
	w := &fakeWriter{}
	f := NewKafkaForwarder(w, nil, nil)
	ev := createdEvent(t)
	ctx, _ := logger.WithRequestID(context.Background(), zap.NewNop(), "req-42")

	require.NoError(t, f.Handle(ctx, ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, ev.AggID.String(), string(msg.Key))
	assert.Equal(t, ev.EventType(), header(msg, "event_type"))
	assert.Equal(t, ev.ID.String(), header(msg, "event_id"))
	assert.Equal(t, "req-42", header(msg, "request_id"))

	decoded, err := NewEventSerializer().Decode(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.EventID())

	require.NoError(t, f.Close())
	assert.True(t, w.closed)
}

func TestKafkaForwarder_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	f := NewKafkaForwarder(w, NewEventSerializer(), zap.NewNop())

	err := f.Handle(context.Background(), createdEvent(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Nil(t, f.EventTypes())
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "cheque-entry-events")
	assert.Equal(t, "cheque-entry-events", w.Topic)
	assert.Equal(t, kafkago.RequireAll, w.RequiredAcks)
}
