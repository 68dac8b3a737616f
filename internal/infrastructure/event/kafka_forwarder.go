package event

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/infrastructure/logger"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafkago.Writer the forwarder needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaForwarder publishes every cheque entry event to a Kafka topic so that
// downstream accounting consumers can follow Payment Entry issuance.
// Messages are keyed by aggregate ID to keep one entry's events ordered.
type KafkaForwarder struct {
	writer     MessageWriter
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewKafkaWriter builds a writer for topic on brokers
func NewKafkaWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
	}
}

// NewKafkaForwarder creates a forwarder over writer
func NewKafkaForwarder(writer MessageWriter, serializer *EventSerializer, log *zap.Logger) *KafkaForwarder {
	if serializer == nil {
		serializer = NewEventSerializer()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaForwarder{writer: writer, serializer: serializer, logger: log}
}

// EventTypes returns nil so the forwarder sees every event
func (f *KafkaForwarder) EventTypes() []string {
	return nil
}

// Handle encodes ev and writes it to Kafka
func (f *KafkaForwarder) Handle(ctx context.Context, ev shared.DomainEvent) error {
	value, err := f.serializer.Encode(ev)
	if err != nil {
		return err
	}

	msg := kafkago.Message{
		Key:   []byte(ev.AggregateID().String()),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(ev.EventType())},
			{Key: "event_id", Value: []byte(ev.EventID().String())},
		},
	}
	if rid := logger.GetRequestID(ctx); rid != "" {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: "request_id", Value: []byte(rid)})
	}

	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", ev.EventType(), err)
	}
	logger.WithLogger(ctx, f.logger).Debug("event forwarded to kafka",
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()))
	return nil
}

// Close flushes and closes the writer
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}

var _ shared.EventHandler = (*KafkaForwarder)(nil)
