package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event is the envelope written to Kafka for every domain event
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Bus publishes domain events to Kafka.
// Publishing is fire-and-forget: failures are logged, never surfaced to callers.
type Bus struct {
	logger *zap.Logger
	writer *kafka.Writer
}

// NewBus creates a Kafka-backed event bus.
// With no brokers configured it returns a disabled bus that drops events.
func NewBus(logger *zap.Logger, brokers []string, topic string) *Bus {
	if len(brokers) == 0 {
		logger.Info("Event bus disabled: no Kafka brokers configured")
		return &Bus{logger: logger}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}

	return &Bus{logger: logger, writer: writer}
}

// Publish serializes and writes an event. No-op when the bus is disabled.
func (b *Bus) Publish(ctx context.Context, eventType string, payload interface{}) {
	if b.writer == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("Failed to marshal event payload", zap.String("type", eventType), zap.Error(err))
		return
	}

	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   data,
	}

	value, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}

	if err := b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventType),
		Value: value,
	}); err != nil {
		b.logger.Error("Failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

// Close flushes and closes the underlying writer
func (b *Bus) Close() error {
	if b.writer == nil {
		return nil
	}
	return b.writer.Close()
}
