package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Ledger event types.
const (
	TypeProductionPrepared = "production.prepared"
	TypeSaleCreated        = "sale.created"
)

// Event is the envelope written to the ledger stream.
type Event struct {
	ID        string    `json:"event_id"`
	Type      string    `json:"event_type"`
	Key       string    `json:"-"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// New builds an event keyed by the entity it describes.
func New(eventType, key string, payload any, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: eventType, Key: key, Payload: payload, Timestamp: at}
}

// Publisher emits committed ledger changes. Publishing happens after the change is durable in
// the store, so a failed publish never undoes a commit.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// KafkaPublisher writes events as JSON to a single topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates an async writer; delivery failures are logged from the
// completion callback.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &KafkaPublisher{logger: logger}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Async:                  true,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("ledger events not delivered", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}
	return p
}

// Publish enqueues the event on the writer.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Time: event.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}
	p.logger.Debug("ledger event queued", zap.String("event_type", event.Type), zap.String("key", event.Key))
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
