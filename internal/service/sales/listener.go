package sales

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// MessageReader is the consuming side of a kafka topic.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewKafkaReader builds a consumer-group reader for the POS sales topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
}

// POSOrderEvent is a till order pushed by the point of sale.
type POSOrderEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Payload   POSOrderDetail `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// POSOrderDetail lists the items of a till order.
type POSOrderDetail struct {
	OrderID string         `json:"id"`
	Items   []POSOrderItem `json:"items"`
}

// POSOrderItem is one sold line. UnitPrice is optional.
type POSOrderItem struct {
	ProductID string           `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

const posOrderCreated = "OrderCreated"

// Listener records POS orders from kafka into the ledger.
type Listener struct {
	reader MessageReader
	ledger *Service
	logger *zap.Logger
	retry  time.Duration
}

// NewListener wires a sales feed listener.
func NewListener(reader MessageReader, ledger *Service, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{reader: reader, ledger: ledger, logger: logger, retry: time.Second}
}

// Start consumes until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) {
	l.logger.Info("starting sales feed listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stopping sales feed listener")
			return
		default:
		}

		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("stopping sales feed listener")
				return
			}
			l.logger.Error("failed to read sales feed message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.retry):
			}
			continue
		}
		l.process(ctx, msg.Value)
	}
}

// Close closes the underlying reader.
func (l *Listener) Close() error {
	return l.reader.Close()
}

func (l *Listener) process(ctx context.Context, value []byte) []models.SaleOutcome {
	var event POSOrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("failed to unmarshal sales feed event", zap.Error(err))
		return nil
	}
	if event.EventType != posOrderCreated {
		return nil
	}

	items := make([]models.SaleInput, 0, len(event.Payload.Items))
	for _, item := range event.Payload.Items {
		items = append(items, models.SaleInput{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}

	outcomes := l.ledger.Checkout(ctx, items)
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			l.logger.Error("failed to record POS order item",
				zap.String("order_id", event.Payload.OrderID),
				zap.String("product_id", outcome.Input.ProductID),
				zap.String("kind", string(outcome.Kind)),
				zap.Error(outcome.Err),
			)
		}
	}
	l.logger.Info("processed POS order", zap.String("order_id", event.Payload.OrderID), zap.Int("items", len(outcomes)))
	return outcomes
}
