package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/logger"
	"github.com/segmentio/kafka-go"
)

// Handler processes one consumed event.
type Handler func(ctx context.Context, e Event) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads events back off the topic and dispatches them by the
// event_type header. Messages with no registered handler are skipped.
type Consumer struct {
	reader   messageReader
	handlers map[string]Handler
	backoff  time.Duration
}

func NewConsumer(topic, groupID string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader)
}

func newConsumer(r messageReader) *Consumer {
	return &Consumer{reader: r, handlers: make(map[string]Handler), backoff: time.Second}
}

// Handle registers h for eventType. Call before Run.
func (c *Consumer) Handle(eventType string, h Handler) {
	c.handlers[eventType] = h
}

// Run reads until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			logger.FromContext(ctx).Error("error reading message", "error", err)
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return
			}
			continue
		}
		if err := c.processMessage(ctx, m); err != nil {
			logger.FromContext(ctx).Error("failed to process message",
				"key", string(m.Key), "offset", m.Offset, "error", err)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, m kafka.Message) error {
	e := Event{
		AggregateID: string(m.Key),
		Type:        header(m, "event_type"),
		Payload:     m.Value,
		CreatedAt:   m.Time,
	}
	h, ok := c.handlers[e.Type]
	if !ok {
		logger.FromContext(ctx).Debug("no handler for event", "event_type", e.Type, "key", e.AggregateID)
		return nil
	}
	return h(ctx, e)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// NotifyOrderPlaced announces a new order to the shop staff through the log.
func NotifyOrderPlaced(ctx context.Context, e Event) error {
	var p OrderPlaced
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return fmt.Errorf("error parsing order.placed payload: %w", err)
	}
	logger.FromContext(ctx).Info("new order received",
		"order_id", p.OrderID,
		"customer_email", p.CustomerEmail,
		"items", len(p.Items),
		"total", p.Total.StringFixed(2),
		"currency", p.Currency)
	return nil
}
