package events

import (
	"context"
	"time"

	"github.com/fjod/storefront/internal/logger"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the log. Used when no brokers are set.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e Event) error {
	logger.FromContext(ctx).Info("event published",
		"event_id", e.ID, "event_type", e.Type, "aggregate_id", e.AggregateID)
	return nil
}

func (LogPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by aggregate id, so every event of an
// order lands on the same partition. A circuit breaker stops writes while
// the brokers are failing.
type KafkaPublisher struct {
	writer messageWriter
	cb     *gobreaker.CircuitBreaker[struct{}]
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w)
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	settings := gobreaker.Settings{
		Name:    "kafka-publisher",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.FromContext(context.Background()).Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &KafkaPublisher{writer: w, cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		msg := kafka.Message{
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.Type)},
			},
			Time: e.CreatedAt,
		}
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
