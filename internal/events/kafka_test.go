package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

func setupKafka(t *testing.T) string {
	if testing.Short() {
		t.Skip("skipping Kafka container test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")
	return brokers[0]
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_PublishesOrderPlacedToKafka(t *testing.T) {
	brokerAddr := setupKafka(t)
	const topic = "storefront-orders"
	createTopic(t, brokerAddr, topic)

	outbox := NewMemoryOutbox()
	e, err := NewOrderPlaced(testOrder())
	require.NoError(t, err)
	require.NoError(t, outbox.Enqueue(context.Background(), e))

	pub := NewKafkaPublisher(topic, brokerAddr)
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	go NewPoller(outbox, pub, 500*time.Millisecond).Run(ctx)

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    topic,
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD-007", string(msg.Key))

	var payload OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "demo@example.com", payload.CustomerEmail)

	require.Eventually(t, func() bool { return outbox.Len() == 0 }, 10*time.Second, 100*time.Millisecond)
}

func TestConsumer_ReadsPublishedEvents(t *testing.T) {
	brokerAddr := setupKafka(t)
	const topic = "storefront-orders-consumer"
	createTopic(t, brokerAddr, topic)

	pub := NewKafkaPublisher(topic, brokerAddr)
	defer pub.Close()
	e, err := NewOrderPlaced(testOrder())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, pub.Publish(ctx, e))

	consumer := NewConsumer(topic, "storefront-test", brokerAddr)
	defer consumer.Close()
	got := make(chan Event, 1)
	consumer.Handle(TypeOrderPlaced, func(_ context.Context, e Event) error {
		got <- e
		return nil
	})
	go consumer.Run(ctx)

	select {
	case received := <-got:
		assert.Equal(t, "ORD-007", received.AggregateID)
		var payload OrderPlaced
		require.NoError(t, json.Unmarshal(received.Payload, &payload))
		assert.Equal(t, "599.98", payload.Total.String())
	case <-ctx.Done():
		t.Fatal("timed out waiting for consumed event")
	}
}
