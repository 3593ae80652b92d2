// Package publisher delivers outbox events to Kafka.
package publisher

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Kafka publishes audit payloads to a single topic, keyed by action so
// consumers can partition-route without decoding the payload.
type Kafka struct {
	client *kgo.Client
	topic  string
}

// NewKafka connects to the given brokers. The caller owns Close.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Kafka{client: client, topic: topic}, nil
}

// Publish synchronously produces one record. The worker relies on the
// returned error to decide whether the outbox row may be marked published.
func (k *Kafka) Publish(ctx context.Context, key string, payload []byte) error {
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Close flushes and shuts down the Kafka client.
func (k *Kafka) Close() {
	k.client.Close()
}
