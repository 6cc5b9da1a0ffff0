// Package queue publishes run records to Kafka through sarama sync
// producers. Producers are pooled; see sender_pool.go.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"github.com/erain9/mmsim/pkg/messaging"
)

const (
	defaultBrokerList = "localhost:9092"
	defaultTopic      = "mmsim-runs"
	maxRetry          = 5
)

var (
	brokerMu   sync.RWMutex
	brokerList = defaultBrokerList
	topic      = defaultTopic
)

// Configure overrides the broker address and topic used by new senders.
// Call before the pool is first used.
func Configure(brokers, t string) {
	brokerMu.Lock()
	defer brokerMu.Unlock()
	if brokers != "" {
		brokerList = brokers
	}
	if t != "" {
		topic = t
	}
}

func currentConfig() (string, string) {
	brokerMu.RLock()
	defer brokerMu.RUnlock()
	return brokerList, topic
}

// newSyncProducer is swapped out by tests.
var newSyncProducer = sarama.NewSyncProducer

// QueueRunSender implements the RunSender interface on top of a sarama
// sync producer.
type QueueRunSender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewQueueRunSender creates a sender with its own producer connection.
func NewQueueRunSender() (*QueueRunSender, error) {
	brokers, t := currentConfig()

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = maxRetry

	producer, err := newSyncProducer([]string{brokers}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &QueueRunSender{producer: producer, topic: t}, nil
}

// SendRunRecord publishes the record as JSON, keyed by run ID.
func (q *QueueRunSender) SendRunRecord(ctx context.Context, rec *messaging.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(rec.RunID),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := q.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send run record to Kafka: %w", err)
	}
	return nil
}

// Close shuts down the underlying producer.
func (q *QueueRunSender) Close() error {
	return q.producer.Close()
}

// Ensure QueueRunSender implements RunSender
var _ messaging.RunSender = (*QueueRunSender)(nil)
