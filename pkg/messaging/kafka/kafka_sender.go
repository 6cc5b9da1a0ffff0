package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/erain9/mmsim/pkg/messaging"
)

// KafkaTradeSender implements TradeSender using Kafka
type KafkaTradeSender struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaTradeSender creates a new Kafka trade sender
func NewKafkaTradeSender(brokerAddr, topic string) (*KafkaTradeSender, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaTradeSender{
		writer: writer,
		topic:  topic,
	}, nil
}

// SendTradeMessage publishes a trade to Kafka, keyed by run so a
// consumer can partition by backtest run.
func (k *KafkaTradeSender) SendTradeMessage(trade *messaging.TradeMessage) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(trade.RunID),
		Value: data,
		Time:  trade.Time,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka writer
func (k *KafkaTradeSender) Close() error {
	return k.writer.Close()
}

// Ensure KafkaTradeSender implements TradeSender
var _ messaging.TradeSender = (*KafkaTradeSender)(nil)
