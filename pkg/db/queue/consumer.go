package queue

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/erain9/mmsim/pkg/messaging"
)

// QueueRunConsumer reads run records back off the Kafka topic.
type QueueRunConsumer struct {
	consumer sarama.Consumer
	topic    string
	done     chan struct{}
}

// NewQueueRunConsumer connects a consumer to the configured broker.
func NewQueueRunConsumer() (*QueueRunConsumer, error) {
	brokers, t := currentConfig()

	consumer, err := sarama.NewConsumer([]string{brokers}, sarama.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	return &QueueRunConsumer{
		consumer: consumer,
		topic:    t,
		done:     make(chan struct{}),
	}, nil
}

// ConsumeRunRecords blocks, invoking handler for each record until Close
// is called. Malformed payloads are skipped.
func (c *QueueRunConsumer) ConsumeRunRecords(handler func(rec *messaging.RunRecord) error) error {
	partition, err := c.consumer.ConsumePartition(c.topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partition.Close()

	for {
		select {
		case msg, ok := <-partition.Messages():
			if !ok {
				return nil
			}
			var rec messaging.RunRecord
			if err := json.Unmarshal(msg.Value, &rec); err != nil {
				continue
			}
			if err := handler(&rec); err != nil {
				return err
			}
		case cerr, ok := <-partition.Errors():
			if !ok {
				return nil
			}
			return cerr
		case <-c.done:
			return nil
		}
	}
}

// Close stops consumption and releases the connection.
func (c *QueueRunConsumer) Close() error {
	close(c.done)
	return c.consumer.Close()
}
