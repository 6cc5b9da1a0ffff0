package queue

import (
	"sync"

	"github.com/IBM/sarama"
)

// stubProducer implements just enough of sarama.SyncProducer for the queue
// tests: it records sent messages and can be primed to fail.
type stubProducer struct {
	mu      sync.Mutex
	records []*sarama.ProducerMessage
	sendErr error
}

func (p *stubProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return 0, 0, p.sendErr
	}
	p.records = append(p.records, msg)
	return 0, int64(len(p.records) - 1), nil
}

func (p *stubProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.records = append(p.records, msgs...)
	return nil
}

func (p *stubProducer) sent() []*sarama.ProducerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*sarama.ProducerMessage, len(p.records))
	copy(out, p.records)
	return out
}

func (p *stubProducer) Close() error { return nil }

// Transactional API, unused by the sender but required by the interface.
func (p *stubProducer) TxnStatus() sarama.ProducerTxnStatusFlag { return 0 }
func (p *stubProducer) BeginTxn() error                         { return nil }
func (p *stubProducer) CommitTxn() error                        { return nil }
func (p *stubProducer) AbortTxn() error                         { return nil }
func (p *stubProducer) IsTransactional() bool                   { return false }

func (p *stubProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (p *stubProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

var _ sarama.SyncProducer = (*stubProducer)(nil)
