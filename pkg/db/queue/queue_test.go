package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/mmsim/pkg/messaging"
)

type mockConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (m *mockConsumer) ConsumePartition(topic string, partition int32, offset int64) (sarama.PartitionConsumer, error) {
	return &mockPartitionConsumer{
		messages: m.messages,
		errors:   m.errors,
	}, nil
}

func (m *mockConsumer) Topics() ([]string, error) {
	return []string{}, nil
}

func (m *mockConsumer) Partitions(topic string) ([]int32, error) {
	return []int32{}, nil
}

func (m *mockConsumer) HighWaterMarks() map[string]map[int32]int64 {
	return nil
}

func (m *mockConsumer) Close() error {
	close(m.messages)
	close(m.errors)
	return nil
}

func (m *mockConsumer) Pause(topicPartitions map[string][]int32) {}

func (m *mockConsumer) Resume(topicPartitions map[string][]int32) {}

func (m *mockConsumer) PauseAll() {}

func (m *mockConsumer) ResumeAll() {}

type mockPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (m *mockPartitionConsumer) AsyncClose() {}

func (m *mockPartitionConsumer) Close() error {
	return nil
}

func (m *mockPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage {
	return m.messages
}

func (m *mockPartitionConsumer) Errors() <-chan *sarama.ConsumerError {
	return m.errors
}

func (m *mockPartitionConsumer) HighWaterMarkOffset() int64 {
	return 0
}

func (m *mockPartitionConsumer) IsPaused() bool {
	return false
}

func (m *mockPartitionConsumer) Pause() {}

func (m *mockPartitionConsumer) Resume() {}

func testRunRecord() *messaging.RunRecord {
	return &messaging.RunRecord{
		RunID:       "run-1",
		StartedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FinishedAt:  time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
		Bars:        599,
		Trades:      42,
		FinalEquity: "1.337",
		Sharpe:      "0.5",
		MaxDrawdown: "-0.25",
	}
}

func TestQueueRunSender_SendRunRecord(t *testing.T) {
	rec := testRunRecord()
	prod := &stubProducer{}

	oldNewSyncProducer := newSyncProducer
	defer func() { newSyncProducer = oldNewSyncProducer }()
	newSyncProducer = func(addrs []string, config *sarama.Config) (sarama.SyncProducer, error) {
		return prod, nil
	}

	sender, err := NewQueueRunSender()
	require.NoError(t, err)
	defer sender.Close()

	err = sender.SendRunRecord(context.Background(), rec)
	require.NoError(t, err)

	require.Len(t, prod.sent(), 1)
	msg := prod.sent()[0]
	require.Equal(t, sender.topic, msg.Topic)

	key, err := msg.Key.Encode()
	require.NoError(t, err)
	require.Equal(t, rec.RunID, string(key))

	var got messaging.RunRecord
	err = json.Unmarshal(msg.Value.(sarama.ByteEncoder), &got)
	require.NoError(t, err)

	require.Equal(t, rec.RunID, got.RunID)
	require.Equal(t, rec.Bars, got.Bars)
	require.Equal(t, rec.Trades, got.Trades)
	require.Equal(t, rec.FinalEquity, got.FinalEquity)
	require.Equal(t, rec.Sharpe, got.Sharpe)
	require.Equal(t, rec.MaxDrawdown, got.MaxDrawdown)
}

func TestQueueRunSender_CanceledContext(t *testing.T) {
	prod := &stubProducer{}

	oldNewSyncProducer := newSyncProducer
	defer func() { newSyncProducer = oldNewSyncProducer }()
	newSyncProducer = func(addrs []string, config *sarama.Config) (sarama.SyncProducer, error) {
		return prod, nil
	}

	sender, err := NewQueueRunSender()
	require.NoError(t, err)
	defer sender.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = sender.SendRunRecord(ctx, testRunRecord())
	require.Error(t, err)
	require.Empty(t, prod.sent())
}

func TestQueueRunSender_ProducerError(t *testing.T) {
	prod := &stubProducer{sendErr: errors.New("broker down")}

	oldNewSyncProducer := newSyncProducer
	defer func() { newSyncProducer = oldNewSyncProducer }()
	newSyncProducer = func(addrs []string, config *sarama.Config) (sarama.SyncProducer, error) {
		return prod, nil
	}

	sender, err := NewQueueRunSender()
	require.NoError(t, err)
	defer sender.Close()

	err = sender.SendRunRecord(context.Background(), testRunRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestQueueRunConsumer_ConsumeRunRecords(t *testing.T) {
	expected := testRunRecord()

	mockCons := &mockConsumer{
		messages: make(chan *sarama.ConsumerMessage, 1),
		errors:   make(chan *sarama.ConsumerError, 1),
	}

	consumer := &QueueRunConsumer{
		consumer: mockCons,
		topic:    defaultTopic,
		done:     make(chan struct{}),
	}

	received := make(chan *messaging.RunRecord, 1)

	go func() {
		err := consumer.ConsumeRunRecords(func(rec *messaging.RunRecord) error {
			received <- rec
			return nil
		})
		assert.NoError(t, err)
	}()

	payload, err := json.Marshal(expected)
	require.NoError(t, err)
	mockCons.messages <- &sarama.ConsumerMessage{Value: payload}

	select {
	case rec := <-received:
		assert.Equal(t, expected.RunID, rec.RunID)
		assert.Equal(t, expected.Bars, rec.Bars)
		assert.Equal(t, expected.Trades, rec.Trades)
		assert.Equal(t, expected.FinalEquity, rec.FinalEquity)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for run record")
	}

	err = consumer.Close()
	require.NoError(t, err)
}
