package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/erain9/mmsim/pkg/messaging"
)

var (
	senderPool   chan messaging.RunSender
	poolInitOnce sync.Once
	maxPoolSize  = 8 // A run record per backtest, not per trade; a small pool suffices.
)

// initSenderPool initializes the sender pool
func initSenderPool() {
	poolInitOnce.Do(func() {
		senderPool = make(chan messaging.RunSender, maxPoolSize)
		// Pre-populate the entire pool
		for i := 0; i < maxPoolSize; i++ {
			sender, err := NewQueueRunSender()
			if err != nil {
				fmt.Printf("Error creating sender: %v\n", err)
				continue
			}
			senderPool <- sender
		}
	})
}

// GetSender gets a sender from the pool
func GetSender() messaging.RunSender {
	initSenderPool()

	select {
	case sender := <-senderPool:
		return sender
	default:
		fmt.Printf("Warning: sender pool is empty\n")
		return nil
	}
}

// ReturnSender returns a sender to the pool
func ReturnSender(sender messaging.RunSender) {
	if sender == nil {
		return
	}

	select {
	case senderPool <- sender:
		// Successfully returned to pool
	default:
		// If pool is full, something is wrong - log and close
		fmt.Printf("Warning: sender pool is full\n")
		_ = sender.Close()
	}
}

// SendRunRecord publishes a record using a pooled sender.
func SendRunRecord(ctx context.Context, rec *messaging.RunRecord) error {
	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get run sender from pool")
	}
	defer ReturnSender(sender)

	err := sender.SendRunRecord(ctx, rec)
	if err != nil {
		fmt.Printf("Error sending run record: %v\n", err)
		// If we get a connection error, don't return this sender to the pool
		_ = sender.Close()
		return err
	}

	return nil
}
