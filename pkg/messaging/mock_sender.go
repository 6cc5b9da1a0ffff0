package messaging

import "sync"

// MockTradeSender records sent trades in memory for testing.
type MockTradeSender struct {
	mu     sync.Mutex
	trades []*TradeMessage
}

// NewMockTradeSender creates a new MockTradeSender.
func NewMockTradeSender() *MockTradeSender {
	return &MockTradeSender{}
}

// SendTradeMessage appends the trade to the in-memory record.
func (m *MockTradeSender) SendTradeMessage(trade *TradeMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trade)
	return nil
}

// Sent returns a copy of everything sent so far.
func (m *MockTradeSender) Sent() []*TradeMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*TradeMessage, len(m.trades))
	copy(out, m.trades)
	return out
}

// Close does nothing.
func (m *MockTradeSender) Close() error {
	return nil
}

// Ensure MockTradeSender implements TradeSender
var _ TradeSender = (*MockTradeSender)(nil)
