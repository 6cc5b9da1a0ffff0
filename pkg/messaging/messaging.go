package messaging

import (
	"time"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/mmsim/pkg/core"
)

// TradeSender defines an interface for publishing executed trades.
// This keeps the engine decoupled from specific transports like Kafka.
type TradeSender interface {
	SendTradeMessage(trade *TradeMessage) error
}

// TradeMessage is the wire representation of a single fill. Prices and
// quantities travel as fixed-point decimal strings so downstream
// consumers never see float formatting drift.
type TradeMessage struct {
	RunID     string    `json:"run_id"`
	Time      time.Time `json:"time"`
	Side      string    `json:"side"`
	Price     string    `json:"price"`
	Quantity  string    `json:"quantity"`
	Fee       string    `json:"fee"`
	Liquidity string    `json:"liquidity"`
}

// FromFill converts an executed fill into its wire form.
func FromFill(runID string, f core.Fill) *TradeMessage {
	return &TradeMessage{
		RunID:     runID,
		Time:      f.Time,
		Side:      f.Side.String(),
		Price:     fpdecimal.FromFloat(f.Price).String(),
		Quantity:  fpdecimal.FromFloat(f.Qty).String(),
		Fee:       fpdecimal.FromFloat(f.Fee).String(),
		Liquidity: string(f.Liquidity),
	}
}
