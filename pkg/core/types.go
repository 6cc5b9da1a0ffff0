package core

import (
	"fmt"
	"time"
)

// Side identifies the direction of an order or fill.
type Side int

const (
	Buy Side = iota
	Sell
)

// String implements fmt.Stringer interface
func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Liquidity identifies whether a fill supplied or consumed resting liquidity.
type Liquidity string

const (
	Maker Liquidity = "maker"
	Taker Liquidity = "taker"
)

// Bar is one OHLCV observation plus the derived quoting features.
// Bars are produced by the data package and consumed read-only by the engine.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	// Derived features
	Mid     float64 // (high+low)/2
	Vol     float64 // rolling return std, >= 0
	Mom     float64 // close diff over the momentum lookback
	MomSign float64 // sign of Mom in {-1, 0, 1}
}

// Quote is the pair of symmetric limit prices produced fresh each bar.
// It never persists beyond the bar that created it.
type Quote struct {
	Bid     float64
	Ask     float64
	SizeBid float64
	SizeAsk float64
	Reason  string
}

// Fill is an immutable execution record. Fee is a cost (positive) except
// maker rebates, which are computed from a negative rate and increase cash.
type Fill struct {
	Time      time.Time
	Side      Side
	Price     float64
	Qty       float64
	Fee       float64
	Liquidity Liquidity
}

// BarLogColumns is the per-bar log column contract. Consumers rely on this
// exact set even when the run produced zero rows.
var BarLogColumns = []string{"time", "price_ref", "mid", "bid", "ask", "inventory", "cash", "equity", "reason"}

// TradeLogColumns is the per-trade log column contract.
var TradeLogColumns = []string{"time", "side", "price", "qty", "fee", "liquidity"}

// BarLog is one row of the per-bar output table. Bid and Ask are NaN for
// bars with no active quotes.
type BarLog struct {
	Time      time.Time
	PriceRef  float64
	Mid       float64
	Bid       float64
	Ask       float64
	Inventory float64
	Cash      float64
	Equity    float64
	Reason    string
}

// TradeLog is one row of the per-trade output table.
type TradeLog struct {
	Time      time.Time
	Side      Side
	Price     float64
	Qty       float64
	Fee       float64
	Liquidity Liquidity
}

// MissingColumnsError reports required market-data columns absent from the
/// input. It is fatal: the run does not start.
type MissingColumnsError struct {
	Columns []string
}

// Error implements the error interface
func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("input missing required columns: %v", e.Columns)
}
