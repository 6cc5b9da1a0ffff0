// Package strategy derives symmetric market-making quotes from the current
// bar and inventory.
package strategy

import (
	"fmt"
	"math"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/core"
)

// QuoteStrategy defines the interface for quote generation on the coarse
// execution path.
type QuoteStrategy interface {
	// ComputeQuotes returns the bid/ask pair for the bar. It is a pure
	// function of the bar and the current inventory.
	ComputeQuotes(bar core.Bar, inventory float64) core.Quote
}

// MarketMaker implements volatility-scaled symmetric quoting with a
// momentum tilt and an inventory skew.
type MarketMaker struct {
	cfg config.Sim
}

// NewMarketMaker creates a MarketMaker strategy.
func NewMarketMaker(cfg config.Sim) *MarketMaker {
	return &MarketMaker{cfg: cfg}
}

// RoundToTick rounds a price down to the nearest tick.
func RoundToTick(x, tick float64) float64 {
	return math.Floor(x/tick) * tick
}

// ComputeQuotes implements QuoteStrategy.
//
// The momentum tilt widens both sides by the absolute tilt rather than
// shifting bid against ask; only the inventory skew is asymmetric. Both
// prices round down to the tick, which can narrow or widen the realized
// spread by up to one tick.
func (s *MarketMaker) ComputeQuotes(bar core.Bar, inventory float64) core.Quote {
	price := bar.Close
	mid := bar.Mid
	if mid == 0 || math.IsNaN(mid) {
		mid = price
	}

	// Baseline half-spread scales with price * vol.
	halfSpread := math.Max(s.cfg.TickSize, s.cfg.KVol*price*bar.Vol)

	tilt := s.cfg.KMom * bar.MomSign * halfSpread
	halfSpreadAdj := halfSpread + math.Abs(tilt)

	// Inventory skew in ticks, pushing quotes away from current inventory.
	skew := s.cfg.KInv * inventory * s.cfg.TickSize * 10

	bid := mid - (halfSpreadAdj + math.Max(0, skew))
	ask := mid + (halfSpreadAdj - math.Min(0, skew))

	bid = RoundToTick(bid, s.cfg.TickSize)
	ask = RoundToTick(ask, s.cfg.TickSize)

	// Order size shrinks as |inventory| approaches the cap.
	invUtil := math.Min(1.0, math.Abs(inventory)/math.Max(1e-9, s.cfg.InvCap))
	size := s.cfg.BaseSize * math.Max(0.1, 1.0-invUtil)

	return core.Quote{
		Bid:     bid,
		Ask:     ask,
		SizeBid: size,
		SizeAsk: size,
		Reason:  fmt.Sprintf("half=%.6f, skew=%.6f, mom=%.0f", halfSpreadAdj, skew, bar.MomSign),
	}
}
