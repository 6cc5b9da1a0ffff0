package sim

import (
	"math"
	"math/rand"
	"time"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/core"
	"github.com/erain9/mmsim/pkg/strategy"
)

// order is a pending quote on the coarse path. It is created on submission
// and either fills, or is discarded, one bar after activation; quotes must
// be resubmitted every bar.
type order struct {
	side       core.Side
	price      float64
	qty        float64
	activateAt int
}

// Simulator is the coarse execution model: previously submitted quotes fill
// against the next bar's high/low/volume, with latency, a per-bar volume
// cap, slippage, and momentum-biased adverse selection.
type Simulator struct {
	cfg      config.Sim
	strategy strategy.QuoteStrategy
	rng      *rand.Rand
	pending  []order
}

// Ensure Simulator implements Model
var _ Model = (*Simulator)(nil)

// NewSimulator creates the coarse model with its own seeded generator.
func NewSimulator(cfg config.Sim) *Simulator {
	return &Simulator{
		cfg:      cfg,
		strategy: strategy.NewMarketMaker(cfg),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}
}

// SimulateBar implements Model. Fills are processed even on risk-blocked
// bars: admission only stops new quotes, not the lifecycle of earlier ones.
func (s *Simulator) SimulateBar(bctx BarContext) BarResult {
	bid, ask := math.NaN(), math.NaN()
	reason := "risk_block"

	if bctx.Admitted {
		q := s.strategy.ComputeQuotes(bctx.Bar, bctx.Inventory)
		bid, ask = q.Bid, q.Ask
		reason = q.Reason
		s.submitQuotes(bctx.Index, q)
	}

	fills := s.processBar(bctx.Index+1, bctx.NextBar.Time, bctx.Bar, bctx.NextBar)
	return BarResult{Fills: fills, Bid: bid, Ask: ask, Reason: reason}
}

// submitQuotes creates the buy/bid and sell/ask orders, activating after the
// configured latency expressed in bars of the underlying timeframe.
func (s *Simulator) submitQuotes(idx int, q core.Quote) {
	latencyBars := int(math.Ceil(s.cfg.LatencySec / 60.0))
	if latencyBars < 0 {
		latencyBars = 0
	}
	s.pending = append(s.pending,
		order{side: core.Buy, price: q.Bid, qty: q.SizeBid, activateAt: idx + latencyBars},
		order{side: core.Sell, price: q.Ask, qty: q.SizeAsk, activateAt: idx + latencyBars},
	)
}

func (s *Simulator) processBar(idx int, t time.Time, bar, nextBar core.Bar) []core.Fill {
	var fills []core.Fill

	low := nextBar.Low
	high := nextBar.High
	volCap := math.Max(0, math.Min(1, s.cfg.VolCapFrac))
	maxFill := math.Max(0, nextBar.Volume*volCap)

	momentumUp := nextBar.Close-bar.Close > 0

	// Activate orders due this bar; keep future ones; drop the rest.
	var activeNow, stillPending []order
	for _, o := range s.pending {
		switch {
		case o.activateAt == idx:
			activeNow = append(activeNow, o)
		case o.activateAt > idx:
			stillPending = append(stillPending, o)
		}
	}
	s.pending = stillPending

	var couldFill []order
	for _, o := range activeNow {
		if (o.side == core.Buy && o.price >= low) || (o.side == core.Sell && o.price <= high) {
			couldFill = append(couldFill, o)
		}
	}

	// When both sides are fillable, prefer the momentum-aligned side with
	// probability adverse_bias. This models adverse selection, not
	// price-time priority.
	if len(couldFill) >= 2 {
		var buys, sells []order
		for _, o := range couldFill {
			if o.side == core.Buy {
				buys = append(buys, o)
			} else {
				sells = append(sells, o)
			}
		}
		if len(buys) > 0 && len(sells) > 0 {
			if s.rng.Float64() < math.Max(0, math.Min(1, s.cfg.AdverseBias)) {
				if momentumUp {
					couldFill = sells
				} else {
					couldFill = buys
				}
			}
		}
	}

	hasCap := maxFill > 0
	remainingCap := maxFill
	slip := s.cfg.SlippageBps / 1e4

	for _, o := range couldFill {
		if hasCap && remainingCap <= 0 {
			break
		}
		qty := o.qty
		if hasCap {
			qty = math.Min(qty, remainingCap)
		}
		if qty <= 0 {
			continue
		}

		// Slippage moves the executed price against us on both sides.
		execPrice := o.price * (1 - slip)
		if o.side == core.Buy {
			execPrice = o.price * (1 + slip)
		}
		fee := math.Abs(execPrice*qty) * (s.cfg.FeeBps / 1e4)

		fills = append(fills, core.Fill{
			Time:      t,
			Side:      o.side,
			Price:     execPrice,
			Qty:       qty,
			Fee:       fee,
			Liquidity: core.Maker,
		})

		if hasCap {
			remainingCap -= qty
		}
	}

	return fills
}
