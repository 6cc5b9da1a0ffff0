package sim

import (
	"math"
	"math/rand"
	"time"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/book"
	"github.com/erain9/mmsim/pkg/core"
)

// LOB is the full execution model: a persistent limit order book across
// bars, multi-level quoting, queue-position modeling, and maker/taker
// economics driven by micro-tick market-order flow.
type LOB struct {
	cfg  config.Sim
	rng  *rand.Rand
	book *book.Book
	ours []int
}

// Ensure LOB implements Model
var _ Model = (*LOB)(nil)

// NewLOB creates the order-book model with its own seeded generator. The
// book itself is built lazily at the first simulated bar's mid.
func NewLOB(cfg config.Sim) *LOB {
	return &LOB{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Book exposes the underlying order book for top-of-book logging; nil
// before the first simulated bar.
func (l *LOB) Book() *book.Book { return l.book }

// SimulateBar implements Model. Per bar, in order: optional forced cancel
// with penalty, background replenish and multi-level quote placement, the
// latency-gated micro-tick market-order flow, an optional taker rebalance,
// and the closing forced cancel when orders do not carry across bars.
func (l *LOB) SimulateBar(bctx BarContext) BarResult {
	if !bctx.Admitted {
		return BarResult{Bid: math.NaN(), Ask: math.NaN(), Reason: "risk_block"}
	}

	bar := bctx.Bar
	mid := bar.Mid
	if mid == 0 || math.IsNaN(mid) {
		mid = bar.Close
	}
	l.ensureBook(mid)

	var fills []core.Fill

	if !l.cfg.CarryOrders {
		fills = l.appendCancelFill(fills, bctx.Time, mid)
	}

	l.placeQuotes()

	// Newly placed orders do not interact with market flow until the
	// latency expressed as intra-bar micro-ticks has elapsed.
	ticksPerBar := l.cfg.LOBTicksPerBar
	latencyTicks := int(math.Ceil(l.cfg.LatencySec / (60.0 / float64(ticksPerBar))))
	if latencyTicks < 0 {
		latencyTicks = 0
	}

	moTotal := math.Max(0, bar.Volume*l.cfg.MoFrac)
	meanPerTick := moTotal / float64(ticksPerBar)

	for k := 0; k < ticksPerBar; k++ {
		if k < latencyTicks {
			continue
		}
		probBuy := math.Max(0, math.Min(1, 0.5+0.2*bar.MomSign))
		side := core.Sell
		if l.rng.Float64() < probBuy {
			side = core.Buy
		}
		moQty := l.rng.ExpFloat64() * math.Max(1e-6, meanPerTick)

		for _, mf := range l.book.ProcessMarketOrder(side, moQty, bctx.Time) {
			// Maker economics: the rebate rate is negative bps, so the
			// fee is negative and increases cash.
			fee := math.Abs(mf.Price*mf.Qty) * (l.cfg.MakerRebateBps / 1e4)
			fills = append(fills, core.Fill{
				Time:      mf.Time,
				Side:      mf.Side,
				Price:     mf.Price,
				Qty:       mf.Qty,
				Fee:       fee,
				Liquidity: core.Maker,
			})
		}
	}

	fills = append(fills, l.takerRebalance(bctx.Inventory, bctx.Time)...)

	if !l.cfg.CarryOrders {
		fills = l.appendCancelFill(fills, bctx.Time, mid)
	}

	return BarResult{
		Fills:  fills,
		Bid:    l.book.BestBid().Price,
		Ask:    l.book.BestAsk().Price,
		Reason: "lob_quote",
	}
}

// ensureBook constructs the ladder on first use; the book is never rebuilt,
// its state carries forward across bars.
func (l *LOB) ensureBook(mid float64) {
	if l.book != nil {
		return
	}
	l.book = book.New(mid, l.cfg.TickSize, l.cfg.LOBLevels, l.cfg.LOBBaseDepth, l.cfg.LOBDepthDecay)
}

// cancelAll cancels our resting orders and returns the flat penalty cost:
// cancel_penalty_bps of base-size notional at the book's mid per order
// still resting.
func (l *LOB) cancelAll() float64 {
	if len(l.ours) == 0 || l.book == nil {
		l.ours = nil
		return 0
	}

	canceled := 0
	for _, id := range l.ours {
		if _, ok := l.book.Order(id); ok {
			l.book.Cancel(id)
			canceled++
		}
	}
	l.ours = l.ours[:0]
	if canceled == 0 {
		return 0
	}

	mid := (l.book.BestBid().Price + l.book.BestAsk().Price) / 2
	return float64(canceled) * (mid * l.cfg.BaseSize) * (l.cfg.CancelPenaltyBps / 1e4)
}

// appendCancelFill runs a forced cancel and records any penalty as a
// zero-quantity maker fill that exists purely to carry the fee.
func (l *LOB) appendCancelFill(fills []core.Fill, t time.Time, mid float64) []core.Fill {
	cost := l.cancelAll()
	if cost <= 0 {
		return fills
	}
	return append(fills, core.Fill{
		Time:      t,
		Side:      core.Buy,
		Price:     mid,
		Qty:       0,
		Fee:       cost,
		Liquidity: core.Maker,
	})
}

// placeQuotes replenishes background depth, then rests up to quote_levels
// orders per side with sizes decaying geometrically from the top.
func (l *LOB) placeQuotes() {
	l.book.Replenish(l.cfg.LOBBaseDepth, l.cfg.LOBDepthDecay)

	for lvl := 0; lvl < l.cfg.QuoteLevels; lvl++ {
		bidLevel, ok := l.book.Level(core.Buy, lvl)
		if !ok {
			break
		}
		askLevel, _ := l.book.Level(core.Sell, lvl)
		size := l.cfg.BaseSize * math.Pow(l.cfg.LevelSizeDecay, float64(lvl))

		if ro := l.book.PlaceLimit(core.Buy, bidLevel.Price, size); ro != nil {
			l.ours = append(l.ours, ro.ID)
		}
		if ro := l.book.PlaceLimit(core.Sell, askLevel.Price, size); ro != nil {
			l.ours = append(l.ours, ro.ID)
		}
	}
}

// takerRebalance crosses the spread to shed inventory once it exceeds the
// configured fraction of the cap, consuming top-of-book directly.
func (l *LOB) takerRebalance(inventory float64, t time.Time) []core.Fill {
	if !l.cfg.TakerRebalance || l.book == nil {
		return nil
	}
	if math.Abs(inventory) < l.cfg.TakerRebalanceThreshold*l.cfg.InvCap {
		return nil
	}

	side := core.Buy
	best := l.book.BestAsk()
	consumed := core.Sell
	if inventory > 0 {
		side = core.Sell
		best = l.book.BestBid()
		consumed = core.Buy
	}

	qty := math.Min(math.Max(0, math.Abs(inventory)*l.cfg.TakerRebalancePct), best.Size)
	if qty <= 0 {
		return nil
	}

	slip := l.cfg.SlippageBps / 1e4
	px := best.Price * (1 + slip)
	if side == core.Sell {
		px = best.Price * (1 - slip)
	}
	fee := math.Abs(px*qty) * (l.cfg.TakerFeeBps / 1e4)

	l.book.TakeTop(consumed, qty)

	return []core.Fill{{
		Time:      t,
		Side:      side,
		Price:     px,
		Qty:       qty,
		Fee:       fee,
		Liquidity: core.Taker,
	}}
}
