// Package backtest owns the bar loop: admission control, execution model
// dispatch, fill accounting, and the two output logs.
package backtest

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/core"
	"github.com/erain9/mmsim/pkg/data"
	"github.com/erain9/mmsim/pkg/risk"
	"github.com/erain9/mmsim/pkg/sim"
)

// minBars is the smallest usable series: the loop needs a current and a
// next bar, and one spare for feature warm-up.
const minBars = 3

// Backtester replays a bar sequence through the configured execution model
// and accumulates the per-bar and per-trade logs. One instance owns its
// book and state exclusively; parallel sweeps construct one each.
type Backtester struct {
	cfg    config.Sim
	model  sim.Model
	risk   *risk.Manager
	logger zerolog.Logger

	inventory float64
	cash      float64
	logs      []core.BarLog
	trades    []core.TradeLog
}

// New creates a Backtester for one run of the given configuration.
func New(cfg config.Sim) *Backtester {
	bt := &Backtester{
		cfg:    cfg,
		logger: log.With().Str("component", "backtester").Logger(),
	}
	bt.Reset()
	return bt
}

// Reset clears all run state, including the execution model and its book.
func (bt *Backtester) Reset() {
	bt.model = sim.NewModel(bt.cfg)
	bt.risk = risk.NewManager(bt.cfg)
	bt.inventory = 0
	bt.cash = 0
	bt.logs = nil
	bt.trades = nil
}

// Run replays the bar sequence. Rows with missing required values are
// dropped first; fewer than three usable bars yields an empty but
// well-shaped result rather than an error.
func (bt *Backtester) Run(bars []core.Bar) *Result {
	usable := dropIncomplete(bars)
	if len(usable) < minBars {
		bt.logger.Debug().Int("bars", len(usable)).Msg("Not enough usable bars to simulate")
		return bt.finalize()
	}

	usable = data.ComputeFeatures(usable, bt.cfg.VolLookback, bt.cfg.MomLookback)

	// The loop stops one bar short: the coarse path fills against the
	// next bar's range.
	for i := 0; i < len(usable)-1; i++ {
		row := usable[i]
		next := usable[i+1]

		pRefNow := bt.refPrice(row)
		equityNow := bt.cash + bt.inventory*pRefNow

		admitted := bt.risk.AllowNewOrders(bt.inventory, row.Vol, equityNow, i)

		res := bt.model.SimulateBar(sim.BarContext{
			Index:     i,
			Time:      row.Time,
			Bar:       row,
			NextBar:   next,
			Inventory: bt.inventory,
			Admitted:  admitted,
		})

		for _, f := range res.Fills {
			bt.applyFill(f, row)
		}

		// Mark to market at the current bar's reference price.
		equity := bt.cash + bt.inventory*bt.refPrice(row)

		mid := row.Mid
		if mid == 0 || math.IsNaN(mid) {
			mid = pRefNow
		}

		bt.logs = append(bt.logs, core.BarLog{
			Time:      row.Time,
			PriceRef:  bt.refPrice(row),
			Mid:       mid,
			Bid:       res.Bid,
			Ask:       res.Ask,
			Inventory: bt.inventory,
			Cash:      bt.cash,
			Equity:    equity,
			Reason:    res.Reason,
		})
	}

	return bt.finalize()
}

// applyFill updates cash and inventory, charges the fee regardless of side
// (a negative fee is a rebate and increases cash), and records the trade.
func (bt *Backtester) applyFill(f core.Fill, row core.Bar) {
	if f.Side == core.Buy {
		bt.cash -= f.Price * f.Qty
		bt.inventory += f.Qty
	} else {
		bt.cash += f.Price * f.Qty
		bt.inventory -= f.Qty
	}
	bt.cash -= f.Fee

	liq := f.Liquidity
	if liq == "" {
		liq = core.Maker
	}
	t := f.Time
	if t.IsZero() {
		t = row.Time
	}

	bt.trades = append(bt.trades, core.TradeLog{
		Time:      t,
		Side:      f.Side,
		Price:     f.Price,
		Qty:       f.Qty,
		Fee:       f.Fee,
		Liquidity: liq,
	})
}

func (bt *Backtester) refPrice(bar core.Bar) float64 {
	switch bt.cfg.RefPrice {
	case "open":
		return bar.Open
	case "high":
		return bar.High
	case "low":
		return bar.Low
	case "volume":
		return bar.Volume
	case "mid":
		return bar.Mid
	default:
		return bar.Close
	}
}

// finalize always produces well-shaped output tables, even for runs that
// executed zero bars or zero trades.
func (bt *Backtester) finalize() *Result {
	res := &Result{
		Logs:   bt.logs,
		Trades: bt.trades,
	}
	if res.Logs == nil {
		res.Logs = []core.BarLog{}
	}
	if res.Trades == nil {
		res.Trades = []core.TradeLog{}
	}
	return res
}

// dropIncomplete removes rows with missing required market-data values,
// keeping NaN tolerance confined to the derived columns.
func dropIncomplete(bars []core.Bar) []core.Bar {
	out := make([]core.Bar, 0, len(bars))
	for _, b := range bars {
		if math.IsNaN(b.Open) || math.IsNaN(b.High) || math.IsNaN(b.Low) ||
			math.IsNaN(b.Close) || math.IsNaN(b.Volume) {
			continue
		}
		out = append(out, b)
	}
	return out
}
