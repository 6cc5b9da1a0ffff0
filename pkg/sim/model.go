// Package sim implements the two interchangeable execution models: the
// coarse next-bar fill simulator and the full order-book simulator.
package sim

import (
	"time"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/core"
)

// BarContext is one step of the backtest loop handed to an execution model.
type BarContext struct {
	Index     int
	Time      time.Time
	Bar       core.Bar
	NextBar   core.Bar
	Inventory float64
	// Admitted is the risk gate's verdict for this bar. Models must not
	// submit new quotes when it is false; previously submitted state may
	// still produce fills.
	Admitted bool
}

// BarResult is the per-bar outcome the Backtester applies and logs.
// Bid and Ask are NaN when no quotes were active this bar.
type BarResult struct {
	Fills  []core.Fill
	Bid    float64
	Ask    float64
	Reason string
}

// Model is the single capability the Backtester needs from an execution
// model; the coarse and LOB paths are selected by configuration and the
// loop stays agnostic to which is active.
type Model interface {
	SimulateBar(bctx BarContext) BarResult
}

// NewModel returns the execution model selected by cfg.UseLOB.
func NewModel(cfg config.Sim) Model {
	if cfg.UseLOB {
		return NewLOB(cfg)
	}
	return NewSimulator(cfg)
}
