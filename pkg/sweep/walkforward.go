package sweep

import (
	"context"
	"fmt"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/core"
)

// WalkForwardOptions controls the rolling train/test evaluation. Each
// window tunes on TrainLen bars via a grid search and evaluates the
// winning parameters on the following TestLen bars.
type WalkForwardOptions struct {
	TrainLen int
	TestLen  int
	Spec     GridSpec
}

// WalkForwardRow records one window: where it started, which parameters
// won on the train slice, and how they fared out of sample.
type WalkForwardRow struct {
	Start       int
	KVol        float64
	KInv        float64
	LatencySec  float64
	TrainEquity float64
	TestEquity  float64
	TestTrades  int
}

// WalkForward rolls the window across bars in steps of TestLen. Windows
// without a finite train winner are skipped.
func (r *Runner) WalkForward(ctx context.Context, bars []core.Bar, opts WalkForwardOptions) ([]WalkForwardRow, error) {
	if opts.TrainLen <= 0 || opts.TestLen <= 0 {
		return nil, fmt.Errorf("walk-forward window lengths must be positive, got train=%d test=%d", opts.TrainLen, opts.TestLen)
	}

	var rows []WalkForwardRow
	for start := 0; start+opts.TrainLen+opts.TestLen <= len(bars); start += opts.TestLen {
		train := bars[start : start+opts.TrainLen]
		test := bars[start+opts.TrainLen : start+opts.TrainLen+opts.TestLen]

		gridRows, err := r.Grid(ctx, train, opts.Spec)
		if err != nil {
			return nil, err
		}
		best, ok := BestRow(gridRows)
		if !ok {
			r.logger.Warn().Int("start", start).Msg("No finite train result, skipping window")
			continue
		}

		cfg := r.base
		cfg.KVol = best.KVol
		cfg.KInv = best.KInv
		cfg.LatencySec = best.LatencySec
		summ, err := r.runMany(ctx, test, []config.Sim{cfg})
		if err != nil {
			return nil, err
		}

		rows = append(rows, WalkForwardRow{
			Start:       start,
			KVol:        best.KVol,
			KInv:        best.KInv,
			LatencySec:  best.LatencySec,
			TrainEquity: best.FinalEquity,
			TestEquity:  summ[0].FinalEquity,
			TestTrades:  summ[0].Trades,
		})
	}
	r.logger.Info().Int("windows", len(rows)).Msg("Walk-forward complete")
	return rows, nil
}
