package sweep

import (
	"context"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/core"
)

// GridSpec enumerates the parameter axes of a grid search. The cartesian
// product of the three slices defines the cells, iterated in the order
// k_vol (outer), k_inv, latency (inner).
type GridSpec struct {
	KVol       []float64
	KInv       []float64
	LatencySec []float64
}

// DefaultGridSpec mirrors the usual coarse tuning pass.
func DefaultGridSpec() GridSpec {
	return GridSpec{
		KVol:       []float64{0.3, 0.5, 0.8},
		KInv:       []float64{0.01, 0.02, 0.05},
		LatencySec: []float64{0, 30, 60},
	}
}

func (s GridSpec) cells(base config.Sim) []config.Sim {
	out := make([]config.Sim, 0, len(s.KVol)*len(s.KInv)*len(s.LatencySec))
	for _, kv := range s.KVol {
		for _, ki := range s.KInv {
			for _, lat := range s.LatencySec {
				cfg := base
				cfg.KVol = kv
				cfg.KInv = ki
				cfg.LatencySec = lat
				out = append(out, cfg)
			}
		}
	}
	return out
}

// GridRow is one evaluated grid cell.
type GridRow struct {
	KVol       float64
	KInv       float64
	LatencySec float64
	RunSummary
}

// Grid evaluates every cell of spec against bars. Rows come back in cell
// order regardless of execution interleaving.
func (r *Runner) Grid(ctx context.Context, bars []core.Bar, spec GridSpec) ([]GridRow, error) {
	cfgs := spec.cells(r.base)
	summaries, err := r.runMany(ctx, bars, cfgs)
	if err != nil {
		return nil, err
	}

	rows := make([]GridRow, len(cfgs))
	for i, cfg := range cfgs {
		rows[i] = GridRow{
			KVol:       cfg.KVol,
			KInv:       cfg.KInv,
			LatencySec: cfg.LatencySec,
			RunSummary: summaries[i],
		}
	}
	r.logger.Info().Int("cells", len(rows)).Msg("Grid sweep complete")
	return rows, nil
}

// BestRow returns the row with the highest final equity, skipping NaN.
// ok is false when no row has a finite final equity.
func BestRow(rows []GridRow) (GridRow, bool) {
	var best GridRow
	found := false
	for _, row := range rows {
		if row.FinalEquity != row.FinalEquity { // NaN
			continue
		}
		if !found || row.FinalEquity > best.FinalEquity {
			best = row
			found = true
		}
	}
	return best, found
}
