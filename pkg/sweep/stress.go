package sweep

import (
	"context"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/core"
)

// StressRow is one cell of a cost-sensitivity sweep. Only the axes the
// sweep varied are meaningful; the rest stay at the base configuration.
type StressRow struct {
	FeeBps      float64
	SlippageBps float64
	LatencySec  float64
	RunSummary
}

// StressFeeLatency sweeps maker fee against latency, holding everything
// else at the base configuration.
func (r *Runner) StressFeeLatency(ctx context.Context, bars []core.Bar, fees, latencies []float64) ([]StressRow, error) {
	cfgs := make([]config.Sim, 0, len(fees)*len(latencies))
	rows := make([]StressRow, 0, len(fees)*len(latencies))
	for _, fee := range fees {
		for _, lat := range latencies {
			cfg := r.base
			cfg.FeeBps = fee
			cfg.LatencySec = lat
			cfgs = append(cfgs, cfg)
			rows = append(rows, StressRow{FeeBps: fee, SlippageBps: r.base.SlippageBps, LatencySec: lat})
		}
	}
	return r.fillStress(ctx, bars, cfgs, rows)
}

// StressSlippageLatency sweeps slippage against latency.
func (r *Runner) StressSlippageLatency(ctx context.Context, bars []core.Bar, slippages, latencies []float64) ([]StressRow, error) {
	cfgs := make([]config.Sim, 0, len(slippages)*len(latencies))
	rows := make([]StressRow, 0, len(slippages)*len(latencies))
	for _, slip := range slippages {
		for _, lat := range latencies {
			cfg := r.base
			cfg.SlippageBps = slip
			cfg.LatencySec = lat
			cfgs = append(cfgs, cfg)
			rows = append(rows, StressRow{FeeBps: r.base.FeeBps, SlippageBps: slip, LatencySec: lat})
		}
	}
	return r.fillStress(ctx, bars, cfgs, rows)
}

func (r *Runner) fillStress(ctx context.Context, bars []core.Bar, cfgs []config.Sim, rows []StressRow) ([]StressRow, error) {
	summaries, err := r.runMany(ctx, bars, cfgs)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].RunSummary = summaries[i]
	}
	r.logger.Info().Int("cells", len(rows)).Msg("Stress sweep complete")
	return rows, nil
}
