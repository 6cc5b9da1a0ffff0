// Package sweep drives repeated engine runs: grid search, walk-forward
// evaluation, and stress sweeps. Every cell constructs an independent
// Backtester; no state is shared between iterations.
package sweep

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/analytics"
	"github.com/erain9/mmsim/pkg/backtest"
	"github.com/erain9/mmsim/pkg/core"
)

// RunSummary is the per-cell outcome kept (and cached) per configuration.
type RunSummary struct {
	FinalEquity float64
	Sharpe      float64
	MaxDrawdown float64
	Trades      int
}

// Runner executes sweep cells against a fixed bar series.
type Runner struct {
	base        config.Sim
	concurrency int
	cache       Cache
	logger      zerolog.Logger
}

// NewRunner creates a Runner over the base configuration. Cells override
// individual knobs; everything else comes from base.
func NewRunner(base config.Sim, cache Cache, concurrency int) *Runner {
	if cache == nil {
		cache = NoopCache{}
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Runner{
		base:        base,
		concurrency: concurrency,
		cache:       cache,
		logger:      log.With().Str("component", "sweep").Logger(),
	}
}

// runMany evaluates each configuration in parallel with bounded
// concurrency, preserving cell order in the returned summaries.
func (r *Runner) runMany(ctx context.Context, bars []core.Bar, cfgs []config.Sim) ([]RunSummary, error) {
	out := make([]RunSummary, len(cfgs))
	dataKey := fingerprint(bars)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range cfgs {
		i := i
		cfg := cfgs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			key := cellKey(cfg, dataKey)
			if cached, ok, err := r.cache.Get(ctx, key); err == nil && ok {
				if summ, perr := decodeSummary(cached); perr == nil {
					out[i] = summ
					return nil
				}
			}

			bt := backtest.New(cfg)
			res := bt.Run(bars)
			m := analytics.ComputeMetrics(res.EquityCurve(), analytics.MinutesPerDay)
			out[i] = RunSummary{
				FinalEquity: m.FinalEquity,
				Sharpe:      m.Sharpe,
				MaxDrawdown: m.MaxDrawdown,
				Trades:      len(res.Trades),
			}

			if err := r.cache.Set(ctx, key, encodeSummary(out[i])); err != nil {
				r.logger.Warn().Err(err).Msg("Failed to cache sweep cell")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// fingerprint identifies the bar series for cache keys: byte-identical
// inputs share results, anything else does not.
func fingerprint(bars []core.Bar) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(bars)))
	h.Write(buf[:])
	for _, b := range bars {
		binary.LittleEndian.PutUint64(buf[:], uint64(b.Time.UnixNano()))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(b.Close))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(b.Volume))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func cellKey(cfg config.Sim, dataKey string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%+v", cfg)))
	return "mmsim:sweep:" + dataKey + ":" + hex.EncodeToString(h[:16])
}

// Summaries are cached as a flat record; CSV-style encoding keeps NaN
// round-trippable where JSON would reject it.
func encodeSummary(s RunSummary) []byte {
	return []byte(strings.Join([]string{
		strconv.FormatFloat(s.FinalEquity, 'g', -1, 64),
		strconv.FormatFloat(s.Sharpe, 'g', -1, 64),
		strconv.FormatFloat(s.MaxDrawdown, 'g', -1, 64),
		strconv.Itoa(s.Trades),
	}, ","))
}

func decodeSummary(raw []byte) (RunSummary, error) {
	parts := strings.Split(string(raw), ",")
	if len(parts) != 4 {
		return RunSummary{}, fmt.Errorf("malformed cached summary: %q", raw)
	}
	var s RunSummary
	var err error
	if s.FinalEquity, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return RunSummary{}, err
	}
	if s.Sharpe, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return RunSummary{}, err
	}
	if s.MaxDrawdown, err = strconv.ParseFloat(parts[2], 64); err != nil {
		return RunSummary{}, err
	}
	if s.Trades, err = strconv.Atoi(parts[3]); err != nil {
		return RunSummary{}, err
	}
	return s, nil
}
