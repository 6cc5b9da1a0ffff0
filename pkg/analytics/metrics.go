// Package analytics computes summary statistics and per-trade attribution
// from the backtest output tables.
package analytics

import (
	"math"
)

// MinutesPerDay is the default scaling frequency for minute bars.
const MinutesPerDay = 1440

// Metrics summarizes an equity curve. Degenerate inputs (zero variance,
// too few points) produce sentinel values, never panics.
type Metrics struct {
	FinalEquity float64
	Sharpe      float64
	Sortino     float64
	MaxDrawdown float64
}

// ComputeMetrics derives Sharpe, Sortino, and max drawdown from per-bar
// equity, annualized to freqPerDay observations per day.
func ComputeMetrics(equity []float64, freqPerDay float64) Metrics {
	m := Metrics{FinalEquity: 0, Sharpe: math.NaN(), Sortino: math.NaN(), MaxDrawdown: math.NaN()}
	if len(equity) == 0 {
		return m
	}
	m.FinalEquity = equity[len(equity)-1]
	if len(equity) < 3 {
		return m
	}

	// Per-bar equity differences; the first bar has none.
	rets := make([]float64, len(equity))
	for i := 1; i < len(equity); i++ {
		rets[i] = equity[i] - equity[i-1]
	}

	mu := mean(rets)
	sigma := sampleStd(rets)
	scale := math.Sqrt(freqPerDay)
	m.Sharpe = mu / (sigma + 1e-12) * scale

	var downside []float64
	for _, r := range rets {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	m.Sortino = mu / (sampleStd(downside) + 1e-12) * scale

	// Max drawdown: the most negative gap below the running peak.
	peak := equity[0]
	maxDD := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if dd := e - peak; dd < maxDD {
			maxDD = dd
		}
	}
	m.MaxDrawdown = maxDD

	return m
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the ddof=1 standard deviation; 0 for fewer than 2 points.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
