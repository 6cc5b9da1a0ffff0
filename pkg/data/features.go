package data

import (
	"math"

	"github.com/erain9/mmsim/pkg/core"
)

// ComputeFeatures fills the derived bar fields used for quoting: mid price,
// rolling return volatility, and momentum with its sign. The input slice is
// mutated in place and returned for convenience.
//
// The volatility window requires max(2, volLookback/2) observed returns
// before producing a value; bars before that carry zero, never NaN.
func ComputeFeatures(bars []core.Bar, volLookback, momLookback int) []core.Bar {
	if volLookback < 2 {
		volLookback = 2
	}
	if momLookback < 1 {
		momLookback = 1
	}
	minPeriods := volLookback / 2
	if minPeriods < 2 {
		minPeriods = 2
	}

	// Simple returns; index 0 has none.
	rets := make([]float64, len(bars))
	for i := range rets {
		rets[i] = math.NaN()
		if i > 0 && bars[i-1].Close != 0 {
			rets[i] = bars[i].Close/bars[i-1].Close - 1
		}
	}

	for i := range bars {
		bars[i].Mid = (bars[i].High + bars[i].Low) / 2

		bars[i].Vol = rollingStd(rets, i, volLookback, minPeriods)

		bars[i].Mom = 0
		bars[i].MomSign = 0
		if i >= momLookback {
			mom := bars[i].Close - bars[i-momLookback].Close
			bars[i].Mom = mom
			bars[i].MomSign = sign(mom)
		}
	}
	return bars
}

// rollingStd is the sample standard deviation over the trailing window
// ending at idx, skipping unobserved returns.
func rollingStd(rets []float64, idx, window, minPeriods int) float64 {
	lo := idx - window + 1
	if lo < 0 {
		lo = 0
	}

	n := 0
	sum := 0.0
	for i := lo; i <= idx; i++ {
		if !math.IsNaN(rets[i]) {
			n++
			sum += rets[i]
		}
	}
	if n < minPeriods {
		return 0
	}

	mean := sum / float64(n)
	var ss float64
	for i := lo; i <= idx; i++ {
		if !math.IsNaN(rets[i]) {
			d := rets[i] - mean
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(n-1))
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
