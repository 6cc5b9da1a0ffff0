package analytics

import (
	"math"
	"time"

	"github.com/erain9/mmsim/pkg/core"
)

// TradeMarkout is a trade annotated with its mid at fill time, the spread
// edge captured, and the post-trade mid drift at each horizon. Trades whose
// fill time is not in the per-bar log carry NaN annotations.
type TradeMarkout struct {
	core.TradeLog
	MidAtFill  float64
	SpreadEdge float64
	Markouts   map[int]float64
}

// Attribution aggregates fees, spread edge, and markouts over a trade set.
// NaN contributions are skipped, not propagated.
type Attribution struct {
	Trades        int
	FeesSum       float64
	SpreadEdgeSum float64
	MarkoutSums   map[int]float64
}

// AttributionSummary splits the attribution by liquidity role.
type AttributionSummary struct {
	Total Attribution
	Maker Attribution
	Taker Attribution
}

// ComputeMarkouts joins trades against the per-bar mid series and measures
// signed spread edge and mid drift at each horizon (in bars).
func ComputeMarkouts(logs []core.BarLog, trades []core.TradeLog, horizons []int) []TradeMarkout {
	index := make(map[time.Time]int, len(logs))
	for i, l := range logs {
		index[l.Time] = i
	}

	out := make([]TradeMarkout, 0, len(trades))
	for _, t := range trades {
		tm := TradeMarkout{
			TradeLog:   t,
			MidAtFill:  math.NaN(),
			SpreadEdge: math.NaN(),
			Markouts:   make(map[int]float64, len(horizons)),
		}
		for _, h := range horizons {
			tm.Markouts[h] = math.NaN()
		}

		if i, ok := index[t.Time]; ok {
			mid := logs[i].Mid
			tm.MidAtFill = mid

			// Edge is positive when the fill price is inside the mid.
			if t.Side == core.Buy {
				tm.SpreadEdge = mid - t.Price
			} else {
				tm.SpreadEdge = t.Price - mid
			}

			for _, h := range horizons {
				if i+h < len(logs) {
					drift := logs[i+h].Mid - mid
					if t.Side == core.Sell {
						drift = -drift
					}
					tm.Markouts[h] = drift
				}
			}
		}

		out = append(out, tm)
	}
	return out
}

// Attribute sums spread edge, fees, and markouts in total and per
// liquidity role.
func Attribute(marks []TradeMarkout, horizons []int) AttributionSummary {
	summary := AttributionSummary{
		Total: newAttribution(horizons),
		Maker: newAttribution(horizons),
		Taker: newAttribution(horizons),
	}

	for _, m := range marks {
		summary.Total.add(m, horizons)
		if m.Liquidity == core.Taker {
			summary.Taker.add(m, horizons)
		} else {
			summary.Maker.add(m, horizons)
		}
	}
	return summary
}

func newAttribution(horizons []int) Attribution {
	a := Attribution{MarkoutSums: make(map[int]float64, len(horizons))}
	for _, h := range horizons {
		a.MarkoutSums[h] = 0
	}
	return a
}

func (a *Attribution) add(m TradeMarkout, horizons []int) {
	a.Trades++
	a.FeesSum += nanToZero(m.Fee)
	a.SpreadEdgeSum += nanToZero(m.SpreadEdge)
	for _, h := range horizons {
		a.MarkoutSums[h] += nanToZero(m.Markouts[h])
	}
}

func nanToZero(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return x
}
