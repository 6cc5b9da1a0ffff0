package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/mmsim/pkg/core"
)

var mkT0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func midLogs(mids ...float64) []core.BarLog {
	logs := make([]core.BarLog, len(mids))
	for i, m := range mids {
		logs[i] = core.BarLog{Time: mkT0.Add(time.Duration(i) * time.Minute), Mid: m}
	}
	return logs
}

func TestComputeMarkouts_BuyJoin(t *testing.T) {
	logs := midLogs(100, 101, 103)
	trades := []core.TradeLog{{
		Time:      mkT0,
		Side:      core.Buy,
		Price:     99.95,
		Qty:       5,
		Fee:       0.02,
		Liquidity: core.Maker,
	}}

	marks := ComputeMarkouts(logs, trades, []int{1, 2, 5})
	require.Len(t, marks, 1)
	m := marks[0]

	assert.Equal(t, 100.0, m.MidAtFill)
	// Buying below mid captures positive edge.
	assert.InDelta(t, 0.05, m.SpreadEdge, 1e-12)
	assert.InDelta(t, 1.0, m.Markouts[1], 1e-12)
	assert.InDelta(t, 3.0, m.Markouts[2], 1e-12)
	// Horizon past the end of the log stays NaN.
	assert.True(t, math.IsNaN(m.Markouts[5]))
}

func TestComputeMarkouts_SellFlipsSign(t *testing.T) {
	logs := midLogs(100, 102)
	trades := []core.TradeLog{{Time: mkT0, Side: core.Sell, Price: 100.04}}

	marks := ComputeMarkouts(logs, trades, []int{1})
	require.Len(t, marks, 1)
	assert.InDelta(t, 0.04, marks[0].SpreadEdge, 1e-12)
	// Mid rose 2 after we sold: adverse, so the markout is negative.
	assert.InDelta(t, -2.0, marks[0].Markouts[1], 1e-12)
}

func TestComputeMarkouts_UnmatchedTimeIsNaN(t *testing.T) {
	logs := midLogs(100, 101)
	trades := []core.TradeLog{{Time: mkT0.Add(30 * time.Second), Side: core.Buy, Price: 99}}

	marks := ComputeMarkouts(logs, trades, []int{1})
	require.Len(t, marks, 1)
	assert.True(t, math.IsNaN(marks[0].MidAtFill))
	assert.True(t, math.IsNaN(marks[0].SpreadEdge))
	assert.True(t, math.IsNaN(marks[0].Markouts[1]))
}

func TestAttribute_SplitsByLiquidity(t *testing.T) {
	logs := midLogs(100, 101, 102)
	trades := []core.TradeLog{
		{Time: mkT0, Side: core.Buy, Price: 99.9, Fee: -0.01, Liquidity: core.Maker},
		{Time: mkT0.Add(time.Minute), Side: core.Sell, Price: 100.9, Fee: 0.07, Liquidity: core.Taker},
	}
	horizons := []int{1}

	sum := Attribute(ComputeMarkouts(logs, trades, horizons), horizons)

	assert.Equal(t, 2, sum.Total.Trades)
	assert.Equal(t, 1, sum.Maker.Trades)
	assert.Equal(t, 1, sum.Taker.Trades)

	assert.InDelta(t, 0.06, sum.Total.FeesSum, 1e-12)
	assert.InDelta(t, -0.01, sum.Maker.FeesSum, 1e-12)
	assert.InDelta(t, 0.07, sum.Taker.FeesSum, 1e-12)

	// Maker bought 0.1 inside mid; taker sold 0.1 through mid.
	assert.InDelta(t, 0.1, sum.Maker.SpreadEdgeSum, 1e-12)
	assert.InDelta(t, -0.1, sum.Taker.SpreadEdgeSum, 1e-12)

	assert.InDelta(t, 1.0, sum.Maker.MarkoutSums[1], 1e-12)
	assert.InDelta(t, -1.0, sum.Taker.MarkoutSums[1], 1e-12)
	assert.InDelta(t, 0.0, sum.Total.MarkoutSums[1], 1e-12)
}

func TestAttribute_NaNContributionsSkipped(t *testing.T) {
	// A trade that never joins the log still counts but adds nothing.
	marks := ComputeMarkouts(midLogs(100), []core.TradeLog{
		{Time: mkT0.Add(time.Hour), Side: core.Buy, Price: 99, Fee: math.NaN()},
	}, []int{1})

	sum := Attribute(marks, []int{1})
	assert.Equal(t, 1, sum.Total.Trades)
	assert.Equal(t, 0.0, sum.Total.FeesSum)
	assert.Equal(t, 0.0, sum.Total.SpreadEdgeSum)
	assert.Equal(t, 0.0, sum.Total.MarkoutSums[1])
}
