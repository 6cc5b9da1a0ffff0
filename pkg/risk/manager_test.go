package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/mmsim/config"
)

func TestAllowNewOrders_CalmMarket(t *testing.T) {
	m := NewManager(config.DefaultSim())
	assert.True(t, m.AllowNewOrders(0, 0.0001, 100, 0))
}

func TestAllowNewOrders_VolBrake(t *testing.T) {
	cfg := config.DefaultSim()
	cfg.VolBrakeMult = 3.0
	m := NewManager(cfg)

	// Just under and just over the 3e-3 threshold.
	assert.True(t, m.AllowNewOrders(0, 0.0029, 100, 0))
	assert.False(t, m.AllowNewOrders(0, 0.0031, 100, 0))

	// NaN volatility does not trip the brake.
	assert.True(t, m.AllowNewOrders(0, math.NaN(), 100, 0))
}

func TestAllowNewOrders_InventoryCap(t *testing.T) {
	cfg := config.DefaultSim()
	cfg.InvCap = 50
	m := NewManager(cfg)

	assert.True(t, m.AllowNewOrders(49.99, 0.0001, 100, 0))
	assert.False(t, m.AllowNewOrders(50, 0.0001, 100, 0))
	assert.False(t, m.AllowNewOrders(-50, 0.0001, 100, 0))
	assert.False(t, m.AllowNewOrders(120, 0.0001, 100, 0))
}

func TestAllowNewOrders_DrawdownStopRespectsWarmup(t *testing.T) {
	cfg := config.DefaultSim()
	cfg.DDStop = 0.5
	cfg.WarmupBars = 10
	m := NewManager(cfg)

	// Equity is far below the seeded peak, but the stop stays inactive
	// during warm-up.
	assert.True(t, m.AllowNewOrders(0, 0.0001, 10, 5))
	// First bar past warm-up blocks.
	assert.False(t, m.AllowNewOrders(0, 0.0001, 10, 10))
}

func TestAllowNewOrders_PeakTracksEquity(t *testing.T) {
	cfg := config.DefaultSim()
	cfg.DDStop = 0.5
	cfg.WarmupBars = 0
	m := NewManager(cfg)

	require.Equal(t, 100.0, m.EquityPeak())

	// Raising equity raises the peak.
	assert.True(t, m.AllowNewOrders(0, 0.0001, 200, 0))
	assert.Equal(t, 200.0, m.EquityPeak())

	// Above half the new peak: allowed. Below: blocked.
	assert.True(t, m.AllowNewOrders(0, 0.0001, 101, 1))
	assert.False(t, m.AllowNewOrders(0, 0.0001, 99, 2))

	// NaN equity neither updates the peak nor trips the stop.
	assert.True(t, m.AllowNewOrders(0, 0.0001, math.NaN(), 3))
	assert.Equal(t, 200.0, m.EquityPeak())
}

func TestAllowNewOrders_Deterministic(t *testing.T) {
	cfg := config.DefaultSim()
	a := NewManager(cfg)
	b := NewManager(cfg)

	inputs := []struct {
		inv, vol, eq float64
		idx          int
	}{
		{0, 0.0001, 100, 0},
		{10, 0.005, 90, 1},
		{-60, 0.0001, 110, 2},
		{0, math.NaN(), math.NaN(), 3},
		{0, 0.0001, 10, 100},
	}
	for _, in := range inputs {
		assert.Equal(t,
			a.AllowNewOrders(in.inv, in.vol, in.eq, in.idx),
			b.AllowNewOrders(in.inv, in.vol, in.eq, in.idx))
	}
}
