package data

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/mmsim/pkg/core"
)

func barSeries(closes ...float64) []core.Bar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{
			Time:  t0.Add(time.Duration(i) * time.Minute),
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return bars
}

func TestComputeFeatures_Mid(t *testing.T) {
	bars := ComputeFeatures(barSeries(100, 101), 30, 5)
	assert.Equal(t, 100.0, bars[0].Mid)
	assert.Equal(t, 101.0, bars[1].Mid)
}

func TestComputeFeatures_VolWarmup(t *testing.T) {
	bars := ComputeFeatures(barSeries(100, 101, 100, 102, 101, 103), 4, 1)

	// minPeriods = max(2, 4/2) = 2 observed returns, available from idx 2.
	assert.Equal(t, 0.0, bars[0].Vol)
	assert.Equal(t, 0.0, bars[1].Vol)
	for i := 2; i < len(bars); i++ {
		assert.Greater(t, bars[i].Vol, 0.0, "bar %d", i)
		assert.False(t, math.IsNaN(bars[i].Vol))
	}
}

func TestComputeFeatures_VolMatchesSampleStd(t *testing.T) {
	bars := ComputeFeatures(barSeries(100, 102, 99, 103), 10, 1)

	// Returns at idx 1..3; window covers all of them at idx 3.
	rets := []float64{102.0/100.0 - 1, 99.0/102.0 - 1, 103.0/99.0 - 1}
	mean := (rets[0] + rets[1] + rets[2]) / 3
	var ss float64
	for _, r := range rets {
		ss += (r - mean) * (r - mean)
	}
	want := math.Sqrt(ss / 2)

	require.InDelta(t, want, bars[3].Vol, 1e-12)
}

func TestComputeFeatures_Momentum(t *testing.T) {
	bars := ComputeFeatures(barSeries(100, 101, 99, 99), 30, 1)

	assert.Equal(t, 0.0, bars[0].Mom)
	assert.Equal(t, 0.0, bars[0].MomSign)
	assert.Equal(t, 1.0, bars[1].Mom)
	assert.Equal(t, 1.0, bars[1].MomSign)
	assert.Equal(t, -2.0, bars[2].Mom)
	assert.Equal(t, -1.0, bars[2].MomSign)
	assert.Equal(t, 0.0, bars[3].Mom)
	assert.Equal(t, 0.0, bars[3].MomSign)
}

func TestComputeFeatures_MomentumLookback(t *testing.T) {
	bars := ComputeFeatures(barSeries(100, 101, 102, 104), 30, 2)
	assert.Equal(t, 0.0, bars[1].Mom)
	assert.Equal(t, 2.0, bars[2].Mom)
	assert.Equal(t, 3.0, bars[3].Mom)
}

func TestSyntheticMinute_Deterministic(t *testing.T) {
	opts := DefaultSyntheticOptions()
	opts.Minutes = 50

	a := SyntheticMinute(opts)
	b := SyntheticMinute(opts)
	require.Equal(t, a, b)

	opts.Seed = 7
	c := SyntheticMinute(opts)
	assert.NotEqual(t, a, c)
}

func TestSyntheticMinute_Shape(t *testing.T) {
	opts := DefaultSyntheticOptions()
	opts.Minutes = 100
	bars := SyntheticMinute(opts)

	require.Len(t, bars, 100)
	for i, b := range bars {
		assert.GreaterOrEqual(t, b.High, b.Low, "bar %d", i)
		assert.GreaterOrEqual(t, b.High, b.Close, "bar %d", i)
		assert.LessOrEqual(t, b.Low, b.Close, "bar %d", i)
		assert.GreaterOrEqual(t, b.Volume, 1.0, "bar %d", i)
		if i > 0 {
			assert.Equal(t, time.Minute, b.Time.Sub(bars[i-1].Time), "bar %d", i)
		}
	}
}
