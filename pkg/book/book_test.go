package book

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/mmsim/pkg/core"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestBook() *Book {
	// mid=100, tick=0.01, 5 levels, depth 8 decaying by 0.5
	return New(100, 0.01, 5, 8, 0.5)
}

func TestNew_LadderShape(t *testing.T) {
	b := newTestBook()

	require.Equal(t, 5, b.Levels())
	assert.InDelta(t, 99.99, b.BestBid().Price, 1e-12)
	assert.InDelta(t, 100.01, b.BestAsk().Price, 1e-12)
	assert.InDelta(t, 8.0, b.BestBid().Size, 1e-12)

	lvl, ok := b.Level(core.Sell, 2)
	require.True(t, ok)
	assert.InDelta(t, 100.03, lvl.Price, 1e-12)
	assert.InDelta(t, 2.0, lvl.Size, 1e-12)

	_, ok = b.Level(core.Sell, 5)
	assert.False(t, ok)
}

func TestPlaceLimit_JoinsTail(t *testing.T) {
	b := newTestBook()

	ro := b.PlaceLimit(core.Buy, 99.99, 3)
	require.NotNil(t, ro)
	assert.Equal(t, 0, ro.LevelIdx)
	// Queue position is the visible size before joining.
	assert.InDelta(t, 8.0, ro.QueueAhead, 1e-12)
	// Visible size now includes our qty.
	assert.InDelta(t, 11.0, b.BestBid().Size, 1e-12)

	// A second order at the same level queues behind the first.
	ro2 := b.PlaceLimit(core.Buy, 99.99, 2)
	require.NotNil(t, ro2)
	assert.InDelta(t, 11.0, ro2.QueueAhead, 1e-12)
	assert.Greater(t, ro2.ID, ro.ID)
}

func TestPlaceLimit_OffLadderPrice(t *testing.T) {
	b := newTestBook()
	assert.Nil(t, b.PlaceLimit(core.Buy, 99.985, 3))
	assert.Nil(t, b.PlaceLimit(core.Sell, 101.50, 3))
}

func TestCancel_ReleasesVisibleSize(t *testing.T) {
	b := newTestBook()
	ro := b.PlaceLimit(core.Sell, 100.01, 3)
	require.NotNil(t, ro)
	require.InDelta(t, 11.0, b.BestAsk().Size, 1e-12)

	b.Cancel(ro.ID)
	assert.InDelta(t, 8.0, b.BestAsk().Size, 1e-12)
	_, ok := b.Order(ro.ID)
	assert.False(t, ok)

	// Canceling twice is a no-op.
	b.Cancel(ro.ID)
	assert.InDelta(t, 8.0, b.BestAsk().Size, 1e-12)
}

func TestReplenish_TopUpOnly(t *testing.T) {
	b := newTestBook()
	b.TakeTop(core.Sell, 5) // ask top: 8 -> 3

	b.Replenish(8, 0.5)
	assert.InDelta(t, 8.0, b.BestAsk().Size, 1e-12)

	// A level above target is not reduced.
	ro := b.PlaceLimit(core.Buy, 99.99, 4)
	require.NotNil(t, ro)
	b.Replenish(8, 0.5)
	assert.InDelta(t, 12.0, b.BestBid().Size, 1e-12)
}

func TestProcessMarketOrder_QueuePriorityExact(t *testing.T) {
	b := newTestBook()
	ro := b.PlaceLimit(core.Sell, 100.01, 2)
	require.NotNil(t, ro)
	require.InDelta(t, 8.0, ro.QueueAhead, 1e-12)

	// First sweep consumes the visible depth ahead of us and stops; our
	// recorded queue position only starts draining on later flow.
	fills := b.ProcessMarketOrder(core.Buy, 8, t0)
	assert.Empty(t, fills)
	assert.InDelta(t, 8.0, ro.QueueAhead, 1e-12)
	assert.InDelta(t, 2.0, b.BestAsk().Size, 1e-12)

	// Second sweep grinds the queue position to zero without filling.
	fills = b.ProcessMarketOrder(core.Buy, 8, t0)
	assert.Empty(t, fills)
	assert.InDelta(t, 0.0, ro.QueueAhead, 1e-12)
	assert.InDelta(t, 2.0, ro.Qty, 1e-12)

	// With nothing ahead, the next unit of flow reaches us.
	fills = b.ProcessMarketOrder(core.Buy, 1, t0)
	require.Len(t, fills, 1)
	assert.Equal(t, core.Sell, fills[0].Side)
	assert.InDelta(t, 100.01, fills[0].Price, 1e-12)
	assert.InDelta(t, 1.0, fills[0].Qty, 1e-12)
	assert.InDelta(t, 1.0, ro.Qty, 1e-12)
}

func TestProcessMarketOrder_SingleSweepNeedsExcess(t *testing.T) {
	b := newTestBook()
	ro := b.PlaceLimit(core.Sell, 100.01, 2)
	require.NotNil(t, ro)

	// Within one sweep the visible depth and the queue position are
	// consumed in sequence: 8 + 8 rank ahead, the 17th unit fills us.
	fills := b.ProcessMarketOrder(core.Buy, 16, t0)
	assert.Empty(t, fills)
	assert.InDelta(t, 0.0, ro.QueueAhead, 1e-12)

	b2 := newTestBook()
	ro2 := b2.PlaceLimit(core.Sell, 100.01, 2)
	require.NotNil(t, ro2)
	fills = b2.ProcessMarketOrder(core.Buy, 17, t0)
	require.Len(t, fills, 1)
	assert.InDelta(t, 1.0, fills[0].Qty, 1e-12)
	assert.InDelta(t, 1.0, ro2.Qty, 1e-12)
}

func TestProcessMarketOrder_FullFillRemovesOrder(t *testing.T) {
	b := newTestBook()
	ro := b.PlaceLimit(core.Sell, 100.01, 2)
	require.NotNil(t, ro)
	id := ro.ID

	fills := b.ProcessMarketOrder(core.Buy, 18, t0)
	require.Len(t, fills, 1)
	assert.InDelta(t, 2.0, fills[0].Qty, 1e-12)
	_, ok := b.Order(id)
	assert.False(t, ok)
	// Level fully consumed.
	assert.InDelta(t, 0.0, b.BestAsk().Size, 1e-12)
}

func TestProcessMarketOrder_WalksLevels(t *testing.T) {
	b := newTestBook()
	roDeep := b.PlaceLimit(core.Sell, 100.02, 3)
	require.NotNil(t, roDeep)

	// Asks: 8, 4(+3 ours), 2, 1, 0.5. 17 units clear level 0 (8), the
	// visible 4 of level 1 and the recorded queue of 4, then 1 fills us.
	fills := b.ProcessMarketOrder(core.Buy, 17, t0)
	require.Len(t, fills, 1)
	assert.InDelta(t, 100.02, fills[0].Price, 1e-12)
	assert.InDelta(t, 1.0, fills[0].Qty, 1e-12)
	assert.InDelta(t, 2.0, roDeep.Qty, 1e-12)
}

func TestProcessMarketOrder_FIFOAcrossOurOrders(t *testing.T) {
	b := newTestBook()
	first := b.PlaceLimit(core.Sell, 100.01, 2)
	second := b.PlaceLimit(core.Sell, 100.01, 2)
	require.NotNil(t, first)
	require.NotNil(t, second)

	// first queued behind 8, second behind 10. A 17-unit sweep consumes
	// visible 8, drains first's queue of 8, and fills first for 1;
	// second is untouched.
	fills := b.ProcessMarketOrder(core.Buy, 17, t0)
	require.Len(t, fills, 1)
	assert.InDelta(t, 1.0, first.Qty, 1e-12)
	assert.InDelta(t, 2.0, second.Qty, 1e-12)
	assert.InDelta(t, 10.0, second.QueueAhead, 1e-12)
}

func TestVisibleSizeInvariant(t *testing.T) {
	b := newTestBook()
	b.PlaceLimit(core.Sell, 100.01, 2)
	b.PlaceLimit(core.Sell, 100.02, 1)
	b.PlaceLimit(core.Buy, 99.99, 3)

	checkInvariant := func() {
		for _, side := range []core.Side{core.Buy, core.Sell} {
			for i := 0; i < b.Levels(); i++ {
				lvl, ok := b.Level(side, i)
				require.True(t, ok)
				assert.GreaterOrEqual(t, lvl.Size, -1e-12)

				ours := 0.0
				for _, id := range b.OurOrderIDs() {
					ro, ok := b.Order(id)
					require.True(t, ok)
					if ro.Side == side && ro.LevelIdx == i {
						ours += ro.Qty
					}
				}
				assert.GreaterOrEqual(t, lvl.Size+1e-9, ours)
			}
		}
	}

	checkInvariant()
	b.ProcessMarketOrder(core.Buy, 7, t0)
	checkInvariant()
	b.ProcessMarketOrder(core.Sell, 12, t0)
	checkInvariant()
	b.ProcessMarketOrder(core.Buy, 40, t0)
	checkInvariant()
}

func TestTakeTop_FloorsAtZero(t *testing.T) {
	b := newTestBook()
	b.TakeTop(core.Buy, 100)
	assert.InDelta(t, 0.0, b.BestBid().Size, 1e-12)
}
