// Package book implements the synthetic limit order book: a symmetric price
// ladder per side with FIFO visible depth and explicit queue positions for
// the engine's own resting orders.
package book

import (
	"math"
	"sort"
	"time"

	"github.com/erain9/mmsim/pkg/core"
)

// sizeEps is the threshold below which a size is treated as exhausted.
const sizeEps = 1e-12

// PriceLevel is one rung of a ladder. Size is the visible quantity:
// background depth plus the summed qty of our resting orders at the level.
type PriceLevel struct {
	Price float64
	Size  float64
}

// RestingOrder is one of our own limit orders resting on the book.
// QueueAhead is the visible size that ranked before it at placement time;
// it only decreases as market flow consumes the level.
type RestingOrder struct {
	ID         int
	Side       core.Side
	Price      float64
	Qty        float64
	LevelIdx   int
	QueueAhead float64
}

// MakerFill records a passive execution of one of our resting orders.
type MakerFill struct {
	Time  time.Time
	Side  core.Side
	Price float64
	Qty   float64
}

// Book is the symmetric ladder with FIFO queues per level. It persists
// across bars and is exclusively owned by a single simulation run.
type Book struct {
	tick   float64
	levels int
	nextID int
	bids   []PriceLevel
	asks   []PriceLevel
	ours   map[int]*RestingOrder
}

// New builds a symmetric ladder around mid: bid level i at mid-(i+1)*tick,
// ask mirrored, with geometrically decaying background depth.
func New(mid, tick float64, levels int, baseDepth, depthDecay float64) *Book {
	b := &Book{
		tick:   tick,
		levels: levels,
		nextID: 1,
		bids:   make([]PriceLevel, levels),
		asks:   make([]PriceLevel, levels),
		ours:   make(map[int]*RestingOrder),
	}
	for i := 0; i < levels; i++ {
		size := baseDepth * math.Pow(depthDecay, float64(i))
		b.bids[i] = PriceLevel{Price: mid - float64(i+1)*tick, Size: size}
		b.asks[i] = PriceLevel{Price: mid + float64(i+1)*tick, Size: size}
	}
	return b
}

// BestBid returns the top bid level.
func (b *Book) BestBid() PriceLevel { return b.bids[0] }

// BestAsk returns the top ask level.
func (b *Book) BestAsk() PriceLevel { return b.asks[0] }

// Levels returns the ladder depth.
func (b *Book) Levels() int { return b.levels }

// Level returns the idx-th rung of the given side's ladder.
func (b *Book) Level(side core.Side, idx int) (PriceLevel, bool) {
	ladder := b.ladder(side)
	if idx < 0 || idx >= len(ladder) {
		return PriceLevel{}, false
	}
	return ladder[idx], true
}

// Replenish tops up any level whose visible size fell below its target back
// to that target. It never reduces a level; it models new background
// liquidity arriving.
func (b *Book) Replenish(baseDepth, decay float64) {
	for _, ladder := range [][]PriceLevel{b.bids, b.asks} {
		for i := range ladder {
			target := baseDepth * math.Pow(decay, float64(i))
			if ladder[i].Size < target {
				ladder[i].Size = target
			}
		}
	}
}

// PlaceLimit rests an order at an existing ladder price, joining the tail of
// that level's queue. It returns nil when the price matches no level.
func (b *Book) PlaceLimit(side core.Side, price, qty float64) *RestingOrder {
	ladder := b.ladder(side)
	levelIdx := -1
	for i := range ladder {
		if math.Abs(ladder[i].Price-price) < sizeEps {
			levelIdx = i
			break
		}
	}
	if levelIdx < 0 {
		return nil
	}

	ro := &RestingOrder{
		ID:         b.nextID,
		Side:       side,
		Price:      price,
		Qty:        qty,
		LevelIdx:   levelIdx,
		QueueAhead: ladder[levelIdx].Size,
	}
	b.nextID++
	b.ours[ro.ID] = ro
	ladder[levelIdx].Size += qty
	return ro
}

// Cancel removes a resting order and releases its remaining qty from the
// level's visible size.
func (b *Book) Cancel(orderID int) {
	ro, ok := b.ours[orderID]
	if !ok {
		return
	}
	delete(b.ours, orderID)
	ladder := b.ladder(ro.Side)
	ladder[ro.LevelIdx].Size = math.Max(0, ladder[ro.LevelIdx].Size-ro.Qty)
}

// Order returns one of our resting orders by id.
func (b *Book) Order(orderID int) (*RestingOrder, bool) {
	ro, ok := b.ours[orderID]
	return ro, ok
}

// OurOrderIDs returns the ids of all our resting orders in placement order.
func (b *Book) OurOrderIDs() []int {
	ids := make([]int, 0, len(b.ours))
	for id := range b.ours {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ProcessMarketOrder applies incoming market-order flow: a buy consumes the
// ask ladder, a sell the bid ladder, walking levels from best outward.
//
// Within a level the consumption order is the matching tie-break and must
// hold exactly: visible-ahead depth first, then each resting order's
// QueueAhead, then its Qty (emitting a MakerFill at the resting price).
func (b *Book) ProcessMarketOrder(side core.Side, qty float64, t time.Time) []MakerFill {
	var fills []MakerFill

	ladder := b.ladder(side.Opposite())
	oursSide := side.Opposite()
	remaining := qty
	level := 0

	for remaining > 0 && level < b.levels {
		levelSize := ladder[level].Size

		oursHere := 0.0
		for _, ro := range b.restingAt(oursSide, level) {
			oursHere += ro.Qty
		}

		visibleAhead := math.Max(0, levelSize-oursHere)
		takeAhead := math.Min(remaining, visibleAhead)
		remaining -= takeAhead
		levelSize -= takeAhead

		if remaining > 0 {
			for _, ro := range b.restingAt(oursSide, level) {
				if ro.Qty <= 0 {
					continue
				}
				useAhead := math.Min(remaining, ro.QueueAhead)
				ro.QueueAhead -= useAhead
				remaining -= useAhead
				if ro.QueueAhead <= sizeEps && remaining > 0 {
					fillQty := math.Min(remaining, ro.Qty)
					if fillQty > 0 {
						ro.Qty -= fillQty
						remaining -= fillQty
						levelSize -= fillQty
						fills = append(fills, MakerFill{Time: t, Side: ro.Side, Price: ro.Price, Qty: fillQty})
					}
				}
			}
			for id, ro := range b.ours {
				if ro.Qty <= sizeEps {
					delete(b.ours, id)
				}
			}
		}

		ladder[level].Size = math.Max(0, levelSize)
		if ladder[level].Size <= sizeEps {
			level++
		} else if remaining <= sizeEps {
			break
		}
	}

	return fills
}

// TakeTop decrements the top of the given ladder directly, bypassing queue
// logic. It models our own taker trade consuming top-of-book immediately.
func (b *Book) TakeTop(side core.Side, qty float64) {
	ladder := b.ladder(side)
	ladder[0].Size = math.Max(0, ladder[0].Size-qty)
}

func (b *Book) ladder(side core.Side) []PriceLevel {
	if side == core.Buy {
		return b.bids
	}
	return b.asks
}

// restingAt returns our resting orders on a side and level in time priority
// (placement order). Order ids increase with placement, so id order is FIFO.
func (b *Book) restingAt(side core.Side, levelIdx int) []*RestingOrder {
	var ids []int
	for id, ro := range b.ours {
		if ro.Side == side && ro.LevelIdx == levelIdx {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := make([]*RestingOrder, len(ids))
	for i, id := range ids {
		out[i] = b.ours[id]
	}
	return out
}
