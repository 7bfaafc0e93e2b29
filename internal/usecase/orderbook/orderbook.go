package orderbook

import (
	"sync"

	"github.com/google/btree"

	orderbookv1 "github.com/quantfeed/book-replay/internal/domain/orderbook/v1"
	sinkv1 "github.com/quantfeed/book-replay/internal/domain/sink/v1"
	"github.com/quantfeed/book-replay/pkg/errors"
)

const priceLevelsBTreeDegree = 32

// Book is a two-sided limit order book with FIFO price-time priority.
//
// Each side keeps its price levels in a btree whose ordering is keyed by side
// so that Max() is always the most competitive price, plus a cached best
// price. The order index is the single source of truth for a resting order's
// current price and quantity.
//
// The book is single-writer: events are applied strictly in sequence. The
// mutex makes each operation atomic as a whole for readers on other
// goroutines; mutations are never concurrent.
type Book struct {
	mu      sync.RWMutex
	bids    *btree.BTree
	asks    *btree.BTree
	orders  map[orderbookv1.OrderID]*orderbookv1.Order
	bestBid *orderbookv1.Price
	bestAsk *orderbookv1.Price
}

// NewBook creates an empty book. Books are independent; use one per
// instrument.
func NewBook() *Book {
	return &Book{
		bids:   btree.New(priceLevelsBTreeDegree),
		asks:   btree.New(priceLevelsBTreeDegree),
		orders: make(map[orderbookv1.OrderID]*orderbookv1.Order),
	}
}

// Add rests the order at its price level, creating the level if needed, and
// records it in the order index. When crossable is true, crossing resolution
// runs on the freshly rested order.
func (b *Book) Add(order *orderbookv1.Order, crossable bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.add(order); err != nil {
		return err
	}
	if crossable {
		return b.resolve(order)
	}
	return nil
}

// Modify updates a resting order. An unknown order id behaves as Add. A
// change of price or side relocates the order, losing its queue position; a
// quantity-only modify adjusts the level aggregate in place and keeps time
// priority.
func (b *Book) Modify(order *orderbookv1.Order, crossable bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, ok := b.orders[order.ID]
	switch {
	case !ok:
		if err := b.add(order); err != nil {
			return err
		}
	case existing.Side == order.Side && existing.Price == order.Price:
		// Read the old quantity before the index entry is overwritten,
		// then settle the delta against the level aggregate.
		diff := int64(existing.Qty) - int64(order.Qty)
		if lvl := b.level(order.Side, order.Price); lvl != nil {
			lvl.AddQty(-diff)
		}
		b.orders[order.ID] = order
	default:
		b.unrest(existing)
		if err := b.add(order); err != nil {
			return err
		}
	}

	if crossable {
		return b.resolve(order)
	}
	return nil
}

// Delete removes a resting order from its level and the index. Deleting an
// order the book never saw, or saw and already removed, is a silent no-op;
// truncated feeds produce redundant deletes.
func (b *Book) Delete(order *orderbookv1.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.del(order)
}

// Clear empties both sides, the order index and the best-price caches.
func (b *Book) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids.Clear(false)
	b.asks.Clear(false)
	b.orders = make(map[orderbookv1.OrderID]*orderbookv1.Order)
	b.bestBid = nil
	b.bestAsk = nil
}

// Crosses reports whether an order at the given price on the given side
// would execute against the best opposing price right now.
func (b *Book) Crosses(side orderbookv1.Side, price orderbookv1.Price) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.crosses(side, price)
}

// BestBid returns the cached best bid price.
func (b *Book) BestBid() (orderbookv1.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.bestBid == nil {
		return 0, false
	}
	return *b.bestBid, true
}

// BestAsk returns the cached best ask price.
func (b *Book) BestAsk() (orderbookv1.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.bestAsk == nil {
		return 0, false
	}
	return *b.bestAsk, true
}

// Order returns a copy of the resting order record for id.
func (b *Book) Order(id orderbookv1.OrderID) (orderbookv1.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	order, ok := b.orders[id]
	if !ok {
		return orderbookv1.Order{}, false
	}
	return *order, true
}

// OrderCount returns the number of resting orders across both sides.
func (b *Book) OrderCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// Depth returns the number of price levels on a side.
func (b *Book) Depth(side orderbookv1.Side) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sideTree(side).Len()
}

// Level returns the aggregate quantity and order count at a price level.
func (b *Book) Level(side orderbookv1.Side, price orderbookv1.Price) (qty int64, count int, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lvl := b.level(side, price)
	if lvl == nil {
		return 0, 0, false
	}
	return lvl.TotalQty, lvl.Count(), true
}

// TopOfBook snapshots the best price, aggregate quantity and order count of
// both sides. All three fields of a side are nil together when the side is
// empty.
func (b *Book) TopOfBook() sinkv1.TopOfBook {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var top sinkv1.TopOfBook
	if b.bestBid != nil {
		if lvl := b.level(orderbookv1.SideBuy, *b.bestBid); lvl != nil {
			price, qty, count := *b.bestBid, lvl.TotalQty, int64(lvl.Count())
			top.BidPrice, top.BidQty, top.BidCount = &price, &qty, &count
		}
	}
	if b.bestAsk != nil {
		if lvl := b.level(orderbookv1.SideSell, *b.bestAsk); lvl != nil {
			price, qty, count := *b.bestAsk, lvl.TotalQty, int64(lvl.Count())
			top.AskPrice, top.AskQty, top.AskCount = &price, &qty, &count
		}
	}
	return top
}

// add rests the order without locking.
func (b *Book) add(order *orderbookv1.Order) error {
	lvl := b.level(order.Side, order.Price)
	if lvl == nil {
		lvl = orderbookv1.NewPriceLevel(order.Side, order.Price)
		b.sideTree(order.Side).ReplaceOrInsert(lvl)
		b.promoteBest(order.Side, order.Price)
	}

	if err := lvl.Enqueue(order.ID, order.Qty); err != nil {
		return errors.NewTracer("orderbook_duplicate_enqueue").Wrap(err)
	}
	b.orders[order.ID] = order
	return nil
}

// del removes the order identified by order.ID using the index record's
// resting location. Unknown ids are ignored.
func (b *Book) del(order *orderbookv1.Order) {
	existing, ok := b.orders[order.ID]
	if !ok {
		return
	}
	b.unrest(existing)
	delete(b.orders, order.ID)
}

// unrest unlinks a resting order from its price level, dropping the level if
// it empties and refreshing the best-price cache for that side.
func (b *Book) unrest(order *orderbookv1.Order) {
	lvl := b.level(order.Side, order.Price)
	if lvl == nil {
		return
	}
	if !lvl.Remove(order.ID, order.Qty) {
		return
	}
	if lvl.IsEmpty() {
		b.sideTree(order.Side).Delete(lvl)
		b.refreshBest(order.Side, order.Price)
	}
}

// resolve runs the crossing-resolution loop for a freshly rested order. The
// best opposing price is re-read on every iteration, so consecutive fully
// filled resting orders across levels are consumed in one invocation.
func (b *Book) resolve(incoming *orderbookv1.Order) error {
	for b.crosses(incoming.Side, incoming.Price) {
		opposite := b.bestOppositeLevel(incoming.Side)
		if opposite == nil {
			return nil
		}

		restingID, err := opposite.Peek()
		if err != nil {
			// crosses() guarantees a populated best level; an empty one
			// means the level/cache invariants are broken.
			return errors.NewTracer("orderbook_empty_best_level").Wrap(err)
		}
		resting := b.orders[restingID]

		if resting.Qty >= incoming.Qty {
			// The resting order absorbs the incoming one.
			resting.Qty -= incoming.Qty
			opposite.AddQty(-int64(incoming.Qty))
			b.del(incoming)
			if resting.IsFilled() {
				// equal quantities exhaust both at once
				b.del(resting)
			}
			return nil
		}

		// The incoming order consumes the resting one and keeps going.
		incoming.Qty -= resting.Qty
		if own := b.level(incoming.Side, incoming.Price); own != nil {
			own.AddQty(-int64(resting.Qty))
		}
		b.del(resting)
	}
	return nil
}

func (b *Book) crosses(side orderbookv1.Side, price orderbookv1.Price) bool {
	if side == orderbookv1.SideBuy {
		return b.bestAsk != nil && price >= *b.bestAsk
	}
	return b.bestBid != nil && price <= *b.bestBid
}

func (b *Book) sideTree(side orderbookv1.Side) *btree.BTree {
	if side == orderbookv1.SideBuy {
		return b.bids
	}
	return b.asks
}

func (b *Book) level(side orderbookv1.Side, price orderbookv1.Price) *orderbookv1.PriceLevel {
	item := b.sideTree(side).Get(&orderbookv1.PriceLevel{Side: side, Price: price})
	if item == nil {
		return nil
	}
	return item.(*orderbookv1.PriceLevel)
}

// bestOppositeLevel returns the most competitive level the incoming side
// matches against. The side-keyed Less makes it the tree maximum on both
// sides.
func (b *Book) bestOppositeLevel(side orderbookv1.Side) *orderbookv1.PriceLevel {
	var item btree.Item
	if side == orderbookv1.SideBuy {
		item = b.asks.Max()
	} else {
		item = b.bids.Max()
	}
	if item == nil {
		return nil
	}
	return item.(*orderbookv1.PriceLevel)
}

// promoteBest updates the cached best price after a new level was created:
// the new level is the new best iff its price improves on the cache or the
// cache is empty.
func (b *Book) promoteBest(side orderbookv1.Side, price orderbookv1.Price) {
	if side == orderbookv1.SideBuy {
		if b.bestBid == nil || price > *b.bestBid {
			p := price
			b.bestBid = &p
		}
		return
	}
	if b.bestAsk == nil || price < *b.bestAsk {
		p := price
		b.bestAsk = &p
	}
}

// refreshBest recomputes the cached best price after a level at removedPrice
// was dropped from a side.
func (b *Book) refreshBest(side orderbookv1.Side, removedPrice orderbookv1.Price) {
	if side == orderbookv1.SideBuy {
		if b.bestBid == nil || *b.bestBid != removedPrice {
			return
		}
		if item := b.bids.Max(); item != nil {
			p := item.(*orderbookv1.PriceLevel).Price
			b.bestBid = &p
		} else {
			b.bestBid = nil
		}
		return
	}
	if b.bestAsk == nil || *b.bestAsk != removedPrice {
		return
	}
	if item := b.asks.Max(); item != nil {
		p := item.(*orderbookv1.PriceLevel).Price
		b.bestAsk = &p
	} else {
		b.bestAsk = nil
	}
}
