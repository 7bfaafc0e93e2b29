package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderbookv1 "github.com/quantfeed/book-replay/internal/domain/orderbook/v1"
)

// Helper to create a resting order record
func newOrder(id int64, side orderbookv1.Side, price int32, qty int32) *orderbookv1.Order {
	return orderbookv1.NewOrder(orderbookv1.OrderID(id), 0, side, orderbookv1.Price(price), orderbookv1.Qty(qty))
}

// Test 1: Basic constructor
func TestNewBook(t *testing.T) {
	b := NewBook()

	assert.NotNil(t, b)
	assert.Equal(t, 0, b.OrderCount())
	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.BestAsk()
	assert.False(t, ok)
}

// Test 2: Adding orders maintains best prices and level aggregates
func TestBook_Add(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideBuy, 10, 100), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideBuy, 12, 50), false))
	require.NoError(t, b.Add(newOrder(3, orderbookv1.SideBuy, 11, 25), false))
	require.NoError(t, b.Add(newOrder(4, orderbookv1.SideSell, 15, 40), false))
	require.NoError(t, b.Add(newOrder(5, orderbookv1.SideSell, 14, 60), false))

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(12), bid)

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(14), ask)

	qty, count, ok := b.Level(orderbookv1.SideBuy, 12)
	require.True(t, ok)
	assert.Equal(t, int64(50), qty)
	assert.Equal(t, 1, count)

	assert.Equal(t, 3, b.Depth(orderbookv1.SideBuy))
	assert.Equal(t, 2, b.Depth(orderbookv1.SideSell))
	assert.Equal(t, 5, b.OrderCount())
}

// Test 3: Orders at the same price share one level
func TestBook_SamePriceLevel(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideSell, 10, 10), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideSell, 10, 5), false))

	qty, count, ok := b.Level(orderbookv1.SideSell, 10)
	require.True(t, ok)
	assert.Equal(t, int64(15), qty)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, b.Depth(orderbookv1.SideSell))
}

// Test 4: Re-adding a resting order id is an invariant violation
func TestBook_DuplicateAdd(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideBuy, 10, 100), false))
	err := b.Add(newOrder(1, orderbookv1.SideBuy, 10, 100), false)
	assert.Error(t, err)
	assert.ErrorIs(t, err, orderbookv1.ErrDuplicateKey)
}

// Test 5: Delete removes the order; an empty level leaves the map and the
// best price cache is refreshed
func TestBook_Delete(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideBuy, 12, 50), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideBuy, 10, 100), false))

	b.Delete(newOrder(1, orderbookv1.SideBuy, 12, 50))

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(10), bid)
	assert.Equal(t, 1, b.Depth(orderbookv1.SideBuy))
	assert.Equal(t, 1, b.OrderCount())

	b.Delete(newOrder(2, orderbookv1.SideBuy, 10, 100))
	_, ok = b.BestBid()
	assert.False(t, ok)
	assert.Equal(t, 0, b.Depth(orderbookv1.SideBuy))
}

// Test 6: Deleting an order the book never saw leaves state unchanged
func TestBook_RedundantDelete(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideSell, 10, 30), false))

	b.Delete(newOrder(99, orderbookv1.SideSell, 10, 30))
	b.Delete(newOrder(99, orderbookv1.SideSell, 10, 30))

	qty, count, ok := b.Level(orderbookv1.SideSell, 10)
	require.True(t, ok)
	assert.Equal(t, int64(30), qty)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, b.OrderCount())
}

// Test 7: Clear empties everything and is idempotent
func TestBook_ClearIdempotent(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideBuy, 10, 100), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideSell, 12, 40), false))

	b.Clear()
	b.Clear()

	assert.Equal(t, 0, b.OrderCount())
	assert.Equal(t, 0, b.Depth(orderbookv1.SideBuy))
	assert.Equal(t, 0, b.Depth(orderbookv1.SideSell))
	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.BestAsk()
	assert.False(t, ok)

	top := b.TopOfBook()
	assert.Nil(t, top.BidPrice)
	assert.Nil(t, top.BidQty)
	assert.Nil(t, top.BidCount)
	assert.Nil(t, top.AskPrice)
	assert.Nil(t, top.AskQty)
	assert.Nil(t, top.AskCount)
}

// Test 8: Unknown order id on modify behaves as add
func TestBook_ModifyUnknownIsAdd(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Modify(newOrder(1, orderbookv1.SideBuy, 10, 100), false))

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(10), bid)
	assert.Equal(t, 1, b.OrderCount())
}

// Test 9: Quantity-only modify keeps the queue position
func TestBook_ModifyQuantityKeepsPriority(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideSell, 10, 30), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideSell, 10, 20), false))

	require.NoError(t, b.Modify(newOrder(1, orderbookv1.SideSell, 10, 45), false))

	qty, count, ok := b.Level(orderbookv1.SideSell, 10)
	require.True(t, ok)
	assert.Equal(t, int64(65), qty)
	assert.Equal(t, 2, count)

	// order 1 still matches first: an incoming buy consumes it, not order 2
	require.NoError(t, b.Add(newOrder(3, orderbookv1.SideBuy, 10, 45), true))
	_, present := b.Order(1)
	assert.False(t, present, "oldest order at the level is consumed first")
	survivor, present := b.Order(2)
	require.True(t, present)
	assert.Equal(t, orderbookv1.Qty(20), survivor.Qty)
}

// Test 10: Price modify relocates the order and moves the best bid
func TestBook_ModifyRelocation(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideBuy, 10, 50), false))

	require.NoError(t, b.Modify(newOrder(1, orderbookv1.SideBuy, 12, 50), false))

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(12), bid)

	_, _, ok = b.Level(orderbookv1.SideBuy, 10)
	assert.False(t, ok, "sole-occupant level is removed on relocation")

	qty, count, ok := b.Level(orderbookv1.SideBuy, 12)
	require.True(t, ok)
	assert.Equal(t, int64(50), qty)
	assert.Equal(t, 1, count)

	moved, present := b.Order(1)
	require.True(t, present)
	assert.Equal(t, orderbookv1.Price(12), moved.Price)
}

// Test 11: Relocation to the back of an existing level
func TestBook_ModifyRelocationLosesPriority(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideSell, 11, 10), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideSell, 10, 10), false))

	// order 1 moves to price 10, behind order 2
	require.NoError(t, b.Modify(newOrder(1, orderbookv1.SideSell, 10, 10), false))

	qty, count, ok := b.Level(orderbookv1.SideSell, 10)
	require.True(t, ok)
	assert.Equal(t, int64(20), qty)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, b.Depth(orderbookv1.SideSell))

	require.NoError(t, b.Add(newOrder(3, orderbookv1.SideBuy, 10, 10), true))
	_, present := b.Order(2)
	assert.False(t, present, "order 2 kept time priority at the level")
	_, present = b.Order(1)
	assert.True(t, present)
}

// Test 12: Modify that changes side moves the order between the maps
func TestBook_ModifySideChange(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideBuy, 10, 50), false))

	require.NoError(t, b.Modify(newOrder(1, orderbookv1.SideSell, 12, 50), false))

	_, ok := b.BestBid()
	assert.False(t, ok, "bid side is empty after the move")

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(12), ask)

	moved, present := b.Order(1)
	require.True(t, present)
	assert.Equal(t, orderbookv1.SideSell, moved.Side)
	assert.Equal(t, 1, b.OrderCount())
}

// Test 13: Partial fill — resting order absorbs the incoming one
func TestBook_ResolvePartialFill(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideSell, 10, 100), false))

	incoming := newOrder(2, orderbookv1.SideBuy, 10, 40)
	require.True(t, b.Crosses(incoming.Side, incoming.Price))
	require.NoError(t, b.Add(incoming, true))

	_, present := b.Order(2)
	assert.False(t, present, "incoming buy is fully filled and deleted")

	resting, present := b.Order(1)
	require.True(t, present)
	assert.Equal(t, orderbookv1.Qty(60), resting.Qty)

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(10), ask)

	qty, count, ok := b.Level(orderbookv1.SideSell, 10)
	require.True(t, ok)
	assert.Equal(t, int64(60), qty, "level aggregate tracks the partial fill")
	assert.Equal(t, 1, count)

	_, ok = b.BestBid()
	assert.False(t, ok, "the incoming order left no bid level behind")
}

// Test 14: Equal quantities exhaust both orders at once
func TestBook_ResolveFullConsumption(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideSell, 10, 30), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideBuy, 10, 30), true))

	assert.Equal(t, 0, b.OrderCount())
	_, ok := b.BestAsk()
	assert.False(t, ok)
	_, ok = b.BestBid()
	assert.False(t, ok)
	assert.Equal(t, 0, b.Depth(orderbookv1.SideSell))
	assert.Equal(t, 0, b.Depth(orderbookv1.SideBuy))
}

// Test 15: Sweep across multiple price levels in one invocation
func TestBook_ResolveMultiLevelSweep(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideSell, 10, 10), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideSell, 11, 10), false))

	require.NoError(t, b.Add(newOrder(3, orderbookv1.SideBuy, 11, 15), true))

	_, present := b.Order(1)
	assert.False(t, present, "first level fully consumed")
	_, present = b.Order(3)
	assert.False(t, present, "incoming buy fully filled against the second level")

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(11), ask)

	qty, count, ok := b.Level(orderbookv1.SideSell, 11)
	require.True(t, ok)
	assert.Equal(t, int64(5), qty)
	assert.Equal(t, 1, count)

	_, _, ok = b.Level(orderbookv1.SideSell, 10)
	assert.False(t, ok, "exhausted level is removed")
}

// Test 16: FIFO within a level — oldest resting order matched first
func TestBook_ResolveTimePriority(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideSell, 10, 10), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideSell, 10, 10), false))

	require.NoError(t, b.Add(newOrder(3, orderbookv1.SideBuy, 10, 15), true))

	_, present := b.Order(1)
	assert.False(t, present, "oldest order consumed first")

	second, present := b.Order(2)
	require.True(t, present)
	assert.Equal(t, orderbookv1.Qty(5), second.Qty)

	_, present = b.Order(3)
	assert.False(t, present)
}

// Test 17: Without the crossable flag the book rests in a crossed state
func TestBook_CrossedStateRests(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideSell, 10, 10), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideSell, 11, 10), false))
	require.NoError(t, b.Add(newOrder(3, orderbookv1.SideBuy, 11, 15), false))

	bid, ok := b.BestBid()
	require.True(t, ok)
	ask, ok2 := b.BestAsk()
	require.True(t, ok2)
	assert.GreaterOrEqual(t, bid, ask, "book legitimately holds a crossed state")
	assert.Equal(t, 3, b.OrderCount(), "no orders were deleted")
}

// Test 18: Incoming sell resolves against the bid side
func TestBook_ResolveIncomingSell(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideBuy, 12, 20), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideBuy, 11, 20), false))

	require.NoError(t, b.Add(newOrder(3, orderbookv1.SideSell, 11, 30), true))

	_, present := b.Order(1)
	assert.False(t, present, "best bid consumed first")

	second, present := b.Order(2)
	require.True(t, present)
	assert.Equal(t, orderbookv1.Qty(10), second.Qty)

	_, present = b.Order(3)
	assert.False(t, present, "incoming sell fully filled")

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(11), bid)
}

// Test 19: Crossing via modify resolves the relocated order
func TestBook_ResolveOnModify(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideSell, 10, 40), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideBuy, 8, 40), false))

	// bid moves up through the ask
	require.NoError(t, b.Modify(newOrder(2, orderbookv1.SideBuy, 10, 40), true))

	assert.Equal(t, 0, b.OrderCount())
	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.BestAsk()
	assert.False(t, ok)
}

// Test 20: TopOfBook reflects best prices, aggregates and counts
func TestBook_TopOfBook(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideBuy, 10, 100), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideBuy, 10, 50), false))
	require.NoError(t, b.Add(newOrder(3, orderbookv1.SideBuy, 9, 25), false))
	require.NoError(t, b.Add(newOrder(4, orderbookv1.SideSell, 12, 40), false))

	top := b.TopOfBook()
	require.NotNil(t, top.BidPrice)
	assert.Equal(t, orderbookv1.Price(10), *top.BidPrice)
	assert.Equal(t, int64(150), *top.BidQty)
	assert.Equal(t, int64(2), *top.BidCount)
	require.NotNil(t, top.AskPrice)
	assert.Equal(t, orderbookv1.Price(12), *top.AskPrice)
	assert.Equal(t, int64(40), *top.AskQty)
	assert.Equal(t, int64(1), *top.AskCount)
}

// Test 21: Best price caches stay consistent through mixed mutations
func TestBook_BestPriceInvariant(t *testing.T) {
	b := NewBook()

	require.NoError(t, b.Add(newOrder(1, orderbookv1.SideBuy, 10, 10), false))
	require.NoError(t, b.Add(newOrder(2, orderbookv1.SideBuy, 11, 10), false))
	require.NoError(t, b.Add(newOrder(3, orderbookv1.SideBuy, 12, 10), false))

	b.Delete(newOrder(3, orderbookv1.SideBuy, 12, 10))
	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(11), bid)

	require.NoError(t, b.Modify(newOrder(2, orderbookv1.SideBuy, 9, 10), false))
	bid, ok = b.BestBid()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(10), bid)

	b.Delete(newOrder(1, orderbookv1.SideBuy, 10, 10))
	bid, ok = b.BestBid()
	require.True(t, ok)
	assert.Equal(t, orderbookv1.Price(9), bid)

	b.Delete(newOrder(2, orderbookv1.SideBuy, 9, 10))
	_, ok = b.BestBid()
	assert.False(t, ok)
}

// Test 22: Independent book instances do not share state
func TestBook_Isolation(t *testing.T) {
	a := NewBook()
	b := NewBook()

	require.NoError(t, a.Add(newOrder(1, orderbookv1.SideBuy, 10, 10), false))

	assert.Equal(t, 1, a.OrderCount())
	assert.Equal(t, 0, b.OrderCount())
}
