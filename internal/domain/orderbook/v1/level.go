package orderbookv1

import (
	"github.com/google/btree"
)

// PriceLevel holds all orders resting at a single price on one side of the
// book, in arrival order, together with the aggregate resting quantity.
// Invariant: TotalQty equals the sum of the quantities of the orders whose
// ids sit in the queue, and Count equals the queue length.
type PriceLevel struct {
	Side     Side
	Price    Price
	TotalQty int64
	queue    *RemovableQueue[OrderID]
}

// NewPriceLevel creates an empty price level.
func NewPriceLevel(side Side, price Price) *PriceLevel {
	return &PriceLevel{
		Side:  side,
		Price: price,
		queue: NewRemovableQueue[OrderID](),
	}
}

// Enqueue appends an order id at the back of the level and grows the
// aggregate quantity. Returns ErrDuplicateKey if the id is already resting
// here, which is an invariant violation on the caller's side.
func (l *PriceLevel) Enqueue(id OrderID, qty Qty) error {
	if err := l.queue.Enqueue(id); err != nil {
		return err
	}
	l.TotalQty += int64(qty)
	return nil
}

// Remove unlinks an order id from the level and shrinks the aggregate by the
// given quantity. Returns false if the id was not resting here; absence is a
// no-op, the aggregate is untouched.
func (l *PriceLevel) Remove(id OrderID, qty Qty) bool {
	if !l.queue.Remove(id) {
		return false
	}
	l.TotalQty -= int64(qty)
	return true
}

// Peek returns the oldest resting order id, the next to be matched.
func (l *PriceLevel) Peek() (OrderID, error) {
	return l.queue.Peek()
}

// AddQty adjusts the aggregate quantity without touching queue order. Used
// for quantity-only modifies and partial fills, where the order keeps its
// queue position.
func (l *PriceLevel) AddQty(delta int64) {
	l.TotalQty += delta
}

// Count returns the number of orders resting at this level.
func (l *PriceLevel) Count() int {
	return l.queue.Len()
}

// IsEmpty checks if the level has no orders. An empty level must not remain
// in the side's price tree.
func (l *PriceLevel) IsEmpty() bool {
	return l.queue.Len() == 0
}

// Each visits resting order ids in time priority until fn returns false.
func (l *PriceLevel) Each(fn func(OrderID) bool) {
	l.queue.Each(fn)
}

// Less orders levels so that for either side the tree maximum is the most
// competitive price: ascending by price on the bid side, descending on the
// ask side.
func (l *PriceLevel) Less(than btree.Item) bool {
	other := than.(*PriceLevel)
	if l.Side == SideBuy {
		return l.Price < other.Price
	}
	return l.Price > other.Price
}
