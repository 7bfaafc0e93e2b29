package orderbookv1

import "fmt"

// OrderID identifies an order for its whole lifetime in the book.
type OrderID int64

// Price is a limit price in ticks.
type Price int32

// Qty is an order quantity. It is mutated in place while the order rests.
type Qty int32

// Side represents the side of the book an order rests on.
type Side int8

const (
	// SideBuy is the bid side.
	SideBuy Side = 1
	// SideSell is the ask side.
	SideSell Side = 2
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// ParseSide converts a feed side code (1 buy, 2 sell) into a Side.
func ParseSide(v int64) (Side, error) {
	switch v {
	case 1:
		return SideBuy, nil
	case 2:
		return SideSell, nil
	default:
		return 0, fmt.Errorf("unknown side code %d", v)
	}
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", int8(s))
	}
}

// Action is the closed set of book mutations an event can request.
type Action uint8

const (
	// ActionAdd places a new resting order.
	ActionAdd Action = iota + 1
	// ActionModify updates price and/or quantity of a resting order.
	ActionModify
	// ActionDelete removes a resting order.
	ActionDelete
	// ActionClear flushes the whole book.
	ActionClear
)

// ParseAction converts a feed action code into an Action.
// 'Y' and 'F' are distinct flush codes with identical clear behavior.
func ParseAction(code byte) (Action, error) {
	switch code {
	case 'A':
		return ActionAdd, nil
	case 'M':
		return ActionModify, nil
	case 'D':
		return ActionDelete, nil
	case 'Y', 'F':
		return ActionClear, nil
	default:
		return 0, fmt.Errorf("unknown action code %q", code)
	}
}

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionModify:
		return "modify"
	case ActionDelete:
		return "delete"
	case ActionClear:
		return "clear"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Order is a single resting order. The book owns the record for as long as
// the order rests; Qty is decremented in place by crossing resolution.
type Order struct {
	ID         OrderID `json:"id"`
	SourceTime int64   `json:"sourceTime"`
	Side       Side    `json:"side"`
	Price      Price   `json:"price"`
	Qty        Qty     `json:"qty"`
}

// NewOrder creates a resting order record.
func NewOrder(id OrderID, sourceTime int64, side Side, price Price, qty Qty) *Order {
	return &Order{
		ID:         id,
		SourceTime: sourceTime,
		Side:       side,
		Price:      price,
		Qty:        qty,
	}
}

// IsFilled checks if the order has been fully consumed by matching.
func (o *Order) IsFilled() bool {
	return o.Qty == 0
}
