package feedv1

import (
	"context"

	orderbookv1 "github.com/quantfeed/book-replay/internal/domain/orderbook/v1"
)

// Event is one parsed record of the order event feed. Side is absent on
// records that carry no book mutation; such records still produce an output
// record echoing the current best bid/ask.
type Event struct {
	SourceTime int64               `json:"sourceTime"`
	Side       *orderbookv1.Side   `json:"side,omitempty"`
	Action     orderbookv1.Action  `json:"action"`
	Code       byte                `json:"code"` // raw feed action code, echoed to output
	OrderID    orderbookv1.OrderID `json:"orderId"`
	Price      orderbookv1.Price   `json:"price"`
	Qty        orderbookv1.Qty     `json:"qty"`
}

// Order builds the resting order record for this event.
// Only valid when Side is present.
func (e *Event) Order() *orderbookv1.Order {
	return orderbookv1.NewOrder(e.OrderID, e.SourceTime, *e.Side, e.Price, e.Qty)
}

// Source defines the interface for reading parsed order events in feed order.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=feedv1_mock
type Source interface {
	// Next returns the next well-formed event. Malformed feed records are
	// skipped inside the source and never surface here. Returns io.EOF when
	// the feed is exhausted.
	Next(ctx context.Context) (*Event, error)
	// Close releases the underlying feed.
	Close() error
}

// Factory opens a fresh Source for one replay pass.
type Factory func(ctx context.Context) (Source, error)
