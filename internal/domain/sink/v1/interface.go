package sinkv1

import (
	"context"

	orderbookv1 "github.com/quantfeed/book-replay/internal/domain/orderbook/v1"
)

// TopOfBook is the best-price view of both sides, taken after an event has
// been applied. All three fields of a side are nil together when that side
// of the book is empty.
type TopOfBook struct {
	BidPrice *orderbookv1.Price `json:"bidPrice,omitempty"`
	BidQty   *int64             `json:"bidQty,omitempty"`
	BidCount *int64             `json:"bidCount,omitempty"`
	AskPrice *orderbookv1.Price `json:"askPrice,omitempty"`
	AskQty   *int64             `json:"askQty,omitempty"`
	AskCount *int64             `json:"askCount,omitempty"`
}

// Record is one output row per input event: the echoed event fields, the
// quantity as parsed from the feed (before any matching mutated it) and the
// top of book after the event was applied.
type Record struct {
	SourceTime int64               `json:"sourceTime"`
	Side       *orderbookv1.Side   `json:"side,omitempty"`
	Action     byte                `json:"action"`
	OrderID    orderbookv1.OrderID `json:"orderId"`
	Price      orderbookv1.Price   `json:"price"`
	Qty        orderbookv1.Qty     `json:"qty"`
	Top        TopOfBook           `json:"top"`
}

// Sink consumes one Record per applied event.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=sinkv1_mock
type Sink interface {
	Write(ctx context.Context, record *Record) error
	Close() error
}
