package engine

import (
	"context"
	"io"
	"time"

	feedv1 "github.com/quantfeed/book-replay/internal/domain/feed/v1"
	orderbookv1 "github.com/quantfeed/book-replay/internal/domain/orderbook/v1"
	sinkv1 "github.com/quantfeed/book-replay/internal/domain/sink/v1"
	"github.com/quantfeed/book-replay/internal/usecase/orderbook"
	"github.com/quantfeed/book-replay/pkg/logger"
	"github.com/quantfeed/book-replay/pkg/util"
)

// Engine replays an order event feed against a book and emits one output
// record per event. Events are fully applied in sequence; all feed parsing
// happens before the timed apply loop and all sink writes after it, so no
// I/O interleaves with book mutation.
type Engine struct {
	book      *orderbook.Book
	newSource feedv1.Factory
	sink      sinkv1.Sink
	logger    logger.Interface
	opts      *Options
}

// New creates a replay engine.
func New(book *orderbook.Book, newSource feedv1.Factory, sink sinkv1.Sink, log logger.Interface, opts *Options) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Engine{
		book:      book,
		newSource: newSource,
		sink:      sink,
		logger:    log,
		opts:      opts,
	}
}

// Run replays the feed for the configured number of passes. Each pass gets a
// fresh run id, resets the book and re-opens the source.
func (e *Engine) Run(ctx context.Context) error {
	for pass := 1; pass <= e.opts.Passes; pass++ {
		runCtx := util.WithPass(util.WithRunID(ctx, util.NewRunID()), pass)
		if err := e.runPass(runCtx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runPass(ctx context.Context) error {
	e.book.Clear()

	source, err := e.newSource(ctx)
	if err != nil {
		return err
	}
	defer source.Close()

	events, err := drain(ctx, source)
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "replay pass loaded",
		logger.Field{Key: "events", Value: len(events)},
	)

	records := make([]*sinkv1.Record, 0, len(events))
	start := time.Now()
	for _, event := range events {
		record, err := e.Apply(ctx, event)
		if err != nil {
			return err
		}
		records = append(records, record)
	}
	elapsed := time.Since(start)

	for _, record := range records {
		if err := e.sink.Write(ctx, record); err != nil {
			return err
		}
	}

	totalMicros := float64(elapsed.Nanoseconds()) / 1e3
	perEvent := 0.0
	if len(events) > 0 {
		perEvent = totalMicros / float64(len(events))
	}
	e.logger.InfoContext(ctx, "replay pass finished",
		logger.Field{Key: "events", Value: len(events)},
		logger.Field{Key: "total_us", Value: totalMicros},
		logger.Field{Key: "per_event_us", Value: perEvent},
	)
	return nil
}

// Apply applies one event to the book and returns its output record. The
// record carries the quantity as parsed from the feed, captured before any
// matching mutates it. Events without a side bypass book mutation and only
// echo the current top of book.
func (e *Engine) Apply(_ context.Context, event *feedv1.Event) (*sinkv1.Record, error) {
	originalQty := event.Qty

	if event.Side != nil {
		switch event.Action {
		case orderbookv1.ActionClear:
			e.book.Clear()
		case orderbookv1.ActionAdd:
			if err := e.book.Add(event.Order(), e.crossable(event)); err != nil {
				return nil, err
			}
		case orderbookv1.ActionModify:
			if err := e.book.Modify(event.Order(), e.crossable(event)); err != nil {
				return nil, err
			}
		case orderbookv1.ActionDelete:
			e.book.Delete(event.Order())
		}
	}

	return &sinkv1.Record{
		SourceTime: event.SourceTime,
		Side:       event.Side,
		Action:     event.Code,
		OrderID:    event.OrderID,
		Price:      event.Price,
		Qty:        originalQty,
		Top:        e.book.TopOfBook(),
	}, nil
}

// crossable reports whether the event is eligible for crossing resolution:
// its source time falls inside the matching window and its price crosses the
// best opposing price as of now, before the event itself rests.
func (e *Engine) crossable(event *feedv1.Event) bool {
	if event.SourceTime < e.opts.WindowStart || event.SourceTime > e.opts.WindowEnd {
		return false
	}
	return e.book.Crosses(*event.Side, event.Price)
}

func drain(ctx context.Context, source feedv1.Source) ([]*feedv1.Event, error) {
	var events []*feedv1.Event
	for {
		event, err := source.Next(ctx)
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
}
