package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	feedv1 "github.com/quantfeed/book-replay/internal/domain/feed/v1"
	orderbookv1 "github.com/quantfeed/book-replay/internal/domain/orderbook/v1"
	"github.com/quantfeed/book-replay/pkg/errors"
	"github.com/quantfeed/book-replay/pkg/logger"
)

// CSVSource reads ';'-separated order events from a file:
// sourceTime;side;action;orderId;price;qty. A record with a missing or
// unparseable field other than side is dropped; an empty side field is valid
// and yields an event that carries no book mutation.
type CSVSource struct {
	file    *os.File
	reader  *csv.Reader
	logger  logger.Interface
	skipped int
}

// NewCSVSource opens the feed file at path.
func NewCSVSource(path string, log logger.Interface) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewTracer("feed_open_error").Wrap(err)
	}

	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	return &CSVSource{
		file:   file,
		reader: reader,
		logger: log,
	}, nil
}

// Next returns the next well-formed event, skipping malformed records.
// Returns io.EOF when the feed is exhausted.
func (s *CSVSource) Next(ctx context.Context) (*feedv1.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fields, err := s.reader.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			s.skip("read", err)
			continue
		}

		event, err := parseRecord(fields)
		if err != nil {
			s.skip("parse", err)
			continue
		}
		return event, nil
	}
}

// Skipped returns the number of records dropped so far.
func (s *CSVSource) Skipped() int {
	return s.skipped
}

// Close closes the underlying feed file.
func (s *CSVSource) Close() error {
	if err := s.file.Close(); err != nil {
		return errors.NewTracer("feed_close_error").Wrap(err)
	}
	return nil
}

func (s *CSVSource) skip(stage string, err error) {
	s.skipped++
	s.logger.Debug("skipping malformed feed record",
		logger.Field{Key: "stage", Value: stage},
		logger.Field{Key: "error", Value: err.Error()},
	)
}

func parseRecord(fields []string) (*feedv1.Event, error) {
	if len(fields) != 6 {
		return nil, fmt.Errorf("expected 6 fields, got %d", len(fields))
	}

	sourceTime, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, err
	}

	var side *orderbookv1.Side
	if raw := strings.TrimSpace(fields[1]); raw != "" {
		code, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		parsed, err := orderbookv1.ParseSide(code)
		if err != nil {
			return nil, err
		}
		side = &parsed
	}

	if len(fields[2]) != 1 {
		return nil, fmt.Errorf("bad action field %q", fields[2])
	}
	code := fields[2][0]
	action, err := orderbookv1.ParseAction(code)
	if err != nil {
		return nil, err
	}

	orderID, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, err
	}
	price, err := strconv.ParseInt(fields[4], 10, 32)
	if err != nil {
		return nil, err
	}
	qty, err := strconv.ParseInt(fields[5], 10, 32)
	if err != nil {
		return nil, err
	}

	return &feedv1.Event{
		SourceTime: sourceTime,
		Side:       side,
		Action:     action,
		Code:       code,
		OrderID:    orderbookv1.OrderID(orderID),
		Price:      orderbookv1.Price(price),
		Qty:        orderbookv1.Qty(qty),
	}, nil
}
