package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"

	orderbookv1 "github.com/quantfeed/book-replay/internal/domain/orderbook/v1"
	sinkv1 "github.com/quantfeed/book-replay/internal/domain/sink/v1"
	"github.com/quantfeed/book-replay/pkg/errors"
	"github.com/quantfeed/book-replay/pkg/logger"
)

const csvHeader = "SourceTime;Side;Action;OrderId;Price;Qty;B0;BQ0;BN0;A0;AQ0;AN0"

// CSVSink writes one ';'-separated row per applied event. Absent best-price
// fields are rendered as empty columns.
type CSVSink struct {
	file   *os.File
	writer *bufio.Writer
	logger logger.Interface
}

// NewCSVSink creates the output file at path and writes the header row.
func NewCSVSink(path string, log logger.Interface) (*CSVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.NewTracer("sink_open_error").Wrap(err)
	}

	writer := bufio.NewWriter(file)
	if _, err := fmt.Fprintln(writer, csvHeader); err != nil {
		file.Close()
		return nil, errors.NewTracer("sink_write_error").Wrap(err)
	}

	return &CSVSink{
		file:   file,
		writer: writer,
		logger: log,
	}, nil
}

// Write appends one output row.
func (s *CSVSink) Write(_ context.Context, record *sinkv1.Record) error {
	side := ""
	if record.Side != nil {
		side = strconv.Itoa(int(*record.Side))
	}

	_, err := fmt.Fprintf(s.writer, "%d;%s;%c;%d;%d;%d;%s;%s;%s;%s;%s;%s\n",
		record.SourceTime, side, record.Action, record.OrderID, record.Price, record.Qty,
		priceColumn(record.Top.BidPrice), int64Column(record.Top.BidQty), int64Column(record.Top.BidCount),
		priceColumn(record.Top.AskPrice), int64Column(record.Top.AskQty), int64Column(record.Top.AskCount),
	)
	if err != nil {
		return errors.NewTracer("sink_write_error").Wrap(err)
	}
	return nil
}

// Close flushes buffered rows and closes the output file.
func (s *CSVSink) Close() error {
	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		return errors.NewTracer("sink_flush_error").Wrap(err)
	}
	if err := s.file.Close(); err != nil {
		return errors.NewTracer("sink_close_error").Wrap(err)
	}
	return nil
}

func priceColumn(p *orderbookv1.Price) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(int64(*p), 10)
}

func int64Column(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
