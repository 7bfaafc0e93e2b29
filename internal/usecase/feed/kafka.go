package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"

	feedv1 "github.com/quantfeed/book-replay/internal/domain/feed/v1"
	orderbookv1 "github.com/quantfeed/book-replay/internal/domain/orderbook/v1"
	"github.com/quantfeed/book-replay/pkg/config"
	"github.com/quantfeed/book-replay/pkg/logger"
)

// kafkaReader is the subset of kafka.Reader the source relies on.
type kafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	ReadLag(ctx context.Context) (int64, error)
	SetOffset(offset int64) error
	Close() error
}

// KafkaSource consumes order events from a kafka topic. The source is
// bounded: the topic's lag is captured on the first read and once that many
// messages have been consumed Next returns io.EOF, so a replay pass over a
// kafka feed terminates like one over a file. Records published after the
// bound was taken belong to the next pass.
type KafkaSource struct {
	kafkaReader kafkaReader
	logger      logger.Interface
	skipped     int
	remaining   int64
	bounded     bool
}

// eventPayload is the JSON wire form of one order event.
type eventPayload struct {
	SourceTime int64  `json:"sourceTime"`
	Side       *int64 `json:"side,omitempty"`
	Action     string `json:"action"`
	OrderID    int64  `json:"orderId"`
	Price      int32  `json:"price"`
	Qty        int32  `json:"qty"`
}

// NewKafkaSource creates a kafka reader consuming the order event topic from
// the beginning, so replay passes see the full feed.
func NewKafkaSource(cfg config.KafkaConfig, log logger.Interface) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.FeedTopic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return &KafkaSource{
		kafkaReader: reader,
		logger:      log,
	}
}

// SetOffset sets the offset for the kafka reader.
func (s *KafkaSource) SetOffset(offset int64) error {
	if err := s.kafkaReader.SetOffset(offset); err != nil {
		s.logError(err, "SetOffset")
		return err
	}
	return nil
}

// Next reads messages until one holds a well-formed event; malformed
// payloads are dropped the same way malformed feed lines are. Returns io.EOF
// once every message below the bound captured on the first read has been
// consumed.
func (s *KafkaSource) Next(ctx context.Context) (*feedv1.Event, error) {
	if !s.bounded {
		lag, err := s.kafkaReader.ReadLag(ctx)
		if err != nil {
			s.logError(err, "ReadLag")
			return nil, err
		}
		s.remaining = lag
		s.bounded = true
	}

	for s.remaining > 0 {
		msg, err := s.kafkaReader.ReadMessage(ctx)
		if err != nil {
			s.logError(err, "ReadMessage")
			return nil, err
		}
		s.remaining--

		var payload eventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			s.skip("unmarshal", err)
			continue
		}

		event, err := payload.event()
		if err != nil {
			s.skip("parse", err)
			continue
		}

		s.logger.Debug("read order event",
			logger.Field{Key: "offset", Value: msg.Offset},
			logger.Field{Key: "orderId", Value: event.OrderID},
			logger.Field{Key: "action", Value: event.Action.String()},
			logger.Field{Key: "price", Value: event.Price},
			logger.Field{Key: "qty", Value: event.Qty},
		)
		return event, nil
	}
	return nil, io.EOF
}

// Skipped returns the number of payloads dropped so far.
func (s *KafkaSource) Skipped() int {
	return s.skipped
}

// Close properly closes the kafka reader.
func (s *KafkaSource) Close() error {
	if err := s.kafkaReader.Close(); err != nil {
		s.logError(err, "Close")
		return err
	}
	return nil
}

func (p *eventPayload) event() (*feedv1.Event, error) {
	if len(p.Action) != 1 {
		return nil, fmt.Errorf("bad action %q", p.Action)
	}
	code := p.Action[0]
	action, err := orderbookv1.ParseAction(code)
	if err != nil {
		return nil, err
	}

	var side *orderbookv1.Side
	if p.Side != nil {
		parsed, err := orderbookv1.ParseSide(*p.Side)
		if err != nil {
			return nil, err
		}
		side = &parsed
	}

	return &feedv1.Event{
		SourceTime: p.SourceTime,
		Side:       side,
		Action:     action,
		Code:       code,
		OrderID:    orderbookv1.OrderID(p.OrderID),
		Price:      orderbookv1.Price(p.Price),
		Qty:        orderbookv1.Qty(p.Qty),
	}, nil
}

// logError is a helper method to log errors consistently
func (s *KafkaSource) logError(err error, operation string) {
	s.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

func (s *KafkaSource) skip(stage string, err error) {
	s.skipped++
	s.logger.Debug("skipping malformed feed payload",
		logger.Field{Key: "stage", Value: stage},
		logger.Field{Key: "error", Value: err.Error()},
	)
}
