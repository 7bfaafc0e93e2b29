package sink

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	sinkv1 "github.com/quantfeed/book-replay/internal/domain/sink/v1"
	"github.com/quantfeed/book-replay/pkg/config"
	"github.com/quantfeed/book-replay/pkg/errors"
	"github.com/quantfeed/book-replay/pkg/logger"
)

// KafkaSink publishes output records as JSON to a kafka topic.
type KafkaSink struct {
	kafkaWriter *kafka.Writer
	logger      logger.Interface
}

// NewKafkaSink creates a kafka publisher for the output topic.
func NewKafkaSink(cfg config.KafkaConfig, log logger.Interface) *KafkaSink {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.OutputTopic,
	})

	return &KafkaSink{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// Write publishes one output record.
func (s *KafkaSink) Write(ctx context.Context, record *sinkv1.Record) error {
	buf, err := json.Marshal(record)
	if err != nil {
		s.logger.Error(err,
			logger.Field{Key: "orderId", Value: record.OrderID},
		)
		return errors.NewTracer("sink_marshal_error").Wrap(err)
	}

	msg := kafka.Message{Value: buf}
	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		s.logger.Error(err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "orderId", Value: record.OrderID},
		)
		return errors.NewTracer("sink_publish_error").Wrap(err)
	}
	return nil
}

// Close closes the kafka writer.
func (s *KafkaSink) Close() error {
	if err := s.kafkaWriter.Close(); err != nil {
		return errors.NewTracer("sink_close_error").Wrap(err)
	}
	return nil
}
