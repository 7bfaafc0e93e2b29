package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantfeed/book-replay/internal/app/engine"
	feedv1 "github.com/quantfeed/book-replay/internal/domain/feed/v1"
	sinkv1 "github.com/quantfeed/book-replay/internal/domain/sink/v1"
	"github.com/quantfeed/book-replay/internal/usecase/feed"
	"github.com/quantfeed/book-replay/internal/usecase/orderbook"
	"github.com/quantfeed/book-replay/internal/usecase/sink"
	"github.com/quantfeed/book-replay/pkg/config"
	"github.com/quantfeed/book-replay/pkg/logger"
	"github.com/quantfeed/book-replay/pkg/util"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cfg config.Config
	config.MustLoad(&cfg)

	ctx = util.WithInstrument(ctx, cfg.Instrument)

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	out, err := newSink(cfg, log)
	if err != nil {
		log.Error(err)
		return
	}
	defer out.Close()

	book := orderbook.NewBook()
	eng := engine.New(book, newSourceFactory(cfg, log), out, log, &engine.Options{
		WindowStart: cfg.ReplayConfig.WindowStart,
		WindowEnd:   cfg.ReplayConfig.WindowEnd,
		Passes:      cfg.ReplayConfig.Passes,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("shutting down replayer")
		cancel()
	}()

	if err := eng.Run(ctx); err != nil {
		log.Error(err,
			logger.Field{Key: "instrument", Value: cfg.Instrument},
		)
		return
	}

	log.Info("replay finished",
		logger.Field{Key: "instrument", Value: cfg.Instrument},
	)
}

func newSourceFactory(cfg config.Config, log logger.Interface) feedv1.Factory {
	return func(ctx context.Context) (feedv1.Source, error) {
		if cfg.FeedConfig.Kind == "kafka" {
			return feed.NewKafkaSource(cfg.KafkaConfig, log), nil
		}
		return feed.NewCSVSource(cfg.FeedConfig.Path, log)
	}
}

func newSink(cfg config.Config, log logger.Interface) (sinkv1.Sink, error) {
	if cfg.OutputConfig.Kind == "kafka" {
		return sink.NewKafkaSink(cfg.KafkaConfig, log), nil
	}
	return sink.NewCSVSink(cfg.OutputConfig.Path, log)
}
