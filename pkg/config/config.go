package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // .env file is optional

	if err := env.Parse(cfg); err != nil {
		return err // Return error if environment variable parsing fails
	}

	return nil // Return nil if everything is successful
}

// Config holds the configuration for the replayer.
type Config struct {
	Instrument   string              `env:"INSTRUMENT" envDefault:"default"` // Instrument label, one book per instrument
	FeedConfig   `envPrefix:"FEED_"` // Event feed configuration
	OutputConfig `envPrefix:"OUTPUT_"`
	KafkaConfig  `envPrefix:"KAFKA_"`
	ReplayConfig `envPrefix:"REPLAY_"`
}

// FeedConfig selects and configures the event source.
type FeedConfig struct {
	Kind string `env:"KIND" envDefault:"csv"` // csv or kafka
	Path string `env:"PATH" envDefault:"ticks.csv"`
}

// OutputConfig selects and configures the record sink.
type OutputConfig struct {
	Kind string `env:"KIND" envDefault:"csv"` // csv or kafka
	Path string `env:"PATH" envDefault:"out.csv"`
}

// KafkaConfig holds the configuration for the kafka feed source and record sink.
type KafkaConfig struct {
	Brokers     []string `env:"BROKER" envDefault:"localhost:9092"`
	FeedTopic   string   `env:"FEED_TOPIC" envDefault:"order-events"`
	OutputTopic string   `env:"OUTPUT_TOPIC" envDefault:"book-tops"`
}

// ReplayConfig holds the replay loop parameters.
type ReplayConfig struct {
	WindowStart int64 `env:"WINDOW_START" envDefault:"24300006000"` // continuous-matching window, closed interval over source time
	WindowEnd   int64 `env:"WINDOW_END" envDefault:"53400000000"`
	Passes      int   `env:"PASSES" envDefault:"1"` // timed replay passes over the same feed
}
