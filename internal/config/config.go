package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/product-image-ingest/pkg/config"
)

// Config holds all configuration for the image ingestor.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Function host
	Port        int    `env:"PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9090"`
	Region      string `env:"FUNCTION_REGION"`

	// MongoDB
	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB" envDefault:"ecommerce"`

	// Object storage
	StorageBucket string `env:"STORAGE_BUCKET"`

	// Ingestion workflow
	IngestTimeout time.Duration `env:"INGEST_TIMEOUT" envDefault:"2m"`
	TempDir       string        `env:"TEMP_DIR" envDefault:""`

	// Kafka; empty disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"" envSeparator:","`
}

// Load reads configuration from environment variables. The database
// connection string, the storage bucket, and the deployment region are
// mandatory; absence of any is a fatal startup error.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load ingestor config: %w", err)
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.StorageBucket == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("FUNCTION_REGION is required")
	}

	return cfg, nil
}

// EventsEnabled reports whether Kafka event publishing is configured.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaBrokers[0] != ""
}
