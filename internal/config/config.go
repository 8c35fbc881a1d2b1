package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds the server settings read from the environment
type Config struct {
	// DatabaseURL selects the postgres store; empty keeps everything in memory
	DatabaseURL string `env:"DATABASE_URL"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"8080"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8081"`
	APIToken    string `env:"API_TOKEN" envDefault:"dev-token"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicPrefix string   `env:"KAFKA_TOPIC_PREFIX" envDefault:"wealthflow."`

	PriceLookupTimeout time.Duration `env:"PRICE_LOOKUP_TIMEOUT" envDefault:"2s"`
	PriceCacheTTL      time.Duration `env:"PRICE_CACHE_TTL" envDefault:"60s"`
	PriceRateLimit     int           `env:"PRICE_RATE_LIMIT" envDefault:"10"`

	PercentPlaces   int32  `env:"PERCENT_PLACES" envDefault:"2"`
	TopExpenses     int    `env:"TOP_EXPENSES" envDefault:"10"`
	TrailingBuckets int    `env:"TRAILING_BUCKETS" envDefault:"3"`
	DefaultCurrency string `env:"DEFAULT_CURRENCY" envDefault:"INR"`

	SeedDemo bool `env:"SEED_DEMO" envDefault:"false"`
}

// Load reads an optional .env file, then parses the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with
func (c Config) Validate() error {
	if c.PercentPlaces < 0 || c.PercentPlaces > 8 {
		return fmt.Errorf("PERCENT_PLACES must be between 0 and 8, got %d", c.PercentPlaces)
	}
	if c.TrailingBuckets < 1 {
		return fmt.Errorf("TRAILING_BUCKETS must be at least 1, got %d", c.TrailingBuckets)
	}
	if c.PriceLookupTimeout <= 0 {
		return fmt.Errorf("PRICE_LOOKUP_TIMEOUT must be positive, got %s", c.PriceLookupTimeout)
	}
	if c.PriceRateLimit < 1 {
		return fmt.Errorf("PRICE_RATE_LIMIT must be at least 1, got %d", c.PriceRateLimit)
	}
	return nil
}
