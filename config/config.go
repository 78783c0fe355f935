package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Arena         ArenaConfig         `yaml:"arena"`
	Observability ObservabilityConfig `yaml:"observability"`
	HTTP          HTTPConfig          `yaml:"http"`
}

// PostgresConfig holds Postgres configuration. An empty DSN runs the engine
// on an in-memory SQLite database with the in-process scheduler.
type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_URL"`
}

// NATSConfig holds NATS configuration. An empty URL uses an in-process bus.
type NATSConfig struct {
	URL string `yaml:"url" env:"NATS_URL"`
}

// ArenaConfig holds engine settings.
type ArenaConfig struct {
	DefaultCurrency string        `yaml:"default_currency" env:"ARENA_DEFAULT_CURRENCY"`
	ReservationTTL  time.Duration `yaml:"reservation_ttl" env:"ARENA_RESERVATION_TTL"`
	// Grace separates resolving, cleanup and completion of an event.
	Grace         time.Duration `yaml:"grace" env:"ARENA_GRACE"`
	MaxWorkers    int           `yaml:"max_workers" env:"ARENA_MAX_WORKERS"`
	RatePerMinute int           `yaml:"builder_rate_per_minute" env:"ARENA_BUILDER_RATE_PER_MINUTE"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address" env:"METRICS_ADDRESS"`
	Environment    string `yaml:"environment" env:"ENV"`
	LogLevel       string `yaml:"log_level" env:"LOG_LEVEL"`
}

// HTTPConfig holds the health and metrics listener.
type HTTPConfig struct {
	Address string `yaml:"address" env:"HTTP_ADDRESS"`
}

// Defaults returns the settings used when neither file nor environment
// provides a value.
func Defaults() Config {
	return Config{
		Arena: ArenaConfig{
			DefaultCurrency: "gold",
			ReservationTTL:  24 * time.Hour,
			Grace:           2 * time.Minute,
			MaxWorkers:      25,
			RatePerMinute:   30,
		},
		Observability: ObservabilityConfig{
			Environment: "development",
			LogLevel:    "info",
		},
		HTTP: HTTPConfig{Address: ":8080"},
	}
}

// LoadConfig loads the configuration from a YAML file, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(filename string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Arena.DefaultCurrency == "" {
		errs = append(errs, errors.New("arena.default_currency is required"))
	}
	if c.Arena.ReservationTTL <= 0 {
		errs = append(errs, errors.New("arena.reservation_ttl must be positive"))
	}
	if c.Arena.Grace < 0 {
		errs = append(errs, errors.New("arena.grace cannot be negative"))
	}
	if c.Arena.RatePerMinute < 0 {
		errs = append(errs, errors.New("arena.builder_rate_per_minute cannot be negative"))
	}
	return errors.Join(errs...)
}
