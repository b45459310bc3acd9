// Package config defines process configuration and its loading order:
// defaults, then an optional YAML file, then VENUEGRAPH_-prefixed env vars.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains everything the server process needs at startup.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// PostgresDSN is the canonical store connection string. Empty means the
	// in-memory stores are used (development and tests).
	PostgresDSN string `koanf:"postgres_dsn"`

	// RedisURL enables the Redis-backed score cache when set.
	RedisURL string `koanf:"redis_url"`

	// KafkaBrokers and KafkaTopic configure raw-record ingestion. Ingestion
	// is disabled when no brokers are configured.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
	KafkaGroup   string   `koanf:"kafka_group"`

	// KafkaAuditTopic receives venue match-decision events.
	KafkaAuditTopic string `koanf:"kafka_audit_topic"`

	// AdminTokenKey signs and verifies bearer tokens on admin endpoints.
	AdminTokenKey string `koanf:"admin_token_key"`

	// ValidateWorkers bounds per-source validation concurrency.
	ValidateWorkers int `koanf:"validate_workers"`

	// RefreshDeadline caps a full refresh cycle; completed phases commit
	// even when it is exceeded.
	RefreshDeadline time.Duration `koanf:"refresh_deadline"`

	// RefreshInterval is how often the background refresh loop fires.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// StaleAfter drives the health endpoint's refresh_needed flag.
	StaleAfter time.Duration `koanf:"stale_after"`

	// Bounds is the default aggregation area.
	Bounds AreaBounds `koanf:"bounds"`
}

// AreaBounds mirrors geo.Bounds for config unmarshaling.
type AreaBounds struct {
	North float64 `koanf:"north"`
	South float64 `koanf:"south"`
	East  float64 `koanf:"east"`
	West  float64 `koanf:"west"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		KafkaTopic:      "raw-records",
		KafkaGroup:      "venuegraph-ingest",
		KafkaAuditTopic: "venue-match-audit",
		ValidateWorkers: 4,
		RefreshDeadline: time.Hour,
		RefreshInterval: time.Hour,
		StaleAfter:      24 * time.Hour,
		// Kansas City metro by default, matching the seed deployment.
		Bounds: AreaBounds{North: 39.3, South: 38.9, East: -94.3, West: -94.8},
	}
}

// Load builds a Config by layering defaults, an optional YAML file pointed at
// by VENUEGRAPH_CONFIG, and VENUEGRAPH_-prefixed environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("VENUEGRAPH_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	envProvider := env.Provider("VENUEGRAPH_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "venuegraph_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.ValidateWorkers < 1 {
		return nil, errors.New("validate_workers must be at least 1")
	}
	return &cfg, nil
}
