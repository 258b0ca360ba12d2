package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv       string `env:"APP_ENV" default:"development"`
	AppURL       string `env:"APP_URL" default:"http://localhost:8080"`
	Port         string `env:"PORT" default:"8080"`
	StoreBackend string `env:"STORE_BACKEND" default:"postgres"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisURL     string `env:"REDIS_URL"`
	LogLevel     string `env:"LOG_LEVEL" default:"info"`
	LogFormat    string `env:"LOG_FORMAT" default:"text"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days

	VoteMaxAttempts  int           `env:"VOTE_MAX_ATTEMPTS" default:"5"`
	VoteRetryBackoff time.Duration `env:"VOTE_RETRY_BACKOFF" default:"10ms"`

	PushTimeout    time.Duration `env:"PUSH_TIMEOUT" default:"5s"`
	PushWebhookURL string        `env:"PUSH_WEBHOOK_URL"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" default:"24h"`
	UnreadCacheTTL time.Duration `env:"UNREAD_CACHE_TTL" default:"5m"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" default:"15m"`
	ReconcileRepair   bool          `env:"RECONCILE_REPAIR" default:"false"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders  string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case BackendMemory:
		if cfg.IsProduction() {
			return errors.New("STORE_BACKEND=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, cfg.StoreBackend)
	}

	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 characters")
	}

	if cfg.VoteMaxAttempts < 1 {
		return fmt.Errorf("VOTE_MAX_ATTEMPTS must be at least 1, got %d", cfg.VoteMaxAttempts)
	}
	if cfg.PushTimeout <= 0 {
		return errors.New("PUSH_TIMEOUT must be positive")
	}
	if cfg.ReconcileInterval < time.Minute {
		return fmt.Errorf("RECONCILE_INTERVAL must be at least 1m, got %s", cfg.ReconcileInterval)
	}

	return nil
}
