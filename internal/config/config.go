package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN"`

	// DatabaseURL is either a SQLite file path or a postgres:// URL.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"chatlog.db"`

	// Pool tuning, applied only for server-based stores.
	PoolSize    int           `env:"DB_POOL_SIZE" envDefault:"20"`
	MaxOverflow int           `env:"DB_MAX_OVERFLOW" envDefault:"30"`
	Recycle     time.Duration `env:"DB_RECYCLE" envDefault:"30m"`

	// Webhook settings. Polling is used when WebhookURL is empty.
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookPath   string `env:"WEBHOOK_PATH" envDefault:"/webhook"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Port          int    `env:"PORT" envDefault:"8080"`

	// DigestInterval enables the periodic activity digest when positive.
	DigestInterval time.Duration `env:"DIGEST_INTERVAL" envDefault:"0"`

	Debug bool `env:"DEBUG" envDefault:"false"`
}

// Load reads .env when present, then the environment. Token presence is
// checked by the caller so that schema-only invocations work without one.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "chatlog.db"
	}
	if !strings.HasPrefix(cfg.WebhookPath, "/") {
		cfg.WebhookPath = "/" + cfg.WebhookPath
	}
	return cfg, nil
}

// IsPostgres reports whether DatabaseURL points at a Postgres server.
func (c Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") ||
		strings.HasPrefix(c.DatabaseURL, "postgresql://")
}
