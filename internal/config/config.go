package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	TelegramToken      string        `env:"TELEGRAM_TOKEN"`
	TelegramDebug      bool          `env:"TELEGRAM_DEBUG" envDefault:"false"`
	WebhookURL         string        `env:"TELEGRAM_WEBHOOK_URL"`
	WebhookPath        string        `env:"TELEGRAM_WEBHOOK_PATH" envDefault:"/telegram/webhook"`
	PublicBaseURL      string        `env:"PUBLIC_BASE_URL"`
	AdminIDs           []string      `env:"ADMIN_IDS" envSeparator:","`
	SessionStore       string        `env:"SESSION_STORE" envDefault:"memory"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	HTTPAddr           string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReportsDir         string        `env:"REPORTS_DIR" envDefault:"reports"`
	CatalogPath        string        `env:"CATALOG_PATH"`
	RateLimit          int64         `env:"RATE_LIMIT" envDefault:"30"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	Redis    Redis    `envPrefix:"REDIS_"`
	Database Database `envPrefix:"DB_"`
	Square   Square   `envPrefix:"SQUARE_"`
}

type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

func (r Redis) Enabled() bool { return r.Addr != "" }

type Database struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT" envDefault:"5432"`
	User            string        `env:"USER"`
	Password        string        `env:"PASSWORD"`
	Name            string        `env:"NAME"`
	SSLMode         string        `env:"SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"2m"`
}

// Enabled reports whether an order archive database is configured.
func (d Database) Enabled() bool { return d.Host != "" }

func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type Square struct {
	AccessToken string `env:"ACCESS_TOKEN"`
	LocationID  string `env:"LOCATION_ID"`
	Environment string `env:"ENV" envDefault:"production"`
}

func (s Square) Enabled() bool { return s.AccessToken != "" && s.LocationID != "" }

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	switch cfg.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if !cfg.Redis.Enabled() {
			return nil, errors.New("REDIS_ADDR is required when SESSION_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.SessionStore)
	}
	if cfg.SessionTTL < 0 {
		return nil, errors.New("SESSION_TTL must not be negative")
	}
	if cfg.RateLimit < 0 {
		return nil, errors.New("RATE_LIMIT must not be negative")
	}

	return &cfg, nil
}

// ValidateServe checks the settings the bot cannot run without.
func (c *Config) ValidateServe() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	if len(c.AdminIDs) == 0 {
		return errors.New("at least one admin ID is required")
	}
	return nil
}

// UseWebhook reports whether updates arrive by webhook instead of polling.
func (c *Config) UseWebhook() bool { return c.WebhookURL != "" }
