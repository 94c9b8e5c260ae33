package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"3318"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	DatabaseURL  string `env:"DATABASE_URL"`

	FeedBackend string `env:"FEED_BACKEND" envDefault:"memory"`
	RedisURL    string `env:"REDIS_URL"`
	NATSURL     string `env:"NATS_URL"`

	TokenSecret string        `env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	RequireSignInToVote bool          `env:"REQUIRE_SIGN_IN_TO_VOTE" envDefault:"false"`
	AllowedOrigins      []string      `env:"ALLOWED_ORIGINS" envSeparator:","`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"text"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// LoadDotEnv loads variables from a .env file without overriding ones already
// set. A missing file is not an error.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
}

// ParseFlags builds the config: defaults, then environment, then CLI flags
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	fs := flag.NewFlagSet("livepoll", flag.ContinueOnError)

	// Environment values become the flag defaults so flags win when given
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (sqlite, postgres or memory)")
	fs.StringVar(&cfg.FeedBackend, "feed", cfg.FeedBackend, "Change feed backend (memory, redis or nats)")
	fs.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "Redis URL for the redis feed")
	fs.StringVar(&cfg.NATSURL, "nats", cfg.NATSURL, "NATS URL for the nats feed")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Token signing secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings and enumerated values
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch strings.ToLower(c.DatabaseType) {
	case "memory":
	case "sqlite", "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database URL required (use -d or DATABASE_URL env)")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE %q", c.DatabaseType)
	}

	switch strings.ToLower(c.FeedBackend) {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required for the redis feed")
		}
	case "nats":
	default:
		return fmt.Errorf("unsupported FEED_BACKEND %q", c.FeedBackend)
	}

	// Secrets - MUST be provided
	if c.TokenSecret == "" {
		return errors.New("TOKEN_SECRET required")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
