// Package config handles client configuration and environment loading.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cubeclient/domain"
	"cubeclient/internal/backoff"
)

// Defaults applied when the corresponding environment variable is unset.
// The backoff defaults mirror the upstream service's documented client
// cadence: exponential from 1s to a 30s ceiling, five attempts.
const (
	DefaultRequestTimeout    = 60 * time.Second
	DefaultBaseBackoff       = time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultBackoffCap        = 30 * time.Second
	DefaultMaxAttempts       = 5
	DefaultMaxElapsed        = 2 * time.Minute
)

// Config holds everything needed to build a client: connection, polling
// policy, optional client-side rate limiting, and logging.
type Config struct {
	Host  string // base URL of the semantic-layer deployment
	Token string // bearer token attached to every request

	RequestTimeout    time.Duration // per-attempt transport timeout
	BaseBackoff       time.Duration
	BackoffMultiplier float64
	BackoffCap        time.Duration
	MaxAttempts       int
	MaxElapsed        time.Duration

	// Client-side throttle; zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel string // debug, info, warn, error (default "info")
}

// Policy returns the backoff policy described by the config.
func (c *Config) Policy() backoff.Policy {
	return backoff.Policy{
		Base:        c.BaseBackoff,
		Multiplier:  c.BackoffMultiplier,
		Cap:         c.BackoffCap,
		MaxAttempts: c.MaxAttempts,
		MaxElapsed:  c.MaxElapsed,
	}
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return domain.ErrValidation("config: request timeout must be > 0, got %s", c.RequestTimeout)
	}
	if err := c.Policy().Validate(); err != nil {
		return err
	}
	if c.RateLimitRPS < 0 {
		return domain.ErrValidation("config: rate limit rps must be >= 0, got %g", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return domain.ErrValidation("config: rate limit burst must be >= 1 when rps is set")
	}
	return nil
}

// LoadFromEnv loads configuration from CUBE_* environment variables,
// applying documented defaults for anything unset. Host and token are not
// required here — callers may supply credentials per execution.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:              os.Getenv("CUBE_HOST"),
		Token:             os.Getenv("CUBE_TOKEN"),
		RequestTimeout:    durationEnv("CUBE_REQUEST_TIMEOUT", DefaultRequestTimeout),
		BaseBackoff:       durationEnv("CUBE_BASE_BACKOFF", DefaultBaseBackoff),
		BackoffMultiplier: floatEnv("CUBE_BACKOFF_MULTIPLIER", DefaultBackoffMultiplier),
		BackoffCap:        durationEnv("CUBE_BACKOFF_CAP", DefaultBackoffCap),
		MaxAttempts:       intEnv("CUBE_MAX_ATTEMPTS", DefaultMaxAttempts),
		MaxElapsed:        durationEnv("CUBE_MAX_ELAPSED", DefaultMaxElapsed),
		RateLimitRPS:      floatEnv("CUBE_RATE_LIMIT_RPS", 0),
		RateLimitBurst:    intEnv("CUBE_RATE_LIMIT_BURST", 0),
		LogLevel:          os.Getenv("CUBE_LOG_LEVEL"),
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func durationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func floatEnv(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func intEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
