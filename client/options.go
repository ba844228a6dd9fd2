package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"cubeclient/internal/backoff"
	"cubeclient/internal/config"
)

// limiter is the subset of *rate.Limiter the executor uses.
type limiter interface {
	Wait(ctx context.Context) error
}

type options struct {
	httpClient Doer
	policy     backoff.Policy
	logger     *slog.Logger
	limiter    limiter
}

func defaultOptions() options {
	return options{
		httpClient: &http.Client{Timeout: config.DefaultRequestTimeout},
		policy: backoff.Policy{
			Base:        config.DefaultBaseBackoff,
			Multiplier:  config.DefaultBackoffMultiplier,
			Cap:         config.DefaultBackoffCap,
			MaxAttempts: config.DefaultMaxAttempts,
			MaxElapsed:  config.DefaultMaxElapsed,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option customizes a Client.
type Option func(*options)

// WithHTTPClient substitutes the transport. The transport owns per-attempt
// timeouts; the backoff policy owns the cumulative budget.
func WithHTTPClient(d Doer) Option {
	return func(o *options) { o.httpClient = d }
}

// WithRequestTimeout sets the per-attempt timeout on the default transport.
// Ignored when WithHTTPClient is also given.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if hc, ok := o.httpClient.(*http.Client); ok {
			hc.Timeout = d
		}
	}
}

// WithPolicy replaces the backoff policy.
func WithPolicy(p backoff.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithLogger attaches a structured logger. Polling progress is logged at
// debug, transient faults at warn.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRateLimit throttles outbound requests client-side with a token
// bucket. Useful when many executions share one deployment.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// FromConfig derives options from a loaded configuration.
func FromConfig(cfg *config.Config) []Option {
	opts := []Option{
		WithPolicy(cfg.Policy()),
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	}
	if cfg.RateLimitRPS > 0 {
		opts = append(opts, WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}
	return opts
}
