// Package client executes semantic-layer queries: it encodes a query, sends
// it, and polls with backoff until the server produces a result or a
// terminal error. It is the only entry point callers use.
package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"cubeclient/domain"
	"cubeclient/internal/backoff"
	"cubeclient/internal/wire"
)

// maxResponseBytes bounds how much of a response body is read. Result sets
// larger than this indicate a missing limit, not a bigger buffer.
const maxResponseBytes = 64 << 20

// Doer is the transport capability the executor consumes. *http.Client
// satisfies it; tests substitute scripted fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client executes queries against a semantic-layer deployment. It holds no
// per-query state: a single Client is safe for concurrent use, and every
// Execute call polls independently.
type Client struct {
	httpClient Doer
	policy     backoff.Policy
	logger     *slog.Logger
	limiter    limiter
}

// New builds a Client. Without options it uses a 60s-timeout http.Client,
// the default backoff policy, and a no-op logger.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.policy.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		httpClient: o.httpClient,
		policy:     o.policy,
		logger:     o.logger,
		limiter:    o.limiter,
	}, nil
}

// Execute runs one query to completion. The query is validated before any
// network call; the credentials and query values are never mutated. Only
// four error kinds cross this boundary: *domain.ValidationError,
// *domain.FatalError, *domain.TimeoutError, and *domain.CancelledError.
func (c *Client) Execute(ctx context.Context, creds domain.Credentials, q *domain.Query) (*domain.QueryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	spec, err := wire.Encode(creds, q, requestID)
	if err != nil {
		return nil, domain.ErrValidation("query cannot be encoded: %v", err)
	}

	log := c.logger.With("request_id", requestID, "host", creds.Host())
	ctrl := backoff.NewController(c.policy)

	for {
		if err := c.throttle(ctx); err != nil {
			return nil, err
		}

		outcome := c.attempt(ctx, spec)
		if err := ctx.Err(); err != nil {
			return nil, &domain.CancelledError{Err: err}
		}

		switch outcome.Kind {
		case wire.KindReady:
			log.Debug("query ready", "attempts", ctrl.Attempts()+1, "rows", len(outcome.Result.Data))
			return outcome.Result, nil

		case wire.KindFatal:
			log.Debug("query rejected", "status", outcome.Status, "reason", outcome.Reason)
			return nil, &domain.FatalError{Status: outcome.Status, Body: outcome.Body, Reason: outcome.Reason}

		case wire.KindContinueWait, wire.KindRetryable:
			wait, err := ctrl.Next(outcome.Hint, outcome.Status, outcome.Body)
			if err != nil {
				return nil, err
			}
			// Backpressure and faults retry under the same budget but are
			// logged apart: one is the protocol working, the other is not.
			if outcome.Kind == wire.KindContinueWait {
				log.Debug("query not ready, polling", "attempt", ctrl.Attempts(), "wait", wait)
			} else {
				log.Warn("transient fault, retrying", "attempt", ctrl.Attempts(), "wait", wait,
					"status", outcome.Status, "reason", outcome.Reason)
			}
			if err := backoff.Sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}
}

// attempt performs one round trip and classifies the response. Transport
// faults become retryable outcomes; the poll controller decides their fate.
func (c *Client) attempt(ctx context.Context, spec *wire.RequestSpec) wire.Outcome {
	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, bytes.NewReader(spec.Body))
	if err != nil {
		return wire.TransportFailure(err)
	}
	req.Header = spec.Header.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wire.TransportFailure(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return wire.TransportFailure(err)
	}
	return wire.Interpret(resp.StatusCode, resp.Header, body)
}

func (c *Client) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return &domain.CancelledError{Err: ctx.Err()}
		}
		return &domain.CancelledError{Err: err}
	}
	return nil
}
