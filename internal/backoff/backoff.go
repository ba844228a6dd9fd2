// Package backoff owns the polling state machine: how long to wait between
// attempts and when to give up. Isolating it here keeps the retry policy
// tunable and testable independently of encoding and transport.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"

	"cubeclient/domain"
)

// Policy configures the retry/backoff behavior of one executor. All fields
// are required; Validate rejects configurations that could hammer the server
// or loop forever.
type Policy struct {
	// Base is the wait before the first retry.
	Base time.Duration
	// Multiplier grows the wait exponentially per attempt.
	Multiplier float64
	// Cap bounds every computed wait and every server-supplied hint.
	Cap time.Duration
	// MaxAttempts bounds the total number of requests issued.
	MaxAttempts int
	// MaxElapsed bounds the cumulative time spent polling.
	MaxElapsed time.Duration
}

// Validate checks the policy is internally consistent.
func (p Policy) Validate() error {
	if p.Base <= 0 {
		return domain.ErrValidation("backoff: base must be > 0, got %s", p.Base)
	}
	if p.Multiplier < 1 {
		return domain.ErrValidation("backoff: multiplier must be >= 1, got %g", p.Multiplier)
	}
	if p.Cap < p.Base {
		return domain.ErrValidation("backoff: cap %s must be >= base %s", p.Cap, p.Base)
	}
	if p.MaxAttempts < 1 {
		return domain.ErrValidation("backoff: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.MaxElapsed <= 0 {
		return domain.ErrValidation("backoff: max elapsed must be > 0, got %s", p.MaxElapsed)
	}
	return nil
}

// Controller tracks the poll state of a single execution. It is created per
// call, never shared, and discarded when the call returns.
type Controller struct {
	policy  Policy
	attempt int
	started time.Time

	// injectable for deterministic tests
	now    func() time.Time
	jitter func() float64
}

// NewController starts the state machine for one execution.
func NewController(policy Policy) *Controller {
	return &Controller{
		policy:  policy,
		started: time.Now(),
		now:     time.Now,
		jitter:  rand.Float64,
	}
}

// Next records one non-terminal attempt and returns the wait before the next
// request. A non-nil error is a *domain.TimeoutError: the attempt or elapsed
// budget is exhausted and no further request may be issued.
//
// The wait is min(Base * Multiplier^(attempt-1), Cap) with full jitter added
// in [0, wait), unless the server supplied a hint: hints take precedence,
// clamped into [0, Cap], with no jitter since they are already a
// coordination signal from the server.
func (c *Controller) Next(hint *time.Duration, lastStatus int, lastBody string) (time.Duration, error) {
	c.attempt++
	elapsed := c.now().Sub(c.started)
	if c.attempt >= c.policy.MaxAttempts || elapsed > c.policy.MaxElapsed {
		return 0, &domain.TimeoutError{
			Attempts:   c.attempt,
			Elapsed:    elapsed,
			LastStatus: lastStatus,
			LastBody:   lastBody,
		}
	}

	if hint != nil {
		return clamp(*hint, 0, c.policy.Cap), nil
	}

	wait := float64(c.policy.Base) * math.Pow(c.policy.Multiplier, float64(c.attempt-1))
	wait = math.Min(wait, float64(c.policy.Cap))
	wait += c.jitter() * wait
	return time.Duration(wait), nil
}

// Attempts returns the number of non-terminal attempts recorded so far.
func (c *Controller) Attempts() int { return c.attempt }

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// Sleep suspends for d or until ctx is cancelled, whichever comes first.
// Cancellation surfaces as a *domain.CancelledError so no retry outlives the
// caller.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return &domain.CancelledError{Err: err}
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &domain.CancelledError{Err: ctx.Err()}
	case <-timer.C:
		return nil
	}
}
