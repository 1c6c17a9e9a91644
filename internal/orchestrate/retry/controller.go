// Package retry drives repeated execution attempts across ordered strategy
// sequences, with per-identity circuit breaking between attempts.
package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/orchestrate/metrics"
)

// Operation is one unit of work driven by the controller. It is assumed to
// run to completion or fail; the controller enforces no timeout on it.
type Operation func(ctx context.Context) error

// Result aggregates the outcome of a full strategy sweep.
type Result struct {
	Success  bool
	Attempts int
	Strategy Kind
	Err      error
}

// Controller executes operations under the strategy sequences selected by
// its table, consulting the circuit breaker before every real attempt.
type Controller struct {
	cfg     Config
	table   Table
	breaker *Breaker

	// Injectable for tests; the inter-attempt sleep is the only place
	// execution pauses and must honor ctx cancellation.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewController creates a controller with the given strategy table and
// breaker. A nil table falls back to DefaultTable.
func NewController(cfg Config, table Table, breaker *Breaker) *Controller {
	if table == nil {
		table = DefaultTable()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	return &Controller{
		cfg:     cfg,
		table:   table,
		breaker: breaker,
		sleep:   sleepCtx,
		jitter:  rand.Float64,
	}
}

// Breaker exposes the controller's circuit breaker for health reporting.
func (c *Controller) Breaker() *Breaker { return c.breaker }

// SequenceFor returns the strategy sequence for an error category.
func (c *Controller) SequenceFor(category string) []Kind {
	return c.table.Sequence(category)
}

// Execute iterates the strategy sequence in order, running up to
// cfg.MaxAttempts attempts per strategy. An open breaker short-circuits the
// current strategy without consuming a real attempt. The first success clears
// the breaker and returns immediately; full exhaustion records one breaker
// failure and returns an ExhaustedError carrying the last observed error.
func (c *Controller) Execute(
	ctx context.Context,
	identity string,
	op Operation,
	strategies []Kind,
) Result {
	var lastErr error
	var attempts int
	var last Kind

	for _, kind := range strategies {
		last = kind

		for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
			if !c.breaker.Allow(identity) {
				lastErr = &domain.BreakerOpenError{Identity: identity}
				metrics.BreakerSkips.Inc()
				slog.Debug("attempt skipped, breaker open",
					"identity", identity,
					"strategy", kind,
				)
				break
			}

			err := op(ctx)
			attempts++
			if err == nil {
				c.breaker.RecordSuccess(identity)
				metrics.AttemptsTotal.WithLabelValues(string(kind), "success").Inc()
				return Result{Success: true, Attempts: attempts, Strategy: kind}
			}

			lastErr = err
			metrics.AttemptsTotal.WithLabelValues(string(kind), "failure").Inc()
			slog.Warn("attempt failed",
				"identity", identity,
				"strategy", kind,
				"attempt", attempt+1,
				"max_attempts", c.cfg.MaxAttempts,
				"error", err,
			)

			if attempt == c.cfg.MaxAttempts-1 {
				break
			}
			if delay := c.delayFor(kind, attempt); delay > 0 {
				if err := c.sleep(ctx, delay); err != nil {
					// Shutdown mid-backoff: stop the sweep and report
					// what we observed so far.
					c.breaker.RecordFailure(identity)
					return Result{
						Success:  false,
						Attempts: attempts,
						Strategy: kind,
						Err: &domain.ExhaustedError{
							Identity: identity,
							Attempts: attempts,
							Strategy: string(kind),
							Last:     err,
						},
					}
				}
			}
		}
	}

	c.breaker.RecordFailure(identity)
	return Result{
		Success:  false,
		Attempts: attempts,
		Strategy: last,
		Err: &domain.ExhaustedError{
			Identity: identity,
			Attempts: attempts,
			Strategy: string(last),
			Last:     lastErr,
		},
	}
}

// delayFor applies symmetric jitter to the strategy's computed delay,
// floored at zero.
func (c *Controller) delayFor(kind Kind, attempt int) time.Duration {
	delay := kind.Delay(attempt, c.cfg)
	if delay <= 0 {
		return 0
	}
	jittered := delay + time.Duration(float64(delay)*c.cfg.JitterFactor*(c.jitter()-0.5))
	if jittered < 0 {
		return 0
	}
	return jittered
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
