// Package resilience owns the retry budget for every external list call.
// Each call site declares whether its data is primary (the run cannot
// proceed without it) or secondary (absence degrades the dataset to empty),
// and receives an explicit three-way outcome to branch on.
package resilience

import (
	"context"
	"math"
	"time"

	"github.com/fabricmgr/fabricmgr/internal/apperrors"
	"github.com/fabricmgr/fabricmgr/internal/logger"
)

// Category classifies what exhausting the retry budget means for a call.
type Category int

const (
	// Primary data is required: exhaustion yields a fatal outcome.
	Primary Category = iota
	// Secondary data is best-effort: exhaustion degrades to an empty set.
	Secondary
)

// Status is the explicit result classification of a collection call.
type Status int

const (
	// StatusOK means the call succeeded within the budget.
	StatusOK Status = iota
	// StatusDegraded means a secondary call exhausted its budget and the
	// caller should proceed with an empty result set.
	StatusDegraded
	// StatusFatal means a primary call exhausted its budget.
	StatusFatal
)

// Outcome is the result of one resilient collection call. Callers branch on
// the status explicitly; there is no implicit propagation.
type Outcome[T any] struct {
	Status   Status
	Items    []T
	Attempts int
	Reason   string
	Err      error
}

// OK reports a successful collection.
func (o Outcome[T]) OK() bool { return o.Status == StatusOK }

// Degraded reports a secondary collection that fell back to empty.
func (o Outcome[T]) Degraded() bool { return o.Status == StatusDegraded }

// Fatal reports a primary collection that exhausted its budget.
func (o Outcome[T]) Fatal() bool { return o.Status == StatusFatal }

// Policy holds the retry budget for a single external call.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	// Sleep waits between attempts. Nil means a context-aware real sleep;
	// tests inject a recorder here.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the standard budget: three attempts with backoff
// delays of 1s then 2s before the retries.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
	}
}

// delayFor returns the backoff delay before the given attempt (attempt >= 2):
// InitialDelay * Multiplier^(attempt-2).
func (p Policy) delayFor(attempt int) time.Duration {
	return time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-2)))
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Collector applies one policy to every call made through it.
type Collector struct {
	log    logger.Logger
	policy Policy
}

// New creates a collector with the given policy.
func New(log logger.Logger, policy Policy) *Collector {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Collector{log: log, policy: policy}
}

// Collect runs fn under the collector's retry budget. Every failed attempt
// logs a warning; exhaustion logs an error and classifies per category:
// Primary becomes a fatal outcome carrying an external-service error,
// Secondary becomes a degraded outcome with an empty item set.
func Collect[T any](ctx context.Context, c *Collector, operation string, category Category, fn func(context.Context) ([]T, error)) Outcome[T] {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.policy.sleep(ctx, c.policy.delayFor(attempt)); err != nil {
				lastErr = err
				break
			}
		}

		attempts = attempt
		items, err := fn(ctx)
		if err == nil {
			return Outcome[T]{Status: StatusOK, Items: items, Attempts: attempt}
		}
		lastErr = err
		c.log.Warn("collection attempt failed",
			logger.String("operation", operation),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", c.policy.MaxAttempts),
			logger.Err(err))
	}

	c.log.Error("collection failed, retry budget exhausted",
		logger.String("operation", operation),
		logger.Int("attempts", attempts),
		logger.Err(lastErr))

	if category == Secondary {
		return Outcome[T]{
			Status:   StatusDegraded,
			Attempts: attempts,
			Reason:   operation + ": " + lastErr.Error(),
		}
	}
	return Outcome[T]{
		Status:   StatusFatal,
		Attempts: attempts,
		Err:      apperrors.WrapExternalService(lastErr, operation),
	}
}
