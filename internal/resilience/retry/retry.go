// Package retry re-invokes fallible operations with exponential backoff
// and additive jitter. It is generic over any zero-argument operation
// and consults the classifier to decide whether a failure is worth
// another attempt at all.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hotelops/stockpilot/internal/metrics"
	"github.com/hotelops/stockpilot/internal/resilience/classify"
)

// Classifier decides the taxonomy of a failure. Defaults to
// classify.Classify; injectable for tests.
type Classifier func(error) classify.Classification

// Config defines retry behavior.
type Config struct {
	// MaxRetries is the number of re-attempts after the first call, so
	// an operation runs at most MaxRetries+1 times.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Classify   Classifier
}

// DefaultConfig provides sensible defaults for ordinary operations.
var DefaultConfig = Config{
	MaxRetries: 3,
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   10 * time.Second,
}

// Abort marks err as non-retryable regardless of its classification.
// The coordinator unwraps the marker before returning, so callers see
// the original failure.
func Abort(err error) error {
	return &abortError{err}
}

type abortError struct {
	err error
}

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

// nonTransient types propagate immediately, without further attempts.
func nonTransient(t classify.Type) bool {
	switch t {
	case classify.TypeValidation, classify.TypeAuthorization, classify.TypeNotFound:
		return true
	}
	return false
}

// Do runs op until it succeeds, a non-transient failure occurs, the
// retry budget is exhausted, or ctx is cancelled.
func Do(ctx context.Context, cfg Config, op func(context.Context) error) error {
	_, err := DoValue(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](
	ctx context.Context,
	cfg Config,
	op func(context.Context) (T, error),
) (T, error) {
	classifier := cfg.Classify
	if classifier == nil {
		classifier = classify.Classify
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				metrics.RetryAttempts.WithLabelValues("recovered").Inc()
			}
			return result, nil
		}
		lastErr = err

		var abort *abortError
		if errors.As(err, &abort) {
			return zero, abort.err
		}
		if nonTransient(classifier(err).Type) {
			return zero, err
		}
		if attempt == cfg.MaxRetries {
			metrics.RetryAttempts.WithLabelValues("exhausted").Inc()
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(Backoff(attempt, cfg)):
		}
	}

	return zero, fmt.Errorf("failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

// Backoff computes the wait before the next attempt:
// min(BaseDelay * 2^attempt + jitter, MaxDelay). Jitter is additive, up
// to one BaseDelay, so concurrent clients don't retry in lockstep.
func Backoff(attempt int, cfg Config) time.Duration {
	exp := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	jitter := float64(0)
	if cfg.BaseDelay > 0 {
		jitter = float64(rand.Int63n(int64(cfg.BaseDelay)))
	}
	delay := exp + jitter
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
