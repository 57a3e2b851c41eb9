// Package retry retries the search backend calls the lifecycle controller
// must not give up on during startup — create_index and delete_index — with
// exponential backoff, so a search backend that's still coming up doesn't
// fail the whole indexer's boot sequence.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy controls how a startup call against the search backend is retried.
type Policy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// StartupPolicy is what the lifecycle controller uses for create_index and
// delete_index: patient enough to ride out a search backend that's still
// initializing its own cluster state.
func StartupPolicy() Policy {
	return Policy{
		MaxAttempts:   10,
		BaseDelay:     2 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Do calls fn, retrying under policy until it succeeds, ctx is cancelled, or
// attempts are exhausted. call names the search-backend operation being
// retried (e.g. "create_index") for log correlation.
func Do(ctx context.Context, policy Policy, logger *zap.Logger, call string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: retry cancelled: %w", call, ctx.Err())
		default:
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("search backend call succeeded after retrying",
					zap.String("call", call),
					zap.Int("attempts", attempt))
			}
			return nil
		}

		if attempt == policy.MaxAttempts {
			return fmt.Errorf("%s: search backend unreachable after %d attempts: %w", call, policy.MaxAttempts, lastErr)
		}

		delay := nextDelay(policy, attempt)
		logger.Warn("search backend call failed, retrying",
			zap.String("call", call),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", policy.MaxAttempts),
			zap.Duration("retryIn", delay),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: retry cancelled: %w", call, ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastErr
}

// nextDelay computes the exponential backoff for the given attempt, capped
// at policy.MaxDelay and randomized by +/-15% when policy.Jitter is set, so
// a fleet of indexers restarted together doesn't hammer the search backend
// in lockstep.
func nextDelay(policy Policy, attempt int) time.Duration {
	delay := float64(policy.BaseDelay) * math.Pow(policy.BackoffFactor, float64(attempt-1))
	if delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}

	if policy.Jitter {
		jitter := rand.Float64() * 0.3 * delay
		delay = delay + jitter - (0.15 * delay)
	}

	return time.Duration(delay)
}
