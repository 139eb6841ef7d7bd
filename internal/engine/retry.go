package engine

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/brfoley76/PromptingHumanAgent/internal/store"
)

// RetryConfig bounds how often a conflicting unit of work is re-run.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the production retry budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		InitialWait: 5 * time.Millisecond,
		MaxWait:     200 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// retry runs fn until it succeeds, fails with something other than a store
// conflict, or the budget is spent.
func (s *Service) retry(ctx context.Context, op string, fn func() error) error {
	cfg := s.retryCfg
	var lastErr error

	for attempt := range cfg.MaxAttempts {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		lastErr = err

		// Out of attempts; give up without sleeping.
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		wait := backoff(cfg, attempt)
		s.log.Debug("store conflict, retrying", "op", op, "attempt", attempt+1, "wait", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return &StorageUnavailableError{Op: op, Attempts: cfg.MaxAttempts, Err: lastErr}
}

// backoff computes the wait duration for the given attempt.
func backoff(cfg RetryConfig, attempt int) time.Duration {
	wait := float64(cfg.InitialWait) * math.Pow(cfg.Multiplier, float64(attempt))
	if wait > float64(cfg.MaxWait) {
		wait = float64(cfg.MaxWait)
	}

	// Add ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
