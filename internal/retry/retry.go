// Package retry is the shared retry-with-backoff policy. Every
// network-facing call site (page fetch, calendar API) wraps its call
// through Do rather than rolling its own loop, so attempt counts and delays
// stay uniform across the codebase.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wltan/buskersync/internal/logger"
)

// Config parameterizes the policy: up to MaxAttempts tries, sleeping
// BaseDelay * 2^attempt between failures.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do runs fn under the backoff policy, re-returning the last error once
// attempts are exhausted. Errors wrapped with Permanent stop retrying
// immediately. A canceled ctx stops the schedule between attempts.
func Do(ctx context.Context, label string, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 5 * time.Second
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.BaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 15 * time.Minute
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.MaxAttempts-1)), ctx)

	return backoff.RetryNotify(fn, policy, func(err error, wait time.Duration) {
		logger.Warn("attempt failed, retrying", logger.Fields{
			"op":    label,
			"wait":  wait.String(),
			"error": err.Error(),
		})
	})
}

// Permanent marks err as non-retryable so Do returns it without further
// attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
