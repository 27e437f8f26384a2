/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry retries idempotent host calls that fail transiently, such
// as rate limiting and 5xx responses, with jittered exponential backoff.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config configures retries.
type Config struct {
	// Attempts is the number of retries after the first call. Zero disables
	// retrying.
	Attempts int
	// Backoff is the wait before the first retry; it doubles on each retry.
	Backoff time.Duration
	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration
	// Jitter is the maximum random time added to each wait.
	Jitter time.Duration
}

// Default returns the configuration used by the hosts.
func Default() Config {
	return Config{
		Attempts:   3,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 10 * time.Second,
		Jitter:     250 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Attempts < 0 || c.Backoff < 0 || c.MaxBackoff < 0 || c.Jitter < 0 {
		return errors.New("retry configuration cannot be negative")
	}
	return nil
}

// wait returns the backoff before retry number attempt, counting from zero.
func (c Config) wait(attempt int) time.Duration {
	d := c.Backoff
	for i := 0; i < attempt && d < c.MaxBackoff; i++ {
		d *= 2
	}
	if d > c.MaxBackoff {
		d = c.MaxBackoff
	}
	if c.Jitter > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(c.Jitter))); err == nil {
			d += time.Duration(n.Int64())
		}
	}
	return d
}

// Do calls fn until it succeeds, fails with an error transient rejects, or
// the configured attempts run out.
func Do[T any](ctx context.Context, cfg Config, op string, transient func(error) bool, fn func() (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := fn()
		if err == nil || !transient(err) {
			return v, err
		}
		if attempt >= cfg.Attempts {
			return v, fmt.Errorf("%s failed after %d retries: %w", op, cfg.Attempts, err)
		}

		wait := cfg.wait(attempt)
		clog.FromContext(ctx).With("operation", op, "attempt", attempt+1, "backoff", wait).
			Warnf("Transient failure, retrying: %v", err)

		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-time.After(wait):
		}
	}
}
