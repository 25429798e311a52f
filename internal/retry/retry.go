// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package retry provides a small retry-with-backoff utility shared by the
// outbound HTTP clients. It is parameterized by a total attempt budget, a
// linear backoff base delay, and a retryable-error predicate, built on
// cenkalti/backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures a retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the linear backoff unit: the wait before attempt n+1 is
	// n * BaseDelay (1x, 2x, ...).
	BaseDelay time.Duration
}

// linearBackOff implements backoff.BackOff with linearly growing delays.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.base
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// Do runs op until it succeeds, the attempt budget is exhausted, the
// context is canceled, or retryable returns false for the error. A nil
// retryable predicate treats every error as retryable. The last error is
// returned when all attempts fail.
func Do(ctx context.Context, p Policy, retryable func(error) bool, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{base: p.BaseDelay}, uint64(attempts-1)),
		ctx,
	)
	return backoff.Retry(wrapped, b)
}
