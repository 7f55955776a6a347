// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the retry combinator wrapping every
// write path: transient storage failures (lock contention, serialization
// conflicts, dropped connections) are retried with exponential backoff and
// jitter, while domain errors and duplicates surface immediately.
package repo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	// retryAttempts caps how often an operation is tried in total.
	retryAttempts = 3
	// retryBaseDelay is the wait before the second attempt; it doubles on
	// every further attempt.
	retryBaseDelay = 100 * time.Millisecond
	// retryMaxJitter is added to each wait to de-synchronize competing
	// writers.
	retryMaxJitter = 50 * time.Millisecond
)

// IsTransient reports whether err looks like a temporary storage failure
// worth retrying. Unique violations are deliberately not transient: they are
// how idempotency conflicts surface.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsDuplicate(err) {
		return false
	}

	low := strings.ToLower(err.Error())
	for _, marker := range []string{
		"database is locked",  // sqlite lock contention
		"database table is locked",
		"busy",                // SQLITE_BUSY
		"deadlock",            // pg deadlock_detected
		"serialization",       // pg serialization_failure
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"bad connection",
	} {
		if strings.Contains(low, marker) {
			return true
		}
	}
	return false
}

// WithRetry runs fn up to retryAttempts times, backing off exponentially
// between attempts. It returns nil as soon as fn succeeds, fn's error
// unchanged when it is not transient, and a wrapped error naming op once
// the attempts are exhausted. Context cancellation always wins over a
// pending retry.
func WithRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !IsTransient(err) {
			return err
		}
		if attempt == retryAttempts {
			break
		}

		delay := retryBaseDelay<<(attempt-1) + time.Duration(rand.Int63n(int64(retryMaxJitter)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", op, retryAttempts, err)
}
