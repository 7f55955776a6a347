package repo

import (
	"context"
	"errors"
	"testing"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), "test.op", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetry_NonTransientFailsImmediately(t *testing.T) {
	sentinel := errors.New("amount must be positive")
	attempts := 0
	err := WithRetry(context.Background(), "test.op", func(ctx context.Context) error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel to pass through, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("non-transient error must not be retried; attempts = %d", attempts)
	}
}

func TestWithRetry_GivesUpAfterCap(t *testing.T) {
	transient := errors.New("deadlock detected")
	attempts := 0
	err := WithRetry(context.Background(), "test.op", func(ctx context.Context) error {
		attempts++
		return transient
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if !errors.Is(err, transient) {
		t.Fatalf("wrapped error should unwrap to the last failure, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", attempts)
	}
}

func TestWithRetry_ContextCancelShortCircuits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithRetry(ctx, "test.op", func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("database is locked")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("cancelled context must stop retrying; attempts = %d", attempts)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("database table is locked"), true},
		{errors.New("deadlock detected"), true},
		{errors.New("could not serialize access due to serialization failure"), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("driver: bad connection"), true},
		{errors.New("UNIQUE constraint failed: audit_transactions.source_identifier"), false},
		{errors.New("user not found"), false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
	}
	for _, c := range cases {
		if got := IsTransient(c.err); got != c.want {
			t.Errorf("IsTransient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestIsDuplicate(t *testing.T) {
	if !IsDuplicate(errors.New("UNIQUE constraint failed: achievements.user_id, achievements.type")) {
		t.Fatalf("sqlite unique violation should classify as duplicate")
	}
	if !IsDuplicate(errors.New(`duplicate key value violates unique constraint "ux_achievement_user_type"`)) {
		t.Fatalf("postgres unique violation should classify as duplicate")
	}
	if IsDuplicate(errors.New("some other failure")) {
		t.Fatalf("unrelated error must not classify as duplicate")
	}
	if IsDuplicate(nil) {
		t.Fatalf("nil must not classify as duplicate")
	}
}
