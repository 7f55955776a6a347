package repo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tbourn/go-xp-backend/internal/domain"
)

func TestCheckAndIncrementDailyLimit_Cap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		count, allowed, err := CheckAndIncrementDailyLimit(ctx, db, "u1", domain.LimitMessages, "2026-08-31", 10)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("call %d should be allowed", i)
		}
		if count != i {
			t.Fatalf("call %d: count = %d, want %d", i, count, i)
		}
	}

	// The 11th consumption of the day is denied and the counter stays put.
	count, allowed, err := CheckAndIncrementDailyLimit(ctx, db, "u1", domain.LimitMessages, "2026-08-31", 10)
	if err != nil {
		t.Fatalf("11th call: %v", err)
	}
	if allowed {
		t.Fatalf("11th call must be denied")
	}
	if count != 10 {
		t.Fatalf("denied call moved the counter: %d", count)
	}
}

func TestCheckAndIncrementDailyLimit_DayRollover(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, _, err := CheckAndIncrementDailyLimit(ctx, db, "u1", domain.LimitReactions, "2026-08-31", 10); err != nil {
			t.Fatalf("seed day one: %v", err)
		}
	}
	if _, allowed, _ := CheckAndIncrementDailyLimit(ctx, db, "u1", domain.LimitReactions, "2026-08-31", 10); allowed {
		t.Fatalf("day one should be exhausted")
	}

	// New calendar day resets the counter in place.
	count, allowed, err := CheckAndIncrementDailyLimit(ctx, db, "u1", domain.LimitReactions, "2026-09-01", 10)
	if err != nil {
		t.Fatalf("rollover call: %v", err)
	}
	if !allowed || count != 1 {
		t.Fatalf("rollover: allowed=%v count=%d, want true/1", allowed, count)
	}

	row, err := GetDailyLimit(ctx, db, "u1", domain.LimitReactions)
	if err != nil {
		t.Fatalf("get limit row: %v", err)
	}
	if row.Date != "2026-09-01" || row.Count != 1 {
		t.Fatalf("unexpected row after rollover: %+v", row)
	}
}

func TestCheckAndIncrementDailyLimit_CategoriesIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, _, err := CheckAndIncrementDailyLimit(ctx, db, "u1", domain.LimitMessages, "2026-08-31", 10); err != nil {
			t.Fatalf("messages: %v", err)
		}
	}
	// Messages exhausted, reactions untouched.
	_, allowed, err := CheckAndIncrementDailyLimit(ctx, db, "u1", domain.LimitReactions, "2026-08-31", 10)
	if err != nil {
		t.Fatalf("reactions: %v", err)
	}
	if !allowed {
		t.Fatalf("reaction allowance must not be consumed by messages")
	}
}

func TestCheckAndIncrementDailyLimit_Concurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	granted := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var allowed bool
			err := WithRetry(ctx, "limit.consume", func(ctx context.Context) error {
				var err error
				_, allowed, err = CheckAndIncrementDailyLimit(ctx, db, "u1", domain.LimitMessages, "2026-08-31", 10)
				return err
			})
			if err != nil {
				t.Errorf("concurrent consume: %v", err)
				return
			}
			granted <- allowed
		}()
	}
	wg.Wait()
	close(granted)

	got := 0
	for allowed := range granted {
		if allowed {
			got++
		}
	}
	if got != 10 {
		t.Fatalf("exactly 10 grants expected under contention, got %d", got)
	}
}

func TestGetDailyLimit_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := GetDailyLimit(context.Background(), db, "ghost", domain.LimitMessages); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
