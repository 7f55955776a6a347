package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-xp-backend/internal/domain"
	"github.com/tbourn/go-xp-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newLedger(db *gorm.DB) *LedgerService {
	return &LedgerService{
		DB:     db,
		Config: &XPConfigService{DB: db},
		Log:    zerolog.Nop(),
	}
}

func seedUser(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	u := &domain.User{ID: id, Username: id, CreatedAt: time.Now().UTC().AddDate(0, 0, -1)}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func TestAddPoints_Validation(t *testing.T) {
	svc := newLedger(newTestDB(t))
	ctx := context.Background()

	if _, err := svc.AddPoints(ctx, AddPointsRequest{Source: "manual", Amount: 10}); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("empty user: got %v", err)
	}
	if _, err := svc.AddPoints(ctx, AddPointsRequest{UserID: "u1", Amount: 10}); !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("empty source: got %v", err)
	}
	if _, err := svc.AddPoints(ctx, AddPointsRequest{UserID: "u1", Source: "manual", Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	if _, err := svc.AddPoints(ctx, AddPointsRequest{UserID: "u1", Source: "manual", Amount: -5}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative amount: got %v", err)
	}
}

func TestAddPoints_UserNotFound(t *testing.T) {
	svc := newLedger(newTestDB(t))
	_, err := svc.AddPoints(context.Background(), AddPointsRequest{
		UserID: "ghost", Source: domain.SourceManual, Amount: 10, UniqueID: "k1",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAddPoints_CreditsAndLevels(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	res, err := svc.AddPoints(ctx, AddPointsRequest{
		UserID: "u1", Source: domain.SourceManual, Amount: 450, Reason: "import", UniqueID: "import-1",
	})
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	if res.Duplicate || res.NewBalance != 450 || res.Level != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}

	bal, err := repo.GetBalance(ctx, db, "u1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.TotalXP != 450 || bal.Level != 3 || bal.LevelXP != 68 {
		t.Fatalf("balance = %+v", bal)
	}

	audit, err := repo.GetAudit(ctx, db, res.AuditID)
	if err != nil {
		t.Fatalf("get audit: %v", err)
	}
	if audit.Status != domain.StatusConfirmed || audit.BalanceBefore != 0 || audit.BalanceAfter != 450 {
		t.Fatalf("audit = %+v", audit)
	}

	hist, err := repo.RecentHistory(ctx, db, "u1", 10)
	if err != nil || len(hist) != 1 {
		t.Fatalf("history = %v (%v)", hist, err)
	}
	if hist[0].Amount != 450 || hist[0].AuditID != res.AuditID {
		t.Fatalf("history entry = %+v", hist[0])
	}
}

func TestAddPoints_IdempotentReplay(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	req := AddPointsRequest{
		UserID: "u1", Source: domain.SourceCoffeeMade, Amount: 50, SourceID: "c1",
	}
	first, err := svc.AddPoints(ctx, req)
	if err != nil {
		t.Fatalf("first credit: %v", err)
	}
	second, err := svc.AddPoints(ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if !second.Duplicate {
		t.Fatalf("replay not flagged duplicate: %+v", second)
	}
	if second.AuditID != first.AuditID {
		t.Fatalf("replay audit %s != original %s", second.AuditID, first.AuditID)
	}
	if second.NewBalance != 50 {
		t.Fatalf("balance changed on replay: %d", second.NewBalance)
	}

	var n int64
	db.Model(&domain.AuditTransaction{}).Where("user_id = ?", "u1").Count(&n)
	if n != 1 {
		t.Fatalf("audit rows = %d, want 1", n)
	}
}

func TestAddPoints_DistinctReactionsOnSameMessage(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	for _, emoji := range []string{"fire", "clap", "fire"} {
		if _, err := svc.AddPoints(ctx, AddPointsRequest{
			UserID: "u1", Source: domain.SourceReactionReceived, Amount: 5,
			SourceID: "m1", Metadata: domain.Metadata{ReactionType: emoji},
		}); err != nil {
			t.Fatalf("credit %s: %v", emoji, err)
		}
	}

	bal, _ := repo.GetBalance(ctx, db, "u1")
	if bal.TotalXP != 10 {
		t.Fatalf("balance = %d, want 10 (fire replay suppressed)", bal.TotalXP)
	}
}

func TestAddPoints_ConcurrentDistinctEvents(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	const n = 8
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AddPoints(ctx, AddPointsRequest{
				UserID: "u1", Source: domain.SourceCoffeeMade, Amount: 10,
				SourceID: fmt.Sprintf("c-%d", i),
			})
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent credit: %v", err)
		}
	}

	bal, _ := repo.GetBalance(ctx, db, "u1")
	if bal.TotalXP != n*10 {
		t.Fatalf("balance = %d, want %d", bal.TotalXP, n*10)
	}
}

func TestRemovePoints_ReversesOnce(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	res, err := svc.AddPoints(ctx, AddPointsRequest{
		UserID: "u1", Source: domain.SourceCoffeeMade, Amount: 50, SourceID: "c1",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	rev, err := svc.RemovePoints(ctx, res.AuditID, "mistake")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if rev.NewBalance != 0 || rev.Amount != 50 {
		t.Fatalf("reversal = %+v", rev)
	}

	audit, _ := repo.GetAudit(ctx, db, res.AuditID)
	if audit.Status != domain.StatusReversed || audit.ReversedAt == nil || audit.ReversedReason != "mistake" {
		t.Fatalf("audit after reversal = %+v", audit)
	}

	if _, err := svc.RemovePoints(ctx, res.AuditID, "again"); !errors.Is(err, ErrAlreadyReversed) {
		t.Fatalf("double reversal: got %v", err)
	}

	// The key is released: the same coffee can be credited again.
	again, err := svc.AddPoints(ctx, AddPointsRequest{
		UserID: "u1", Source: domain.SourceCoffeeMade, Amount: 50, SourceID: "c1",
	})
	if err != nil || again.Duplicate {
		t.Fatalf("re-earn after reversal: %+v (%v)", again, err)
	}
}

func TestRemovePoints_NotFoundAndNotReversible(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	if _, err := svc.RemovePoints(ctx, "missing", ""); !errors.Is(err, ErrAuditNotFound) {
		t.Fatalf("missing audit: got %v", err)
	}

	pending := &domain.AuditTransaction{
		ID: uuid.NewString(), UserID: "u1", Amount: 10, Reason: "stuck",
		Source: domain.SourceManual, SourceIdentifier: "u1:manual:unique-x",
		Status: domain.StatusPending, CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateAudit(db, pending); err != nil {
		t.Fatalf("seed pending: %v", err)
	}
	if _, err := svc.RemovePoints(ctx, pending.ID, ""); !errors.Is(err, ErrNotReversible) {
		t.Fatalf("pending reversal: got %v", err)
	}
}

func TestRemovePoints_FloorsAtZero(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	res, err := svc.AddPoints(ctx, AddPointsRequest{
		UserID: "u1", Source: domain.SourceCoffeeMade, Amount: 50, SourceID: "c1",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	// Simulate external tampering dropping the cache below the credit.
	if err := db.Model(&domain.Balance{}).Where("user_id = ?", "u1").Update("total_xp", 10).Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}

	rev, err := svc.RemovePoints(ctx, res.AuditID, "cleanup")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if rev.NewBalance != 0 || rev.Level != 1 {
		t.Fatalf("reversal = %+v, want floor at 0", rev)
	}
}

func TestCheckAndUpdateDailyLimit_Caps(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		st, err := svc.CheckAndUpdateDailyLimit(ctx, "u1", domain.LimitMessages)
		if err != nil {
			t.Fatalf("limit %d: %v", i, err)
		}
		if !st.Allowed || st.Count != i {
			t.Fatalf("attempt %d: %+v", i, st)
		}
	}

	st, err := svc.CheckAndUpdateDailyLimit(ctx, "u1", domain.LimitMessages)
	if err != nil {
		t.Fatalf("11th: %v", err)
	}
	if st.Allowed || st.Remaining != 0 {
		t.Fatalf("11th should be denied: %+v", st)
	}

	// Reactions count separately.
	st, err = svc.CheckAndUpdateDailyLimit(ctx, "u1", domain.LimitReactions)
	if err != nil || !st.Allowed {
		t.Fatalf("reactions should start fresh: %+v (%v)", st, err)
	}
}

func TestRecordMessage_LimitReached(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	svc.DailyMessageLimit = 2
	ctx := context.Background()
	seedUser(t, db, "u1")

	for i := 0; i < 2; i++ {
		res, err := svc.RecordMessage(ctx, "u1", fmt.Sprintf("m-%d", i))
		if err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if res.LimitReached {
			t.Fatalf("message %d unexpectedly limited", i)
		}
	}

	res, err := svc.RecordMessage(ctx, "u1", "m-over")
	if err != nil {
		t.Fatalf("over-limit message: %v", err)
	}
	if !res.LimitReached || res.AuditID != "" {
		t.Fatalf("over-limit result = %+v", res)
	}

	// The message itself is still recorded for stats.
	var n int64
	db.Model(&domain.ChatMessage{}).Where("user_id = ?", "u1").Count(&n)
	if n != 3 {
		t.Fatalf("messages = %d, want 3", n)
	}

	bal, _ := repo.GetBalance(ctx, db, "u1")
	if bal.TotalXP != 2 {
		t.Fatalf("balance = %d, want 2", bal.TotalXP)
	}
}

func TestAddPoints_ReplayDoesNotBurnDailySlot(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	req := AddPointsRequest{
		UserID: "u1", Source: domain.SourceMessageSent, Amount: 1,
		SourceID: "m1", LimitCategory: domain.LimitMessages,
	}
	if _, err := svc.AddPoints(ctx, req); err != nil {
		t.Fatalf("first credit: %v", err)
	}
	for i := 0; i < 3; i++ {
		res, err := svc.AddPoints(ctx, req)
		if err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
		if !res.Duplicate {
			t.Fatalf("replay %d not flagged duplicate: %+v", i, res)
		}
	}

	row, err := repo.GetDailyLimit(ctx, db, "u1", domain.LimitMessages)
	if err != nil {
		t.Fatalf("daily limit row: %v", err)
	}
	if row.Count != 1 {
		t.Fatalf("slot count = %d after replays, want 1", row.Count)
	}
}

func TestAddPoints_FaultRollsBackAtomically(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	// Fail the history insert so the credit dies mid-transaction.
	err := db.Callback().Create().Before("gorm:create").Register("history_fault", func(tx *gorm.DB) {
		if tx.Statement != nil && tx.Statement.Table == "balance_history" {
			tx.AddError(errors.New("disk full"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	req := AddPointsRequest{
		UserID: "u1", Source: domain.SourceMessageSent, Amount: 1,
		SourceID: "m1", LimitCategory: domain.LimitMessages,
	}
	if _, err := svc.AddPoints(ctx, req); err == nil {
		t.Fatalf("expected credit to fail")
	}

	// Nothing partial survives: no audit row, no balance, no burned slot.
	var n int64
	db.Model(&domain.AuditTransaction{}).Where("user_id = ?", "u1").Count(&n)
	if n != 0 {
		t.Fatalf("audit rows = %d after rollback, want 0", n)
	}
	if _, err := repo.GetBalance(ctx, db, "u1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("balance survived rollback: %v", err)
	}
	if _, err := repo.GetDailyLimit(ctx, db, "u1", domain.LimitMessages); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("daily slot survived rollback: %v", err)
	}

	// With the fault gone the same event credits cleanly.
	if err := db.Callback().Create().Remove("history_fault"); err != nil {
		t.Fatalf("remove callback: %v", err)
	}
	res, err := svc.AddPoints(ctx, req)
	if err != nil || res.Duplicate {
		t.Fatalf("retry after fault: %+v (%v)", res, err)
	}
	if res.NewBalance != 1 {
		t.Fatalf("balance = %d, want 1", res.NewBalance)
	}
}

func TestRecordRating_CreditsBothSides(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "rater")
	seedUser(t, db, "brewer")

	if _, err := svc.RecordRating(ctx, "rater", "brewer", "c1", 7); !errors.Is(err, ErrInvalidStars) {
		t.Fatalf("invalid stars: got %v", err)
	}

	if _, err := svc.RecordRating(ctx, "rater", "brewer", "c1", 5); err != nil {
		t.Fatalf("rate: %v", err)
	}

	raterBal, _ := repo.GetBalance(ctx, db, "rater")
	brewerBal, _ := repo.GetBalance(ctx, db, "brewer")
	if raterBal.TotalXP != 15 {
		t.Fatalf("rater balance = %d, want 15", raterBal.TotalXP)
	}
	if brewerBal.TotalXP != 30 {
		t.Fatalf("brewer balance = %d, want 30", brewerBal.TotalXP)
	}
}

func TestRecordReaction_CreditsReactorAndRecipient(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "reactor")
	seedUser(t, db, "author")

	res, err := svc.RecordReaction(ctx, "reactor", "author", "m1", "fire")
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if res.LimitReached {
		t.Fatalf("unexpected limit: %+v", res)
	}

	reactorBal, _ := repo.GetBalance(ctx, db, "reactor")
	authorBal, _ := repo.GetBalance(ctx, db, "author")
	if reactorBal.TotalXP != 3 || authorBal.TotalXP != 5 {
		t.Fatalf("balances reactor=%d author=%d, want 3/5", reactorBal.TotalXP, authorBal.TotalXP)
	}
}

func TestRecordReaction_DistinctReactorsCreditRecipient(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "r1")
	seedUser(t, db, "r2")
	seedUser(t, db, "author")

	// Two different people fire the same emoji at the same message.
	if _, err := svc.RecordReaction(ctx, "r1", "author", "m1", "fire"); err != nil {
		t.Fatalf("first reaction: %v", err)
	}
	if _, err := svc.RecordReaction(ctx, "r2", "author", "m1", "fire"); err != nil {
		t.Fatalf("second reaction: %v", err)
	}

	authorBal, _ := repo.GetBalance(ctx, db, "author")
	if authorBal.TotalXP != 10 {
		t.Fatalf("author balance = %d, want 10", authorBal.TotalXP)
	}
}

func TestAddDailyLoginPoints_OncePerDay(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	first, err := svc.AddDailyLoginPoints(ctx, "u1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	second, err := svc.AddDailyLoginPoints(ctx, "u1")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.Duplicate || !second.Duplicate {
		t.Fatalf("first=%+v second=%+v", first, second)
	}
}

func TestAddManualPoints_IdempotencyKey(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	first, err := svc.AddManualPoints(ctx, "u1", 100, "bonus", "req-1")
	if err != nil {
		t.Fatalf("manual: %v", err)
	}
	replay, err := svc.AddManualPoints(ctx, "u1", 100, "bonus", "req-1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.Duplicate || replay.AuditID != first.AuditID {
		t.Fatalf("replay = %+v", replay)
	}

	fresh, err := svc.AddManualPoints(ctx, "u1", 100, "bonus", "req-2")
	if err != nil || fresh.Duplicate {
		t.Fatalf("fresh key: %+v (%v)", fresh, err)
	}
}

func TestGetUserPoints_Projection(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	if _, err := svc.GetUserPoints(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ghost: got %v", err)
	}

	// No credits yet: zero XP, level 1.
	p, err := svc.GetUserPoints(ctx, "u1")
	if err != nil {
		t.Fatalf("fresh projection: %v", err)
	}
	if p.TotalXP != 0 || p.Level != 1 || p.XPToNext != 100 {
		t.Fatalf("fresh projection = %+v", p)
	}

	if _, err := svc.AddPoints(ctx, AddPointsRequest{
		UserID: "u1", Source: domain.SourceManual, Amount: 450, UniqueID: "k1",
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	p, err = svc.GetUserPoints(ctx, "u1")
	if err != nil {
		t.Fatalf("projection: %v", err)
	}
	if p.TotalXP != 450 || p.Level != 3 || p.LevelXP != 68 {
		t.Fatalf("projection = %+v", p)
	}
	if p.XPToNext != 451 { // next level at cumulative 901
		t.Fatalf("xp to next = %d, want 451", p.XPToNext)
	}
	if len(p.Recent) != 1 {
		t.Fatalf("recent = %v", p.Recent)
	}
}

func TestRecalculateLevel_SelfHeals(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	if _, err := svc.RecalculateLevel(ctx, "ghost"); !errors.Is(err, ErrBalanceNotFound) {
		t.Fatalf("ghost: got %v", err)
	}

	if _, err := svc.AddPoints(ctx, AddPointsRequest{
		UserID: "u1", Source: domain.SourceManual, Amount: 450, UniqueID: "k1",
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	// Corrupt the derived columns.
	db.Model(&domain.Balance{}).Where("user_id = ?", "u1").
		Updates(map[string]any{"level": 42, "level_xp": 9999})

	bal, err := svc.RecalculateLevel(ctx, "u1")
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if bal.Level != 3 || bal.LevelXP != 68 {
		t.Fatalf("healed balance = %+v", bal)
	}
}
