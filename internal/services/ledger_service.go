// Package services – LedgerService
//
// This file implements the XP transaction ledger. Every credit runs as one
// atomic database unit: duplicate detection, lazy balance creation, the
// pending audit row, the level recomputation, and the confirmation all
// commit or roll back together. The whole unit is wrapped in the repo retry
// combinator so transient storage failures replay safely; the dedupe key
// guarantees a replay can never double-credit.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-xp-backend/internal/domain"
	"github.com/tbourn/go-xp-backend/internal/levels"
	"github.com/tbourn/go-xp-backend/internal/repo"
)

// tracer instruments the service-level spans.
var tracer = otel.Tracer("github.com/tbourn/go-xp-backend/internal/services")

// errConcurrentCredit signals that another writer inserted the same dedupe
// key between our lookup and our insert. Internal to the credit path.
var errConcurrentCredit = errors.New("concurrent credit for same source")

// errDailyCapReached aborts the credit transaction when the per-category
// daily allowance is exhausted. It surfaces as a LimitReached result, not as
// an error. Internal to the credit path.
var errDailyCapReached = errors.New("daily cap reached")

// LedgerService implements the use-cases around XP accounting. It validates
// requests, enforces idempotency and daily caps, and keeps the cached
// balance consistent with the audit log.
type LedgerService struct {
	// DB is the database handle used for all ledger operations.
	DB *gorm.DB
	// Config resolves live XP amounts per action and rarity.
	Config *XPConfigService
	// Log is the service logger; request-scoped loggers are passed via ctx
	// at the transport layer, this one covers background callers.
	Log zerolog.Logger

	// DailyMessageLimit caps message credits per user per UTC day.
	// Zero means the default of 10.
	DailyMessageLimit int
	// DailyReactionLimit caps reaction-given credits per user per UTC day.
	// Zero means the default of 10.
	DailyReactionLimit int
}

// AddPointsRequest describes one credit event.
type AddPointsRequest struct {
	UserID   string
	Source   string
	Amount   int
	Reason   string
	SourceID string
	// UniqueID disambiguates events without a natural SourceID (manual
	// awards, daily logins). It becomes part of the dedupe key.
	UniqueID string
	Metadata domain.Metadata
	// LimitCategory, when set, consumes one unit of that daily allowance
	// inside the credit transaction. Duplicate replays short-circuit before
	// the slot is consumed, and a failed credit rolls the slot back.
	LimitCategory string
}

// CreditResult is the outcome of a credit attempt. Duplicate marks an
// idempotent replay (the prior credit is echoed); LimitReached marks a
// daily-cap denial. Both are successes, not errors.
type CreditResult struct {
	AuditID      string       `json:"audit_id,omitempty"`
	UserID       string       `json:"user_id"`
	Amount       int          `json:"amount"`
	NewBalance   int          `json:"new_balance"`
	Level        int          `json:"level"`
	Duplicate    bool         `json:"duplicate,omitempty"`
	LimitReached bool         `json:"limit_reached,omitempty"`
	Limit        *LimitStatus `json:"limit,omitempty"`
}

// LimitStatus reports a daily allowance after a consumption attempt.
type LimitStatus struct {
	Category  string `json:"category"`
	Count     int    `json:"count"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Allowed   bool   `json:"allowed"`
}

// ReversalResult is the outcome of a reversal.
type ReversalResult struct {
	AuditID    string `json:"audit_id"`
	UserID     string `json:"user_id"`
	Amount     int    `json:"amount"`
	NewBalance int    `json:"new_balance"`
	Level      int    `json:"level"`
}

// AddPoints credits XP to a user exactly once per real-world event.
//
// Validation:
//   - UserID and Source must be non-empty; Amount must be positive.
//   - The user must exist (the balance row is created lazily, the identity
//     row is not).
//
// Idempotency:
//   - A pending/confirmed credit with the same dedupe key short-circuits
//     into a Duplicate result carrying the original audit ID and the
//     unchanged balance.
//   - A concurrent insert race is resolved by the partial unique index; the
//     loser re-reads the winner and reports Duplicate.
//
// When LimitCategory is set, the daily slot is consumed in the same
// transaction as the credit: a duplicate or failed credit never burns a
// slot, and an exhausted allowance yields a LimitReached result.
func (s *LedgerService) AddPoints(ctx context.Context, req AddPointsRequest) (*CreditResult, error) {
	if req.UserID == "" {
		return nil, ErrInvalidUser
	}
	if req.Source == "" {
		return nil, ErrInvalidSource
	}
	if req.Amount <= 0 {
		creditOps.WithLabelValues(req.Source, "error").Inc()
		return nil, ErrInvalidAmount
	}
	return s.credit(ctx, req)
}

// credit is the shared core of AddPoints and reconciliation corrections.
// It accepts signed amounts; all public callers except the reconciler
// validate positivity first.
func (s *LedgerService) credit(ctx context.Context, req AddPointsRequest) (*CreditResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.AddPoints")
	defer span.End()
	span.SetAttributes(
		attribute.String("xp.source", req.Source),
		attribute.Int("xp.amount", req.Amount),
	)

	if req.Reason == "" {
		req.Reason = req.Source
	}
	identifier := domain.SourceIdentifier(req.UserID, req.Source, req.SourceID, req.Metadata, req.UniqueID)

	var res CreditResult
	err := repo.WithRetry(ctx, "ledger.add_points", func(ctx context.Context) error {
		res = CreditResult{}
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Fast path: the event was credited before.
			prior, err := repo.FindActiveCredit(tx, req.UserID, identifier)
			if err == nil {
				return s.fillDuplicate(tx, prior, &res)
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}

			user, err := repo.GetUser(ctx, tx, req.UserID)
			if errors.Is(err, repo.ErrNotFound) {
				return ErrUserNotFound
			}
			if err != nil {
				return err
			}

			if req.LimitCategory != "" {
				max := s.limitFor(req.LimitCategory)
				date := time.Now().UTC().Format("2006-01-02")
				count, allowed, err := repo.CheckAndIncrementDailyLimit(ctx, tx, req.UserID, req.LimitCategory, date, max)
				if err != nil {
					return err
				}
				remaining := max - count
				if remaining < 0 {
					remaining = 0
				}
				limit := &LimitStatus{
					Category:  req.LimitCategory,
					Count:     count,
					Limit:     max,
					Remaining: remaining,
					Allowed:   allowed,
				}
				if !allowed {
					res = CreditResult{UserID: req.UserID, LimitReached: true, Limit: limit}
					return errDailyCapReached
				}
				res.Limit = limit
			}

			bal, err := repo.GetOrCreateBalance(tx, req.UserID)
			if err != nil {
				return err
			}

			audit := &domain.AuditTransaction{
				ID:               uuid.NewString(),
				UserID:           req.UserID,
				Username:         user.Username,
				Amount:           req.Amount,
				Reason:           req.Reason,
				Source:           req.Source,
				SourceID:         req.SourceID,
				SourceIdentifier: identifier,
				Metadata:         req.Metadata,
				BalanceBefore:    bal.TotalXP,
				BalanceAfter:     bal.TotalXP,
				Status:           domain.StatusPending,
				CreatedAt:        time.Now().UTC(),
			}
			if err := repo.CreateAudit(tx, audit); err != nil {
				if repo.IsDuplicate(err) {
					return errConcurrentCredit
				}
				return err
			}

			newTotal := bal.TotalXP + req.Amount
			if newTotal < 0 {
				newTotal = 0
			}
			bal.TotalXP = newTotal
			bal.Level = levels.CalculateLevel(newTotal)
			bal.LevelXP = levels.CurrentLevelXP(newTotal, bal.Level)
			if err := repo.SaveBalance(tx, bal); err != nil {
				return err
			}
			if err := repo.AppendHistory(tx, req.UserID, req.Amount, req.Reason, req.Source, audit.ID); err != nil {
				return err
			}
			if err := repo.ConfirmAudit(tx, audit.ID, newTotal); err != nil {
				return err
			}

			res = CreditResult{
				AuditID:    audit.ID,
				UserID:     req.UserID,
				Amount:     req.Amount,
				NewBalance: newTotal,
				Level:      bal.Level,
				Limit:      res.Limit,
			}
			return nil
		})
	})

	if errors.Is(err, errDailyCapReached) {
		creditOps.WithLabelValues(req.Source, "limited").Inc()
		s.Log.Debug().
			Str("user_id", req.UserID).
			Str("category", req.LimitCategory).
			Msg("daily limit reached")
		return &res, nil
	}
	if errors.Is(err, errConcurrentCredit) {
		// Lost the insert race; the surviving credit is our result.
		prior, lookupErr := repo.FindActiveCredit(s.DB.WithContext(ctx), req.UserID, identifier)
		if lookupErr != nil {
			return nil, err
		}
		res = CreditResult{}
		if fillErr := s.fillDuplicate(s.DB.WithContext(ctx), prior, &res); fillErr != nil {
			return nil, fillErr
		}
		err = nil
	}
	if err != nil {
		creditOps.WithLabelValues(req.Source, "error").Inc()
		return nil, err
	}

	if res.Duplicate {
		creditOps.WithLabelValues(req.Source, "duplicate").Inc()
		s.Log.Debug().
			Str("user_id", req.UserID).
			Str("source", req.Source).
			Str("audit_id", res.AuditID).
			Msg("duplicate credit suppressed")
	} else {
		creditOps.WithLabelValues(req.Source, "credited").Inc()
		if req.Amount > 0 {
			pointsMinted.WithLabelValues(req.Source).Add(float64(req.Amount))
		}
		s.Log.Info().
			Str("user_id", req.UserID).
			Str("source", req.Source).
			Int("amount", req.Amount).
			Int("balance", res.NewBalance).
			Int("level", res.Level).
			Str("audit_id", res.AuditID).
			Msg("xp credited")
	}
	return &res, nil
}

// fillDuplicate populates a Duplicate result from the surviving credit.
func (s *LedgerService) fillDuplicate(tx *gorm.DB, prior *domain.AuditTransaction, res *CreditResult) error {
	bal, err := repo.GetOrCreateBalance(tx, prior.UserID)
	if err != nil {
		return err
	}
	*res = CreditResult{
		AuditID:    prior.ID,
		UserID:     prior.UserID,
		Amount:     prior.Amount,
		NewBalance: bal.TotalXP,
		Level:      bal.Level,
		Duplicate:  true,
	}
	return nil
}

// RemovePoints reverses a confirmed credit: the balance drops by the
// original amount (never below zero), the level is recomputed, and the
// audit row is flagged reversed with the given reason. A reversed credit
// cannot be reversed again.
func (s *LedgerService) RemovePoints(ctx context.Context, auditID, reason string) (*ReversalResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.RemovePoints")
	defer span.End()

	if reason == "" {
		reason = "reversed"
	}

	var res ReversalResult
	err := repo.WithRetry(ctx, "ledger.remove_points", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			audit, err := repo.GetAudit(ctx, tx, auditID)
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAuditNotFound
			}
			if err != nil {
				return err
			}
			switch audit.Status {
			case domain.StatusReversed:
				return ErrAlreadyReversed
			case domain.StatusConfirmed:
			default:
				return ErrNotReversible
			}

			bal, err := repo.GetOrCreateBalance(tx, audit.UserID)
			if err != nil {
				return err
			}

			newTotal := bal.TotalXP - audit.Amount
			if newTotal < 0 {
				// The floor can only trip after manual tampering or partial
				// corrections; reconciliation surfaces the residue.
				newTotal = 0
			}
			bal.TotalXP = newTotal
			bal.Level = levels.CalculateLevel(newTotal)
			bal.LevelXP = levels.CurrentLevelXP(newTotal, bal.Level)
			if err := repo.SaveBalance(tx, bal); err != nil {
				return err
			}
			if err := repo.AppendHistory(tx, audit.UserID, -audit.Amount, reason, domain.SourceReversal, audit.ID); err != nil {
				return err
			}
			if err := repo.MarkReversed(tx, audit.ID, reason, time.Now().UTC()); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return ErrAlreadyReversed
				}
				return err
			}

			res = ReversalResult{
				AuditID:    audit.ID,
				UserID:     audit.UserID,
				Amount:     audit.Amount,
				NewBalance: newTotal,
				Level:      bal.Level,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	reversals.Inc()
	s.Log.Info().
		Str("audit_id", res.AuditID).
		Str("user_id", res.UserID).
		Int("amount", res.Amount).
		Str("reason", reason).
		Msg("credit reversed")
	return &res, nil
}

// RecalculateLevel is the self-healing pass: it recomputes the cached level
// columns purely from the stored TotalXP.
func (s *LedgerService) RecalculateLevel(ctx context.Context, userID string) (*domain.Balance, error) {
	bal, err := repo.GetBalance(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrBalanceNotFound
	}
	if err != nil {
		return nil, err
	}

	bal.Level = levels.CalculateLevel(bal.TotalXP)
	bal.LevelXP = levels.CurrentLevelXP(bal.TotalXP, bal.Level)
	if err := repo.SaveBalance(s.DB.WithContext(ctx), bal); err != nil {
		return nil, err
	}
	return bal, nil
}

// UserPoints is the read-only projection returned by GetUserPoints.
type UserPoints struct {
	UserID      string                       `json:"user_id"`
	Username    string                       `json:"username"`
	TotalXP     int                          `json:"total_xp"`
	Level       int                          `json:"level"`
	LevelXP     int                          `json:"level_xp"`
	XPToNext    int                          `json:"xp_to_next_level"`
	Progress    float64                      `json:"progress"`
	Recent      []domain.BalanceHistoryEntry `json:"recent"`
}

// GetUserPoints assembles the balance projection: totals, level progress,
// and the most recent history entries. Users without any credit yet are
// reported at zero XP, level 1.
func (s *LedgerService) GetUserPoints(ctx context.Context, userID string) (*UserPoints, error) {
	user, err := repo.GetUser(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	p := &UserPoints{UserID: userID, Username: user.Username, Level: 1}

	bal, err := repo.GetBalance(ctx, s.DB, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		p.TotalXP = bal.TotalXP
		p.Level = bal.Level
		p.LevelXP = bal.LevelXP
	}
	p.XPToNext = levels.XPToNextLevel(p.TotalXP)
	p.Progress = levels.Progress(p.TotalXP)

	recent, err := repo.RecentHistory(ctx, s.DB, userID, 10)
	if err != nil {
		return nil, err
	}
	p.Recent = recent
	return p, nil
}

// ListAudit returns one page of a user's audit transactions, newest first,
// together with the total row count.
func (s *LedgerService) ListAudit(ctx context.Context, userID string, page, pageSize int) ([]domain.AuditTransaction, int64, error) {
	if userID == "" {
		return nil, 0, ErrInvalidUser
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	total, err := repo.CountUserAudits(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := repo.ListUserAuditsPage(ctx, s.DB, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// limitFor resolves the configured daily cap for a category; 10 by default.
func (s *LedgerService) limitFor(category string) int {
	max := 10
	switch category {
	case domain.LimitMessages:
		if s.DailyMessageLimit > 0 {
			max = s.DailyMessageLimit
		}
	case domain.LimitReactions:
		if s.DailyReactionLimit > 0 {
			max = s.DailyReactionLimit
		}
	}
	return max
}

// CheckAndUpdateDailyLimit consumes one unit of the per-category daily
// allowance for today (UTC), outside of any credit. Hitting the cap is
// reported in the status, not as an error. Credits that depend on a slot
// pass LimitCategory to AddPoints instead, which consumes the slot in the
// credit transaction.
func (s *LedgerService) CheckAndUpdateDailyLimit(ctx context.Context, userID, category string) (*LimitStatus, error) {
	max := s.limitFor(category)
	date := time.Now().UTC().Format("2006-01-02")
	var (
		count   int
		allowed bool
	)
	err := repo.WithRetry(ctx, "ledger.daily_limit", func(ctx context.Context) error {
		var err error
		count, allowed, err = repo.CheckAndIncrementDailyLimit(ctx, s.DB, userID, category, date, max)
		return err
	})
	if err != nil {
		return nil, err
	}

	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return &LimitStatus{
		Category:  category,
		Count:     count,
		Limit:     max,
		Remaining: remaining,
		Allowed:   allowed,
	}, nil
}
