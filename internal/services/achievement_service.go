// Package services – AchievementService
//
// Achievement evaluation is a pure function of the user's activity
// snapshot: the stats are loaded once per sweep and every definition's
// predicate runs against that single snapshot. Unlocks rely on the unique
// (user, type) index for idempotency, so concurrent or repeated sweeps
// converge on at most one unlock and one XP reward per achievement.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-xp-backend/internal/domain"
	"github.com/tbourn/go-xp-backend/internal/repo"
	"github.com/tbourn/go-xp-backend/internal/search"
)

// AchievementService evaluates, unlocks, and lists achievements.
type AchievementService struct {
	// DB is the database handle used for stats and achievement rows.
	DB *gorm.DB
	// Ledger mints the XP reward for each unlock.
	Ledger *LedgerService
	// Log is the service logger.
	Log zerolog.Logger
	// Defs overrides the built-in catalog; nil means Catalog().
	Defs []Definition
	// Index serves catalog search; nil builds one from the definitions on
	// first use.
	Index search.Index

	indexOnce sync.Once
}

func (s *AchievementService) definitions() []Definition {
	if s.Defs != nil {
		return s.Defs
	}
	return Catalog()
}

// SearchCatalog ranks the (non-secret) catalog against a free-text query.
func (s *AchievementService) SearchCatalog(query string, k int) []search.Result {
	s.indexOnce.Do(func() {
		if s.Index == nil {
			s.Index = search.NewIndex(CatalogEntries(s.definitions()))
		}
	})
	return s.Index.TopK(query, k)
}

// Unlock is the outcome of one new achievement.
type Unlock struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Rarity   string `json:"rarity"`
	XP       int    `json:"xp"`
	Secret   bool   `json:"secret,omitempty"`
	Category string `json:"category"`
}

// Evaluate runs every definition against the user's current stats and
// unlocks what newly qualifies. Each definition is isolated: a failure to
// persist or reward one unlock is logged and the sweep continues.
func (s *AchievementService) Evaluate(ctx context.Context, userID string) ([]Unlock, error) {
	return s.evaluate(ctx, userID, "")
}

// EvaluateCategory runs only the definitions of one category.
func (s *AchievementService) EvaluateCategory(ctx context.Context, userID, category string) ([]Unlock, error) {
	return s.evaluate(ctx, userID, category)
}

// CheckCoffeeAchievements evaluates the coffee tiers after a brew.
func (s *AchievementService) CheckCoffeeAchievements(ctx context.Context, userID string) ([]Unlock, error) {
	return s.EvaluateCategory(ctx, userID, CategoryCoffee)
}

// CheckMessageAchievements evaluates the message tiers after a send.
func (s *AchievementService) CheckMessageAchievements(ctx context.Context, userID string) ([]Unlock, error) {
	return s.EvaluateCategory(ctx, userID, CategoryMessages)
}

// CheckRatingAchievements evaluates the rating tiers after a rating.
func (s *AchievementService) CheckRatingAchievements(ctx context.Context, userID string) ([]Unlock, error) {
	return s.EvaluateCategory(ctx, userID, CategoryRatings)
}

func (s *AchievementService) evaluate(ctx context.Context, userID, category string) ([]Unlock, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	now := time.Now().UTC()
	stats, err := repo.LoadStats(ctx, s.DB, userID, now)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	var unlocked []Unlock
	for _, def := range s.definitions() {
		if category != "" && def.Category != category {
			continue
		}
		if !def.Predicate(stats, now) {
			continue
		}

		_, created, err := repo.CreateAchievementIfNew(ctx, s.DB, userID, def.Type, def.Title, def.Description, def.Rarity)
		if err != nil {
			s.Log.Error().Err(err).
				Str("user_id", userID).
				Str("type", def.Type).
				Msg("achievement unlock failed")
			continue
		}
		if !created {
			continue
		}

		unlocks.WithLabelValues(def.Rarity).Inc()
		u := Unlock{Type: def.Type, Title: def.Title, Rarity: def.Rarity, Secret: def.Secret, Category: def.Category}
		res, err := s.Ledger.AddAchievementPoints(ctx, userID, def.Type, def.Title, def.Rarity)
		if err != nil {
			// The unlock stands; the reward is retried by a later recompute.
			s.Log.Error().Err(err).
				Str("user_id", userID).
				Str("type", def.Type).
				Msg("achievement reward failed")
		} else if !res.Duplicate {
			u.XP = res.Amount
		}
		unlocked = append(unlocked, u)

		s.Log.Info().
			Str("user_id", userID).
			Str("type", def.Type).
			Str("rarity", def.Rarity).
			Msg("achievement unlocked")
	}
	return unlocked, nil
}

// RecomputeResult summarizes a full recompute pass.
type RecomputeResult struct {
	Unlocked []Unlock `json:"unlocked"`
	Revoked  []string `json:"revoked"`
}

// Recompute makes the stored achievements match the stats exactly: it
// unlocks everything that qualifies and revokes rows whose predicate no
// longer holds (activity rows deleted, a definition tightened). Revocation
// also reverses the reward credit when one is still active.
func (s *AchievementService) Recompute(ctx context.Context, userID string) (*RecomputeResult, error) {
	unlocked, err := s.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &RecomputeResult{Unlocked: unlocked}

	now := time.Now().UTC()
	stats, err := repo.LoadStats(ctx, s.DB, userID, now)
	if err != nil {
		return nil, err
	}

	defs := make(map[string]Definition, len(s.definitions()))
	for _, def := range s.definitions() {
		defs[def.Type] = def
	}

	held, err := repo.ListAchievements(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	for _, a := range held {
		def, known := defs[a.Type]
		if known && def.Predicate(stats, now) {
			continue
		}

		removed, err := repo.DeleteAchievement(ctx, s.DB, userID, a.Type)
		if err != nil {
			s.Log.Error().Err(err).Str("user_id", userID).Str("type", a.Type).Msg("achievement revoke failed")
			continue
		}
		if !removed {
			continue
		}
		out.Revoked = append(out.Revoked, a.Type)

		identifier := domain.SourceIdentifier(userID, domain.SourceAchievement, a.Type,
			domain.Metadata{AchievementType: a.Type, Rarity: a.Rarity}, "")
		credit, err := repo.FindActiveCredit(s.DB.WithContext(ctx), userID, identifier)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			s.Log.Error().Err(err).Str("user_id", userID).Str("type", a.Type).Msg("reward lookup failed")
			continue
		}
		if _, err := s.Ledger.RemovePoints(ctx, credit.ID, "achievement revoked: "+a.Type); err != nil {
			s.Log.Error().Err(err).Str("user_id", userID).Str("type", a.Type).Msg("reward reversal failed")
		}

		s.Log.Info().Str("user_id", userID).Str("type", a.Type).Msg("achievement revoked")
	}
	return out, nil
}

// AchievementView is one entry of a user's achievement listing. Locked
// entries of secret definitions are omitted entirely.
type AchievementView struct {
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Rarity      string     `json:"rarity"`
	Secret      bool       `json:"secret,omitempty"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// GetUserAchievements returns the full catalog annotated with the user's
// unlock state, secrets filtered while locked.
func (s *AchievementService) GetUserAchievements(ctx context.Context, userID string) ([]AchievementView, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	held, err := repo.ListAchievements(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]domain.Achievement, len(held))
	for _, a := range held {
		byType[a.Type] = a
	}

	defs := s.definitions()
	views := make([]AchievementView, 0, len(defs))
	for _, def := range defs {
		a, ok := byType[def.Type]
		if def.Secret && !ok {
			continue
		}
		v := AchievementView{
			Type:        def.Type,
			Title:       def.Title,
			Description: def.Description,
			Category:    def.Category,
			Rarity:      def.Rarity,
			Secret:      def.Secret,
			Unlocked:    ok,
		}
		if ok {
			at := a.UnlockedAt
			v.UnlockedAt = &at
		}
		views = append(views, v)
	}
	return views, nil
}
