// Package services – XPConfigService
//
// XP amounts per action are live configuration: admins may tune them at
// runtime through a settings row, and every credit resolves its amount at
// call time. Hard-coded defaults cover any key the stored payload omits, so
// a partial (or missing) row never zeroes an action.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-xp-backend/internal/domain"
	"github.com/tbourn/go-xp-backend/internal/repo"
)

// SettingXPConfig is the settings key holding the live XP configuration.
const SettingXPConfig = "xp-config"

// XPConfig maps action sources and achievement rarities to XP amounts.
type XPConfig struct {
	Actions map[string]int `json:"actions"`
	Rarity  map[string]int `json:"rarity"`
}

// DefaultXPConfig returns the built-in amounts used when no override is stored.
func DefaultXPConfig() XPConfig {
	return XPConfig{
		Actions: map[string]int{
			domain.SourceCoffeeMade:       50,
			domain.SourceCoffeeBrought:    75,
			domain.SourceRatingGiven:      15,
			domain.SourceFiveStarReceived: 30,
			domain.SourceFourStarReceived: 15,
			domain.SourceMessageSent:      1,
			domain.SourceReactionGiven:    3,
			domain.SourceReactionReceived: 5,
			domain.SourceDailyLogin:       10,
		},
		Rarity: map[string]int{
			domain.RarityCommon:    25,
			domain.RarityRare:      50,
			domain.RarityEpic:      100,
			domain.RarityLegendary: 200,
			domain.RarityPlatinum:  500,
		},
	}
}

// XPConfigService reads and writes the live XP configuration.
type XPConfigService struct {
	// DB is the database handle used for settings access.
	DB *gorm.DB
}

// Get returns the effective configuration: stored overrides merged over the
// defaults. A missing settings row yields the pure defaults.
func (s *XPConfigService) Get(ctx context.Context) (XPConfig, error) {
	cfg := DefaultXPConfig()

	raw, err := repo.GetSetting(ctx, s.DB, SettingXPConfig)
	if errors.Is(err, repo.ErrNotFound) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	var stored XPConfig
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", SettingXPConfig, err)
	}
	for k, v := range stored.Actions {
		cfg.Actions[k] = v
	}
	for k, v := range stored.Rarity {
		cfg.Rarity[k] = v
	}
	return cfg, nil
}

// Update validates and persists an override payload. Amounts must be
// non-negative; zero disables an action without deleting its key.
func (s *XPConfigService) Update(ctx context.Context, cfg XPConfig) error {
	for k, v := range cfg.Actions {
		if v < 0 {
			return fmt.Errorf("%w: action %q", ErrInvalidConfig, k)
		}
	}
	for k, v := range cfg.Rarity {
		if v < 0 {
			return fmt.Errorf("%w: rarity %q", ErrInvalidConfig, k)
		}
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return repo.UpsertSetting(ctx, s.DB, SettingXPConfig, string(raw))
}

// AmountFor resolves the XP amount for an action source, 0 when unknown.
func (s *XPConfigService) AmountFor(ctx context.Context, source string) int {
	cfg, err := s.Get(ctx)
	if err != nil {
		// Broken stored payloads fall back to the defaults silently; the
		// credit path must not depend on settings availability.
		cfg = DefaultXPConfig()
	}
	return cfg.Actions[source]
}

// AmountForRarity resolves the XP amount minted for an achievement rarity.
func (s *XPConfigService) AmountForRarity(ctx context.Context, rarity string) int {
	cfg, err := s.Get(ctx)
	if err != nil {
		cfg = DefaultXPConfig()
	}
	return cfg.Rarity[rarity]
}
