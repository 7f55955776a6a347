package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-xp-backend/internal/domain"
)

func TestXPConfig_DefaultsWhenUnset(t *testing.T) {
	svc := &XPConfigService{DB: newTestDB(t)}
	cfg, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.Actions[domain.SourceCoffeeMade] != 50 || cfg.Rarity[domain.RarityPlatinum] != 500 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestXPConfig_UpdateMergesOverDefaults(t *testing.T) {
	svc := &XPConfigService{DB: newTestDB(t)}
	ctx := context.Background()

	err := svc.Update(ctx, XPConfig{Actions: map[string]int{domain.SourceCoffeeMade: 80}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	cfg, err := svc.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.Actions[domain.SourceCoffeeMade] != 80 {
		t.Fatalf("override not applied: %d", cfg.Actions[domain.SourceCoffeeMade])
	}
	// Untouched keys keep their defaults.
	if cfg.Actions[domain.SourceMessageSent] != 1 || cfg.Rarity[domain.RarityCommon] != 25 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestXPConfig_RejectsNegativeAmounts(t *testing.T) {
	svc := &XPConfigService{DB: newTestDB(t)}
	err := svc.Update(context.Background(), XPConfig{Actions: map[string]int{"coffee-made": -1}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	err = svc.Update(context.Background(), XPConfig{Rarity: map[string]int{"epic": -5}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for rarity, got %v", err)
	}
}

func TestXPConfig_AmountForUnknownSource(t *testing.T) {
	svc := &XPConfigService{DB: newTestDB(t)}
	if got := svc.AmountFor(context.Background(), "not-a-source"); got != 0 {
		t.Fatalf("unknown source amount = %d, want 0", got)
	}
	if got := svc.AmountForRarity(context.Background(), domain.RarityEpic); got != 100 {
		t.Fatalf("epic amount = %d, want 100", got)
	}
}
