// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Balance
// model and its append-only history.
//
// The repository follows a "thin" approach: it performs persistence and
// simple query composition, leaving business rules (level math, idempotency,
// floors) to the services package.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-xp-backend/internal/domain"
)

// GetBalance fetches the balance row for userID, or ErrNotFound.
func GetBalance(ctx context.Context, db *gorm.DB, userID string) (*domain.Balance, error) {
	var b domain.Balance
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetOrCreateBalance returns the balance row for userID, creating the
// zero-XP level-1 row on first contact. Intended to run inside the credit
// transaction so the lazy create commits together with the first credit.
func GetOrCreateBalance(db *gorm.DB, userID string) (*domain.Balance, error) {
	b := domain.Balance{UserID: userID, TotalXP: 0, Level: 1, LevelXP: 0}
	if err := db.Where("user_id = ?", userID).FirstOrCreate(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveBalance persists the mutated balance columns.
func SaveBalance(db *gorm.DB, b *domain.Balance) error {
	return db.Model(&domain.Balance{}).
		Where("user_id = ?", b.UserID).
		Updates(map[string]any{
			"total_xp":   b.TotalXP,
			"level":      b.Level,
			"level_xp":   b.LevelXP,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ListBalanceUserIDs returns the IDs of every user holding a balance row,
// ordered for deterministic batch sweeps.
func ListBalanceUserIDs(ctx context.Context, db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).Model(&domain.Balance{}).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// AppendHistory records a balance mutation summary next to the audit row.
func AppendHistory(db *gorm.DB, userID string, amount int, reason, source, auditID string) error {
	entry := &domain.BalanceHistoryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		Source:    source,
		AuditID:   auditID,
		CreatedAt: time.Now().UTC(),
	}
	return db.Create(entry).Error
}

// RecentHistory returns the newest history entries for userID, capped at limit.
func RecentHistory(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.BalanceHistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []domain.BalanceHistoryEntry
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// GetUser fetches the identity row for userID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, userID string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
