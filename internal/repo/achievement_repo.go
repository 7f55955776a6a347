// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Achievement model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-xp-backend/internal/domain"
)

// CreateAchievementIfNew inserts an unlock row for (userID, typ) and reports
// whether the row was created. A concurrent or repeated unlock hits the
// unique index and is reported as created=false with a nil error, which is
// what makes unlocks idempotent.
func CreateAchievementIfNew(ctx context.Context, db *gorm.DB, userID, typ, title, description, rarity string) (*domain.Achievement, bool, error) {
	rec := &domain.Achievement{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Description: description,
		Rarity:      rarity,
		UnlockedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if IsDuplicate(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return rec, true, nil
}

// HasAchievement reports whether userID already unlocked typ.
func HasAchievement(ctx context.Context, db *gorm.DB, userID, typ string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Achievement{}).
		Where("user_id = ? AND type = ?", userID, typ).
		Count(&n).Error
	return n > 0, err
}

// ListAchievements returns every unlock for userID, oldest first.
func ListAchievements(ctx context.Context, db *gorm.DB, userID string) ([]domain.Achievement, error) {
	var rows []domain.Achievement
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&rows).Error
	return rows, err
}

// DeleteAchievement removes an unlock, used only by the administrative
// recompute when a predicate no longer holds. Reports whether a row existed.
func DeleteAchievement(ctx context.Context, db *gorm.DB, userID, typ string) (bool, error) {
	res := db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, typ).
		Delete(&domain.Achievement{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
