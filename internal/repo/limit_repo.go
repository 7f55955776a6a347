// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the atomic check-then-increment for the
// per-user, per-category daily counters.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-xp-backend/internal/domain"
)

// CheckAndIncrementDailyLimit consumes one unit of the daily allowance for
// (userID, category) on the given UTC day (YYYY-MM-DD). It returns the count
// after the call and whether the unit was granted.
//
// The whole operation runs in one transaction: the counter row is created on
// first use, reset in place when its stored day is stale, and incremented
// through a guarded UPDATE whose WHERE clause re-checks the cap, so two
// concurrent calls can never both take the last slot.
func CheckAndIncrementDailyLimit(ctx context.Context, db *gorm.DB, userID, category, date string, max int) (count int, allowed bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := domain.DailyLimit{UserID: userID, Category: category, Date: date, Count: 0}
		if err := tx.Where("user_id = ? AND category = ?", userID, category).
			FirstOrCreate(&row).Error; err != nil {
			return err
		}

		// New calendar day: the old count no longer applies.
		if row.Date != date {
			if err := tx.Model(&domain.DailyLimit{}).
				Where("user_id = ? AND category = ?", userID, category).
				Updates(map[string]any{"date": date, "count": 0}).Error; err != nil {
				return err
			}
		}

		res := tx.Model(&domain.DailyLimit{}).
			Where("user_id = ? AND category = ? AND date = ? AND count < ?", userID, category, date, max).
			Update("count", gorm.Expr("count + 1"))
		if res.Error != nil {
			return res.Error
		}
		allowed = res.RowsAffected == 1

		var after domain.DailyLimit
		if err := tx.Where("user_id = ? AND category = ?", userID, category).
			First(&after).Error; err != nil {
			return err
		}
		count = after.Count
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return count, allowed, nil
}

// GetDailyLimit returns the counter row for (userID, category), or
// ErrNotFound when the user never consumed that allowance.
func GetDailyLimit(ctx context.Context, db *gorm.DB, userID, category string) (*domain.DailyLimit, error) {
	var row domain.DailyLimit
	err := db.WithContext(ctx).
		Where("user_id = ? AND category = ?", userID, category).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
