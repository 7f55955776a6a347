// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Setting
// key/value store.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-xp-backend/internal/domain"
)

// GetSetting returns the raw JSON payload stored under key, or ErrNotFound.
func GetSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var s domain.Setting
	err := db.WithContext(ctx).Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return s.Value, nil
}

// UpsertSetting writes the payload under key, replacing any previous value.
func UpsertSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	s := domain.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&s).Error
}
