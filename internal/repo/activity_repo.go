// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides insert helpers for the activity records
// feeding the stats snapshot.
//
// Callers pass the event ID from the originating system so retries of the
// same event target the same primary key; inserts therefore use ON CONFLICT
// DO NOTHING and are safe to replay.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-xp-backend/internal/domain"
)

func orNewID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// CreateCoffee records a brewed coffee for userID.
func CreateCoffee(ctx context.Context, db *gorm.DB, id, userID, kind string) (*domain.Coffee, error) {
	c := &domain.Coffee{ID: orNewID(id), UserID: userID, Kind: kind, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// CreateSupply records supplies brought in by userID.
func CreateSupply(ctx context.Context, db *gorm.DB, id, userID, description string) (*domain.Supply, error) {
	s := &domain.Supply{ID: orNewID(id), UserID: userID, Description: description, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// CreateChatMessage records an authored chat message.
func CreateChatMessage(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{ID: orNewID(id), UserID: userID, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// CreateReaction records an emoji reaction given by userID on messageID.
func CreateReaction(ctx context.Context, db *gorm.DB, id, messageID, userID, recipientID, emoji string) (*domain.Reaction, error) {
	r := &domain.Reaction{
		ID:          orNewID(id),
		MessageID:   messageID,
		UserID:      userID,
		RecipientID: recipientID,
		Emoji:       emoji,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// CreateRating records a star rating by raterID on coffeeID.
func CreateRating(ctx context.Context, db *gorm.DB, id, coffeeID, raterID, recipientID string, stars int) (*domain.Rating, error) {
	r := &domain.Rating{
		ID:          orNewID(id),
		CoffeeID:    coffeeID,
		RaterID:     raterID,
		RecipientID: recipientID,
		Stars:       stars,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}
