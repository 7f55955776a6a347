// Package services – activity actions
//
// Composite wrappers around the ledger: each records the originating
// activity row (coffee, supply, message, reaction, rating) and then credits
// XP through AddPoints. The activity insert uses the caller-supplied event
// ID with a do-nothing conflict clause, so a replayed request neither
// duplicates the row nor the credit. Capped actions pass their limit
// category into AddPoints, which consumes the daily slot inside the credit
// transaction.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-xp-backend/internal/domain"
	"github.com/tbourn/go-xp-backend/internal/repo"
)

// AddCoffeeMadePoints records a brewed coffee and credits the brewer.
// coffeeID is the natural event ID; empty generates a fresh one (and thus a
// fresh credit).
func (s *LedgerService) AddCoffeeMadePoints(ctx context.Context, userID, coffeeID, coffeeType string) (*CreditResult, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}
	coffee, err := repo.CreateCoffee(ctx, s.DB, coffeeID, userID, coffeeType)
	if err != nil {
		return nil, err
	}
	return s.AddPoints(ctx, AddPointsRequest{
		UserID:   userID,
		Source:   domain.SourceCoffeeMade,
		Amount:   s.Config.AmountFor(ctx, domain.SourceCoffeeMade),
		Reason:   "made coffee",
		SourceID: coffee.ID,
		Metadata: domain.Metadata{CoffeeType: coffeeType},
	})
}

// AddCoffeeBroughtPoints records brought supplies and credits the bringer.
func (s *LedgerService) AddCoffeeBroughtPoints(ctx context.Context, userID, supplyID, description string) (*CreditResult, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}
	supply, err := repo.CreateSupply(ctx, s.DB, supplyID, userID, description)
	if err != nil {
		return nil, err
	}
	return s.AddPoints(ctx, AddPointsRequest{
		UserID:   userID,
		Source:   domain.SourceCoffeeBrought,
		Amount:   s.Config.AmountFor(ctx, domain.SourceCoffeeBrought),
		Reason:   "brought coffee supplies",
		SourceID: supply.ID,
	})
}

// RecordMessage records a chat message and credits the sender, subject to
// the daily message cap. A capped request still records the message; the
// result carries LimitReached and no audit ID.
func (s *LedgerService) RecordMessage(ctx context.Context, userID, messageID string) (*CreditResult, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	msg, err := repo.CreateChatMessage(ctx, s.DB, messageID, userID)
	if err != nil {
		return nil, err
	}

	return s.AddPoints(ctx, AddPointsRequest{
		UserID:        userID,
		Source:        domain.SourceMessageSent,
		Amount:        s.Config.AmountFor(ctx, domain.SourceMessageSent),
		Reason:        "sent a message",
		SourceID:      msg.ID,
		LimitCategory: domain.LimitMessages,
	})
}

// RecordReaction records an emoji reaction and credits both sides: the
// reactor (capped per day) and the message author. Recipient credit
// failures are logged but do not fail the request once the reactor side
// committed.
func (s *LedgerService) RecordReaction(ctx context.Context, reactorID, recipientID, messageID, emoji string) (*CreditResult, error) {
	if reactorID == "" || recipientID == "" {
		return nil, ErrInvalidUser
	}

	if _, err := repo.CreateReaction(ctx, s.DB, "", messageID, reactorID, recipientID, emoji); err != nil {
		return nil, err
	}

	res, err := s.AddPoints(ctx, AddPointsRequest{
		UserID:        reactorID,
		Source:        domain.SourceReactionGiven,
		Amount:        s.Config.AmountFor(ctx, domain.SourceReactionGiven),
		Reason:        "reacted to a message",
		SourceID:      messageID,
		Metadata:      domain.Metadata{ReactionType: emoji},
		LimitCategory: domain.LimitReactions,
	})
	if err != nil {
		return nil, err
	}
	if res.LimitReached {
		return res, nil
	}

	// Same message, different emoji is a distinct event for the recipient.
	if _, err := s.AddPoints(ctx, AddPointsRequest{
		UserID:   recipientID,
		Source:   domain.SourceReactionReceived,
		Amount:   s.Config.AmountFor(ctx, domain.SourceReactionReceived),
		Reason:   "received a reaction",
		SourceID: messageID,
		Metadata: domain.Metadata{ReactionType: emoji, ReactorID: reactorID, MessageID: messageID},
	}); err != nil {
		s.Log.Warn().Err(err).
			Str("recipient_id", recipientID).
			Str("message_id", messageID).
			Msg("recipient reaction credit failed")
	}
	return res, nil
}

// RecordRating records a coffee rating and credits the rater; four and five
// star ratings also credit the coffee's brewer.
func (s *LedgerService) RecordRating(ctx context.Context, raterID, recipientID, coffeeID string, stars int) (*CreditResult, error) {
	if raterID == "" || recipientID == "" {
		return nil, ErrInvalidUser
	}
	if stars < 1 || stars > 5 {
		return nil, ErrInvalidStars
	}

	rating, err := repo.CreateRating(ctx, s.DB, "", coffeeID, raterID, recipientID, stars)
	if err != nil {
		return nil, err
	}

	res, err := s.AddPoints(ctx, AddPointsRequest{
		UserID:   raterID,
		Source:   domain.SourceRatingGiven,
		Amount:   s.Config.AmountFor(ctx, domain.SourceRatingGiven),
		Reason:   "rated a coffee",
		SourceID: rating.ID,
	})
	if err != nil {
		return nil, err
	}

	var recipientSource string
	switch stars {
	case 5:
		recipientSource = domain.SourceFiveStarReceived
	case 4:
		recipientSource = domain.SourceFourStarReceived
	default:
		return res, nil
	}
	if _, err := s.AddPoints(ctx, AddPointsRequest{
		UserID:   recipientID,
		Source:   recipientSource,
		Amount:   s.Config.AmountFor(ctx, recipientSource),
		Reason:   "coffee rated highly",
		SourceID: rating.ID,
	}); err != nil {
		s.Log.Warn().Err(err).
			Str("recipient_id", recipientID).
			Str("rating_id", rating.ID).
			Msg("recipient rating credit failed")
	}
	return res, nil
}

// AddAchievementPoints credits the XP reward for an unlocked achievement.
// The achievement type is the natural dedupe key, so re-evaluations are
// no-ops.
func (s *LedgerService) AddAchievementPoints(ctx context.Context, userID, achievementType, title, rarity string) (*CreditResult, error) {
	return s.AddPoints(ctx, AddPointsRequest{
		UserID:   userID,
		Source:   domain.SourceAchievement,
		Amount:   s.Config.AmountForRarity(ctx, rarity),
		Reason:   "achievement unlocked: " + title,
		SourceID: achievementType,
		Metadata: domain.Metadata{AchievementType: achievementType, Rarity: rarity},
	})
}

// AddManualPoints credits an ad-hoc admin award. idempotencyKey guards
// against double submission; empty means every call is a fresh event.
func (s *LedgerService) AddManualPoints(ctx context.Context, userID string, amount int, reason, idempotencyKey string) (*CreditResult, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	return s.AddPoints(ctx, AddPointsRequest{
		UserID:   userID,
		Source:   domain.SourceManual,
		Amount:   amount,
		Reason:   reason,
		UniqueID: idempotencyKey,
	})
}

// AddDailyLoginPoints credits the once-per-UTC-day login bonus.
func (s *LedgerService) AddDailyLoginPoints(ctx context.Context, userID string) (*CreditResult, error) {
	return s.AddPoints(ctx, AddPointsRequest{
		UserID:   userID,
		Source:   domain.SourceDailyLogin,
		Amount:   s.Config.AmountFor(ctx, domain.SourceDailyLogin),
		Reason:   "daily login",
		UniqueID: time.Now().UTC().Format("2006-01-02"),
	})
}
