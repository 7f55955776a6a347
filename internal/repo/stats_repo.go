// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file assembles the activity snapshot achievement
// predicates run against.
//
// LoadStats executes a fixed set of aggregate queries plus a few in-memory
// passes (message burst, coffee timing/streak, day ownership) and never
// mutates state, so an achievement sweep can call it once and evaluate the
// whole catalog against a consistent view.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-xp-backend/internal/domain"
)

// burstWindow is the sliding window used for the message burst figure.
const burstWindow = 60 * time.Second

// LoadStats builds the full activity snapshot for userID as of now.
// Returns ErrNotFound when the user does not exist.
func LoadStats(ctx context.Context, db *gorm.DB, userID string, now time.Time) (*domain.Stats, error) {
	user, err := GetUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	s := &domain.Stats{UserID: userID, MemberSince: user.CreatedAt}

	counts := []struct {
		dst   *int64
		model any
		where string
	}{
		{&s.CoffeesMade, &domain.Coffee{}, "user_id = ?"},
		{&s.SuppliesBrought, &domain.Supply{}, "user_id = ?"},
		{&s.RatingsGiven, &domain.Rating{}, "rater_id = ?"},
		{&s.RatingsReceived, &domain.Rating{}, "recipient_id = ?"},
		{&s.MessagesSent, &domain.ChatMessage{}, "user_id = ?"},
		{&s.ReactionsGiven, &domain.Reaction{}, "user_id = ?"},
		{&s.ReactionsReceived, &domain.Reaction{}, "recipient_id = ?"},
	}
	for _, c := range counts {
		if err := db.WithContext(ctx).Model(c.model).Where(c.where, userID).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	if err := db.WithContext(ctx).Model(&domain.Rating{}).
		Where("recipient_id = ? AND stars = 5", userID).
		Count(&s.FiveStarsReceived).Error; err != nil {
		return nil, err
	}

	if s.RatingsReceived > 0 {
		var row struct{ Avg float64 }
		if err := db.WithContext(ctx).Model(&domain.Rating{}).
			Select("AVG(stars) AS avg").
			Where("recipient_id = ?", userID).
			Scan(&row).Error; err != nil {
			return nil, err
		}
		s.AverageRating = row.Avg
	}

	// Highest five-star count collected by any single coffee.
	var best struct{ N int64 }
	if err := db.WithContext(ctx).Model(&domain.Rating{}).
		Select("COUNT(*) AS n").
		Where("recipient_id = ? AND stars = 5", userID).
		Group("coffee_id").
		Order("n DESC").
		Limit(1).
		Scan(&best).Error; err != nil {
		return nil, err
	}
	s.BestCoffeeFiveStars = best.N

	// A coffee with at least five ratings, every one of them five stars.
	var unanimous int64
	if err := db.WithContext(ctx).Model(&domain.Rating{}).
		Select("coffee_id").
		Where("recipient_id = ?", userID).
		Group("coffee_id").
		Having("COUNT(*) >= 5 AND MIN(stars) = 5").
		Count(&unanimous).Error; err != nil {
		return nil, err
	}
	s.UnanimousCoffee = unanimous > 0

	if err := loadMessageBurst(ctx, db, userID, s); err != nil {
		return nil, err
	}
	if err := loadCoffeeTiming(ctx, db, userID, now, s); err != nil {
		return nil, err
	}
	if err := loadDaySlots(ctx, db, userID, s); err != nil {
		return nil, err
	}
	return s, nil
}

// loadMessageBurst computes the largest number of messages sent inside any
// 60-second window using a two-pointer pass over the ordered timestamps.
func loadMessageBurst(ctx context.Context, db *gorm.DB, userID string, s *domain.Stats) error {
	var stamps []time.Time
	if err := db.WithContext(ctx).Model(&domain.ChatMessage{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("created_at", &stamps).Error; err != nil {
		return err
	}

	lo := 0
	for hi := range stamps {
		for stamps[hi].Sub(stamps[lo]) >= burstWindow {
			lo++
		}
		if n := int64(hi - lo + 1); n > s.MaxMessageBurst {
			s.MaxMessageBurst = n
		}
	}
	return nil
}

// loadCoffeeTiming derives the time-of-day counters and the weekday streak
// from the user's coffee timestamps. All clock math uses UTC.
func loadCoffeeTiming(ctx context.Context, db *gorm.DB, userID string, now time.Time, s *domain.Stats) error {
	var stamps []time.Time
	if err := db.WithContext(ctx).Model(&domain.Coffee{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("created_at", &stamps).Error; err != nil {
		return err
	}

	days := make(map[string]struct{}, len(stamps))
	var prev time.Time
	for i, ts := range stamps {
		ts = ts.UTC()
		days[ts.Format("2006-01-02")] = struct{}{}

		// Hour counters are independent of the weekday: a Sunday 06:30 brew
		// is both a weekend coffee and an early one.
		wd := ts.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			s.WeekendCoffees++
		}
		if ts.Hour() < 5 {
			s.NightCoffees++
		}
		if ts.Hour() < 6 {
			s.VeryEarlyCoffees++
		}
		if ts.Hour() < 7 {
			s.EarlyCoffees++
		}
		if ts.Hour() >= 20 {
			s.LateCoffees++
		}
		if wd == time.Monday && ts.Hour() < 10 {
			s.MondayEarly++
		}
		if wd == time.Friday && ts.Hour() >= 14 {
			s.FridayLate++
		}

		if i > 0 {
			if gap := int(ts.Sub(prev).Hours() / 24); gap > s.LongestGapDays {
				s.LongestGapDays = gap
			}
		}
		prev = ts
	}

	s.PerfectMonth = hasPerfectMonth(days)

	// Current streak: walk backwards one weekday at a time starting today.
	// Weekends neither extend nor break the run, so a Monday coffee chains
	// to the previous Friday.
	cursor := now.UTC()
	for cursor.Weekday() == time.Saturday || cursor.Weekday() == time.Sunday {
		cursor = cursor.AddDate(0, 0, -1)
	}
	for {
		if _, ok := days[cursor.Format("2006-01-02")]; !ok {
			break
		}
		s.WeekdayStreak++
		cursor = cursor.AddDate(0, 0, -1)
		for cursor.Weekday() == time.Saturday || cursor.Weekday() == time.Sunday {
			cursor = cursor.AddDate(0, 0, -1)
		}
	}
	return nil
}

// hasPerfectMonth reports whether some calendar month in the day set has a
// coffee on every one of its weekdays.
func hasPerfectMonth(days map[string]struct{}) bool {
	months := make(map[string]struct{}, len(days))
	for d := range days {
		months[d[:7]] = struct{}{}
	}
	for m := range months {
		first, err := time.Parse("2006-01", m)
		if err != nil {
			continue
		}
		full := true
		for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
			if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
				continue
			}
			if _, ok := days[d.Format("2006-01-02")]; !ok {
				full = false
				break
			}
		}
		if full {
			return true
		}
	}
	return false
}

// loadDaySlots counts the days on which the user brewed the first,
// respectively last, coffee of the day across all users.
func loadDaySlots(ctx context.Context, db *gorm.DB, userID string, s *domain.Stats) error {
	var rows []struct {
		UserID    string
		CreatedAt time.Time
	}
	if err := db.WithContext(ctx).Model(&domain.Coffee{}).
		Select("user_id, created_at").
		Order("created_at ASC").
		Scan(&rows).Error; err != nil {
		return err
	}

	firstBy := make(map[string]string)
	lastBy := make(map[string]string)
	for _, r := range rows {
		day := r.CreatedAt.UTC().Format("2006-01-02")
		if _, ok := firstBy[day]; !ok {
			firstBy[day] = r.UserID
		}
		lastBy[day] = r.UserID
	}
	for _, owner := range firstBy {
		if owner == userID {
			s.FirstOfDayCount++
		}
	}
	for _, owner := range lastBy {
		if owner == userID {
			s.LastOfDayCount++
		}
	}
	return nil
}
