// Package services – achievement catalog
//
// The built-in achievement definitions. Each entry pairs a stable type slug
// with a rarity (which sets the XP reward) and a predicate over the user's
// activity snapshot. Secret achievements stay hidden in listings until
// unlocked.
package services

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-xp-backend/internal/domain"
	"github.com/tbourn/go-xp-backend/internal/search"
)

// Achievement categories, used for targeted evaluation.
const (
	CategoryCoffee    = "coffee"
	CategorySupplies  = "supplies"
	CategoryRatings   = "ratings"
	CategoryMessages  = "messages"
	CategoryReactions = "reactions"
	CategoryTime      = "time"
	CategoryStreaks   = "streaks"
	CategoryVeteran   = "veteran"
	CategorySecret    = "secret"
)

// Definition describes one unlockable achievement.
type Definition struct {
	Type        string
	Title       string
	Description string
	Category    string
	Rarity      string
	Secret      bool
	// Predicate reports whether the stats snapshot satisfies the unlock
	// condition at the given evaluation time.
	Predicate func(s *domain.Stats, now time.Time) bool
}

var titleCaser = cases.Title(language.English)

// titleFromType derives a display title from a type slug, e.g.
// "coffee-lover" becomes "Coffee Lover". Definitions override it where the
// derived form reads wrong.
func titleFromType(typ string) string {
	return titleCaser.String(strings.ReplaceAll(typ, "-", " "))
}

func coffeesAtLeast(n int) func(*domain.Stats, time.Time) bool {
	return func(s *domain.Stats, _ time.Time) bool { return s.CoffeesMade >= int64(n) }
}

func suppliesAtLeast(n int) func(*domain.Stats, time.Time) bool {
	return func(s *domain.Stats, _ time.Time) bool { return s.SuppliesBrought >= int64(n) }
}

func fiveStarsAtLeast(n int) func(*domain.Stats, time.Time) bool {
	return func(s *domain.Stats, _ time.Time) bool { return s.FiveStarsReceived >= int64(n) }
}

func ratingsGivenAtLeast(n int) func(*domain.Stats, time.Time) bool {
	return func(s *domain.Stats, _ time.Time) bool { return s.RatingsGiven >= int64(n) }
}

func messagesAtLeast(n int) func(*domain.Stats, time.Time) bool {
	return func(s *domain.Stats, _ time.Time) bool { return s.MessagesSent >= int64(n) }
}

func streakAtLeast(n int) func(*domain.Stats, time.Time) bool {
	return func(s *domain.Stats, _ time.Time) bool { return s.WeekdayStreak >= n }
}

func memberDaysAtLeast(n int) func(*domain.Stats, time.Time) bool {
	return func(s *domain.Stats, now time.Time) bool { return s.DaysSinceJoin(now) >= n }
}

// Catalog returns the built-in achievement definitions.
func Catalog() []Definition {
	defs := []Definition{
		// Coffee making tiers.
		{Type: "first-coffee", Description: "Brew your first coffee", Category: CategoryCoffee, Rarity: domain.RarityCommon, Predicate: coffeesAtLeast(1)},
		{Type: "coffee-lover", Description: "Brew 10 coffees", Category: CategoryCoffee, Rarity: domain.RarityCommon, Predicate: coffeesAtLeast(10)},
		{Type: "barista-junior", Description: "Brew 25 coffees", Category: CategoryCoffee, Rarity: domain.RarityRare, Predicate: coffeesAtLeast(25)},
		{Type: "barista-senior", Description: "Brew 50 coffees", Category: CategoryCoffee, Rarity: domain.RarityRare, Predicate: coffeesAtLeast(50)},
		{Type: "coffee-master", Description: "Brew 100 coffees", Category: CategoryCoffee, Rarity: domain.RarityEpic, Predicate: coffeesAtLeast(100)},
		{Type: "coffee-legend", Description: "Brew 250 coffees", Category: CategoryCoffee, Rarity: domain.RarityLegendary, Predicate: coffeesAtLeast(250)},
		{Type: "coffee-god", Description: "Brew 500 coffees", Category: CategoryCoffee, Rarity: domain.RarityPlatinum, Predicate: coffeesAtLeast(500)},

		// Supplies.
		{Type: "first-supply", Description: "Bring coffee supplies for the first time", Category: CategorySupplies, Rarity: domain.RarityCommon, Predicate: suppliesAtLeast(1)},
		{Type: "supplier", Description: "Bring supplies 5 times", Category: CategorySupplies, Rarity: domain.RarityCommon, Predicate: suppliesAtLeast(5)},
		{Type: "generous", Description: "Bring supplies 15 times", Category: CategorySupplies, Rarity: domain.RarityRare, Predicate: suppliesAtLeast(15)},
		{Type: "benefactor", Description: "Bring supplies 30 times", Category: CategorySupplies, Rarity: domain.RarityEpic, Predicate: suppliesAtLeast(30)},
		{Type: "philanthropist", Description: "Bring supplies 50 times", Category: CategorySupplies, Rarity: domain.RarityLegendary, Predicate: suppliesAtLeast(50)},

		// Ratings received.
		{Type: "five-stars", Description: "Receive your first five-star rating", Category: CategoryRatings, Rarity: domain.RarityCommon, Predicate: fiveStarsAtLeast(1)},
		{Type: "five-stars-master", Description: "Receive 10 five-star ratings", Category: CategoryRatings, Rarity: domain.RarityRare, Predicate: fiveStarsAtLeast(10)},
		{Type: "five-stars-legend", Description: "Receive 25 five-star ratings", Category: CategoryRatings, Rarity: domain.RarityEpic, Predicate: fiveStarsAtLeast(25)},
		{Type: "galaxy-of-stars", Title: "Galaxy of Stars", Description: "Receive 50 five-star ratings", Category: CategoryRatings, Rarity: domain.RarityLegendary, Predicate: fiveStarsAtLeast(50)},
		{Type: "top-rated", Description: "Hold an average rating of 4.5 or better over at least 5 ratings", Category: CategoryRatings, Rarity: domain.RarityRare,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.RatingsReceived >= 5 && s.AverageRating >= 4.5 }},
		{Type: "perfect-score", Description: "Hold a perfect 5.0 average over at least 10 ratings", Category: CategoryRatings, Rarity: domain.RarityEpic,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.RatingsReceived >= 10 && s.AverageRating == 5.0 }},

		// Ratings given.
		{Type: "first-rate", Description: "Rate a coffee for the first time", Category: CategoryRatings, Rarity: domain.RarityCommon, Predicate: ratingsGivenAtLeast(1)},
		{Type: "taste-expert", Description: "Rate 20 coffees", Category: CategoryRatings, Rarity: domain.RarityRare, Predicate: ratingsGivenAtLeast(20)},
		{Type: "sommelier", Description: "Rate 50 coffees", Category: CategoryRatings, Rarity: domain.RarityEpic, Predicate: ratingsGivenAtLeast(50)},
		{Type: "critic-master", Description: "Rate 100 coffees", Category: CategoryRatings, Rarity: domain.RarityLegendary, Predicate: ratingsGivenAtLeast(100)},

		// Messages.
		{Type: "first-message", Description: "Send your first message", Category: CategoryMessages, Rarity: domain.RarityCommon, Predicate: messagesAtLeast(1)},
		{Type: "chatterbox", Description: "Send 50 messages", Category: CategoryMessages, Rarity: domain.RarityCommon, Predicate: messagesAtLeast(50)},
		{Type: "social-butterfly", Description: "Send 200 messages", Category: CategoryMessages, Rarity: domain.RarityRare, Predicate: messagesAtLeast(200)},
		{Type: "communicator", Description: "Send 500 messages", Category: CategoryMessages, Rarity: domain.RarityEpic, Predicate: messagesAtLeast(500)},
		{Type: "influencer", Description: "Send 1000 messages", Category: CategoryMessages, Rarity: domain.RarityLegendary, Predicate: messagesAtLeast(1000)},

		// Reactions.
		{Type: "viral", Description: "Receive 50 reactions", Category: CategoryReactions, Rarity: domain.RarityRare,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.ReactionsReceived >= 50 }},
		{Type: "popular", Description: "Receive 200 reactions", Category: CategoryReactions, Rarity: domain.RarityEpic,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.ReactionsReceived >= 200 }},
		{Type: "reactor", Description: "Give 100 reactions", Category: CategoryReactions, Rarity: domain.RarityRare,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.ReactionsGiven >= 100 }},
		{Type: "reaction-god", Description: "Give 500 reactions", Category: CategoryReactions, Rarity: domain.RarityEpic,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.ReactionsGiven >= 500 }},

		// Special timing.
		{Type: "early-bird", Description: "Brew a coffee before 7:00", Category: CategoryTime, Rarity: domain.RarityCommon,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.EarlyCoffees >= 1 }},
		{Type: "early-legend", Description: "Brew 5 coffees before 6:00", Category: CategoryTime, Rarity: domain.RarityLegendary,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.VeryEarlyCoffees >= 5 }},
		{Type: "night-owl", Description: "Brew a coffee after 20:00", Category: CategoryTime, Rarity: domain.RarityCommon,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.LateCoffees >= 1 }},
		{Type: "weekend-warrior", Description: "Brew a coffee on a weekend", Category: CategoryTime, Rarity: domain.RarityCommon,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.WeekendCoffees >= 1 }},
		{Type: "monday-hero", Description: "Brew a Monday coffee before 10:00", Category: CategoryTime, Rarity: domain.RarityRare,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.MondayEarly >= 1 }},
		{Type: "friday-finisher", Description: "Brew a Friday coffee after 14:00", Category: CategoryTime, Rarity: domain.RarityRare,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.FridayLate >= 1 }},
		{Type: "first-of-the-day", Title: "First of the Day", Description: "Brew the day's first coffee 10 times", Category: CategoryTime, Rarity: domain.RarityEpic,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.FirstOfDayCount >= 10 }},
		{Type: "last-of-the-day", Title: "Last of the Day", Description: "Brew the day's last coffee 10 times", Category: CategoryTime, Rarity: domain.RarityEpic,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.LastOfDayCount >= 10 }},

		// Streaks over consecutive weekdays.
		{Type: "streak-3", Title: "3-Day Streak", Description: "Brew coffee on 3 consecutive weekdays", Category: CategoryStreaks, Rarity: domain.RarityCommon, Predicate: streakAtLeast(3)},
		{Type: "streak-7", Title: "7-Day Streak", Description: "Brew coffee on 7 consecutive weekdays", Category: CategoryStreaks, Rarity: domain.RarityRare, Predicate: streakAtLeast(7)},
		{Type: "streak-14", Title: "14-Day Streak", Description: "Brew coffee on 14 consecutive weekdays", Category: CategoryStreaks, Rarity: domain.RarityRare, Predicate: streakAtLeast(14)},
		{Type: "streak-30", Title: "30-Day Streak", Description: "Brew coffee on 30 consecutive weekdays", Category: CategoryStreaks, Rarity: domain.RarityEpic, Predicate: streakAtLeast(30)},
		{Type: "streak-60", Title: "60-Day Streak", Description: "Brew coffee on 60 consecutive weekdays", Category: CategoryStreaks, Rarity: domain.RarityLegendary, Predicate: streakAtLeast(60)},
		{Type: "coffee-streak-master", Description: "Brew coffee on 100 consecutive weekdays", Category: CategoryStreaks, Rarity: domain.RarityPlatinum, Predicate: streakAtLeast(100)},
		{Type: "perfect-month", Description: "Brew coffee on every weekday of a calendar month", Category: CategoryStreaks, Rarity: domain.RarityLegendary, Secret: true,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.PerfectMonth }},

		// Tenure.
		{Type: "veteran", Description: "Be a member for 30 days", Category: CategoryVeteran, Rarity: domain.RarityCommon, Predicate: memberDaysAtLeast(30)},
		{Type: "ancient", Description: "Be a member for 90 days", Category: CategoryVeteran, Rarity: domain.RarityRare, Predicate: memberDaysAtLeast(90)},
		{Type: "founding-member", Description: "Be a member for 180 days", Category: CategoryVeteran, Rarity: domain.RarityEpic, Predicate: memberDaysAtLeast(180)},
		{Type: "community-pillar", Description: "Be a member for a full year", Category: CategoryVeteran, Rarity: domain.RarityLegendary, Predicate: memberDaysAtLeast(365)},
		{Type: "eternal-legend", Description: "Be a member for two years", Category: CategoryVeteran, Rarity: domain.RarityPlatinum, Predicate: memberDaysAtLeast(730)},

		// Secrets.
		{Type: "speed-typer", Description: "Send 5 messages within one minute", Category: CategorySecret, Rarity: domain.RarityRare, Secret: true,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.MaxMessageBurst >= 5 }},
		{Type: "double-rainbow", Description: "Collect two five-star ratings on a single coffee", Category: CategorySecret, Rarity: domain.RarityRare, Secret: true,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.BestCoffeeFiveStars >= 2 }},
		{Type: "unanimous", Description: "Have a coffee rated five stars by five different people", Category: CategorySecret, Rarity: domain.RarityEpic, Secret: true,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.UnanimousCoffee }},
		{Type: "triple-threat", Description: "Brew a coffee, bring supplies, and send a message", Category: CategorySecret, Rarity: domain.RarityRare, Secret: true,
			Predicate: func(s *domain.Stats, _ time.Time) bool {
				return s.CoffeesMade >= 1 && s.SuppliesBrought >= 1 && s.MessagesSent >= 1
			}},
		{Type: "night-shift", Description: "Brew a coffee between midnight and 5:00", Category: CategorySecret, Rarity: domain.RarityEpic, Secret: true,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.NightCoffees >= 1 }},
		{Type: "comeback-king", Description: "Brew again after 30 days away", Category: CategorySecret, Rarity: domain.RarityRare, Secret: true,
			Predicate: func(s *domain.Stats, _ time.Time) bool { return s.LongestGapDays >= 30 }},
	}

	for i := range defs {
		if defs[i].Title == "" {
			defs[i].Title = titleFromType(defs[i].Type)
		}
	}
	return defs
}

// CatalogEntries flattens definitions into searchable catalog entries.
func CatalogEntries(defs []Definition) []search.Entry {
	entries := make([]search.Entry, 0, len(defs))
	for _, def := range defs {
		entries = append(entries, search.Entry{
			Type:        def.Type,
			Title:       def.Title,
			Description: def.Description,
			Category:    def.Category,
			Rarity:      def.Rarity,
			Secret:      def.Secret,
		})
	}
	return entries
}
