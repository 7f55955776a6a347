package domain

import "time"

// Stats is the read-only activity snapshot achievement predicates run
// against. It is assembled in one pass by the repo layer; predicates never
// touch the database themselves, which keeps a full catalog sweep
// order-independent and cheap to test.
type Stats struct {
	UserID      string
	MemberSince time.Time

	CoffeesMade     int64
	SuppliesBrought int64

	RatingsGiven      int64
	RatingsReceived   int64
	FiveStarsReceived int64
	AverageRating     float64

	MessagesSent      int64
	ReactionsGiven    int64
	ReactionsReceived int64

	// MaxMessageBurst is the largest number of messages sent inside any
	// 60-second window.
	MaxMessageBurst int64

	// WeekdayStreak is the current run of consecutive weekdays with at
	// least one coffee made. Weekends neither extend nor break it.
	WeekdayStreak int

	// BestCoffeeFiveStars is the highest five-star count any single coffee
	// of this user has collected.
	BestCoffeeFiveStars int64

	// UnanimousCoffee is true when some coffee has five or more ratings,
	// all of them five stars.
	UnanimousCoffee bool

	EarlyCoffees     int64 // brewed before 07:00 UTC, any day
	VeryEarlyCoffees int64 // brewed before 06:00 UTC
	NightCoffees     int64 // brewed between 00:00 and 05:00 UTC
	LateCoffees      int64 // brewed at or after 20:00 UTC
	WeekendCoffees   int64
	MondayEarly      int64 // Monday before 10:00
	FridayLate       int64 // Friday at or after 14:00

	// FirstOfDayCount and LastOfDayCount tally the days on which this user
	// brewed the first, respectively last, coffee across all users.
	FirstOfDayCount int64
	LastOfDayCount  int64

	// LongestGapDays is the widest pause in whole days between two
	// consecutive coffees of this user.
	LongestGapDays int

	// PerfectMonth is true when some calendar month had a coffee on every
	// one of its weekdays.
	PerfectMonth bool
}

// DaysSinceJoin returns whole days since the user account was created.
func (s *Stats) DaysSinceJoin(now time.Time) int {
	if s.MemberSince.IsZero() {
		return 0
	}
	return int(now.Sub(s.MemberSince).Hours() / 24)
}
