// Package levels derives a player level from cumulative experience points.
// The curve is non-linear: each level costs floor(baseXP * (n-1)^exponent)
// XP on top of the previous one, so early levels come quickly and later
// ones take progressively longer. All functions are pure and deterministic.
package levels

import "math"

// Curve parameters. Shared with the frontend, so changing them invalidates
// every cached level column until RecalculateLevel runs.
const (
	BaseXP   = 100
	Exponent = 1.5
	MaxLevel = 100
)

// XPForLevel returns the incremental XP cost of reaching level n from n-1.
// Levels at or below 1 are free.
func XPForLevel(n int) int {
	if n <= 1 {
		return 0
	}
	return int(math.Floor(BaseXP * math.Pow(float64(n-1), Exponent)))
}

// TotalXPForLevel returns the cumulative XP required to hold level n.
func TotalXPForLevel(n int) int {
	total := 0
	for i := 2; i <= n; i++ {
		total += XPForLevel(i)
	}
	return total
}

// CalculateLevel returns the highest level whose cumulative cost is covered
// by totalXP, capped at MaxLevel. Negative balances map to level 1.
func CalculateLevel(totalXP int) int {
	level := 1
	needed := 0

	for level < MaxLevel {
		next := XPForLevel(level + 1)
		if totalXP < needed+next {
			break
		}
		needed += next
		level++
	}
	return level
}

// CurrentLevelXP returns the XP accumulated inside the given level, i.e.
// totalXP minus the cumulative cost of the level itself.
func CurrentLevelXP(totalXP, level int) int {
	return totalXP - TotalXPForLevel(level)
}

// XPToNextLevel returns how much XP is still missing for the next level.
// At MaxLevel it returns 0.
func XPToNextLevel(totalXP int) int {
	level := CalculateLevel(totalXP)
	if level >= MaxLevel {
		return 0
	}
	return TotalXPForLevel(level+1) - totalXP
}

// Progress reports the fraction [0,1] of the current level already earned.
// At MaxLevel it returns 1.
func Progress(totalXP int) float64 {
	level := CalculateLevel(totalXP)
	if level >= MaxLevel {
		return 1
	}
	step := XPForLevel(level + 1)
	if step <= 0 {
		return 0
	}
	return float64(CurrentLevelXP(totalXP, level)) / float64(step)
}
