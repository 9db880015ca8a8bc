package game

import "math"

const (
	// BaseXP is granted for every decision before bonuses and multiplier.
	BaseXP = 10

	// QuickDecisionMs is the latency below which a decision counts as quick
	// and keeps the streak alive.
	QuickDecisionMs = 3000

	MaxLevel = 10
)

// levelThresholds[i] is the minimum total XP for level i+1.
var levelThresholds = [MaxLevel]int64{0, 50, 150, 350, 600, 1000, 1500, 2500, 5000, 10000}

// TimeBonus rewards fast decisions.
func TimeBonus(decisionTimeMs int64) int64 {
	switch {
	case decisionTimeMs < 1000:
		return 20
	case decisionTimeMs < QuickDecisionMs:
		return 10
	case decisionTimeMs < 5000:
		return 5
	default:
		return 0
	}
}

// StreakBonus rewards momentum, based on the streak held before the decision.
func StreakBonus(streak int) int64 {
	switch {
	case streak >= 50:
		return 50
	case streak >= 20:
		return 25
	case streak >= 10:
		return 15
	case streak >= 5:
		return 10
	default:
		return 0
	}
}

// XPBonus is the time bonus plus the streak bonus for a single decision.
func XPBonus(decisionTimeMs int64, streakBefore int) int64 {
	return TimeBonus(decisionTimeMs) + StreakBonus(streakBefore)
}

// ComboMultiplier maps a streak length to its XP multiplier tier.
func ComboMultiplier(streak int) float64 {
	switch {
	case streak >= 50:
		return 3.0
	case streak >= 30:
		return 2.5
	case streak >= 20:
		return 2.0
	case streak >= 10:
		return 1.5
	case streak >= 5:
		return 1.25
	default:
		return 1.0
	}
}

// AwardedXP computes the XP for one decision. The bonus uses the streak before
// the decision while the multiplier uses the streak after it, so a player who
// just reached a new combo tier is paid at that tier.
func AwardedXP(decisionTimeMs int64, streakBefore, streakAfter int) int64 {
	raw := float64(BaseXP + XPBonus(decisionTimeMs, streakBefore))
	return int64(math.Floor(raw * ComboMultiplier(streakAfter)))
}

// Level returns the level for a cumulative XP total, capped at MaxLevel.
func Level(totalXP int64) int {
	for i := MaxLevel - 1; i > 0; i-- {
		if totalXP >= levelThresholds[i] {
			return i + 1
		}
	}
	return 1
}

// LevelThreshold returns the XP needed to reach level. Levels outside
// [1, MaxLevel] are clamped.
func LevelThreshold(level int) int64 {
	if level < 1 {
		level = 1
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levelThresholds[level-1]
}

// XPToNextLevel returns how much XP is still missing for the next level, or 0
// at the cap.
func XPToNextLevel(totalXP int64) int64 {
	lvl := Level(totalXP)
	if lvl >= MaxLevel {
		return 0
	}
	return LevelThreshold(lvl+1) - totalXP
}
