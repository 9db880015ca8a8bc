package game

import (
	"fmt"
	"time"
)

// RequirementKind is the closed set of stats an achievement can require.
type RequirementKind int

const (
	RequireDecisions RequirementKind = iota + 1
	RequireStreak
	RequireXP
)

func (k RequirementKind) String() string {
	switch k {
	case RequireDecisions:
		return "decisions"
	case RequireStreak:
		return "streak"
	case RequireXP:
		return "xp"
	}
	return fmt.Sprintf("RequirementKind(%d)", int(k))
}

// ParseRequirementKind maps the stored requirement type onto a kind.
func ParseRequirementKind(s string) (RequirementKind, error) {
	switch s {
	case "decisions":
		return RequireDecisions, nil
	case "streak":
		return RequireStreak, nil
	case "xp":
		return RequireXP, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRequirement, s)
}

// Requirement is a stat threshold: the stat selected by Kind must be at least Value.
type Requirement struct {
	Kind  RequirementKind
	Value int64
}

// MetBy reports whether stats satisfy the requirement.
func (r Requirement) MetBy(stats PlayerStats) bool {
	switch r.Kind {
	case RequireDecisions:
		return stats.TotalDecisions >= r.Value
	case RequireStreak:
		return int64(stats.LongestStreak) >= r.Value
	case RequireXP:
		return stats.TotalXP >= r.Value
	}
	return false
}

// Achievement is a catalog entry. The catalog is read-only to the engine.
type Achievement struct {
	ID          string      `json:"id"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Category    string      `json:"category"`
	XPReward    int64       `json:"xp_reward"`
	Requirement Requirement `json:"-"`
}

// Eligible returns the catalog entries not yet unlocked whose requirement is
// met by the given stats. Catalog order is preserved.
func Eligible(stats PlayerStats, catalog []Achievement, unlocked map[string]time.Time) []Achievement {
	var out []Achievement
	for _, a := range catalog {
		if _, done := unlocked[a.ID]; done {
			continue
		}
		if a.Requirement.MetBy(stats) {
			out = append(out, a)
		}
	}
	return out
}

// EvaluateAchievements runs one unlock pass for the player. Requirements are
// checked against the stats as they were before the pass, then every reward
// is granted, so reward XP never unlocks another achievement in the same pass.
// It returns the newly unlocked achievements.
func EvaluateAchievements(p *Player, catalog []Achievement, at time.Time) []Achievement {
	snapshot := p.Stats
	var unlocked []Achievement
	for _, a := range Eligible(snapshot, catalog, p.Unlocked) {
		if p.Unlock(a, at) {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}
