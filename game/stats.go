package game

import "time"

// PlayerStats is the cumulative progression of one player across sessions.
type PlayerStats struct {
	TotalXP        int64 `json:"total_xp"`
	Level          int   `json:"level"`
	CurrentStreak  int   `json:"current_streak"`
	LongestStreak  int   `json:"longest_streak"`
	TotalDecisions int64 `json:"total_decisions"`
	QuickDecisions int64 `json:"quick_decisions"`
}

// NewPlayerStats returns the zero state a player starts from.
func NewPlayerStats() PlayerStats {
	return PlayerStats{Level: 1}
}

// AddXP adds non-negative XP and keeps Level in step with TotalXP.
func (s *PlayerStats) AddXP(xp int64) {
	if xp > 0 {
		s.TotalXP += xp
	}
	s.Level = Level(s.TotalXP)
}

func (s *PlayerStats) applyDecision(quick bool, streak int, xp int64) {
	s.TotalDecisions++
	if quick {
		s.QuickDecisions++
	}
	s.CurrentStreak = streak
	if streak > s.LongestStreak {
		s.LongestStreak = streak
	}
	s.AddXP(xp)
}

// Player is the caller-owned view of one player during play: stats plus the
// achievements already unlocked, keyed by achievement id.
type Player struct {
	UserID   string
	Stats    PlayerStats
	Unlocked map[string]time.Time
}

// NewPlayer builds a Player, normalising Level against TotalXP.
func NewPlayer(userID string, stats PlayerStats, unlocked map[string]time.Time) *Player {
	if unlocked == nil {
		unlocked = make(map[string]time.Time)
	}
	stats.Level = Level(stats.TotalXP)
	return &Player{UserID: userID, Stats: stats, Unlocked: unlocked}
}

// HasUnlocked reports whether the achievement is already in the unlocked set.
func (p *Player) HasUnlocked(achievementID string) bool {
	_, ok := p.Unlocked[achievementID]
	return ok
}

// Unlock adds the achievement and grants its reward once. A repeated unlock
// returns false and grants nothing.
func (p *Player) Unlock(a Achievement, at time.Time) bool {
	if p.HasUnlocked(a.ID) {
		return false
	}
	p.Unlocked[a.ID] = at
	p.Stats.AddXP(a.XPReward)
	return true
}
