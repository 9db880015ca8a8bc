package models

import "time"

// Leaderboard types
const (
	LeaderboardWeeklyXP  = "weekly_xp"
	LeaderboardMonthlyXP = "monthly_xp"
	LeaderboardAllTimeXP = "all_time_xp"
	LeaderboardStreak    = "streak"
)

// LeaderboardEntry is one player's score for a leaderboard period
type LeaderboardEntry struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ExternalUserID  string    `json:"external_user_id" gorm:"uniqueIndex:idx_leaderboard_period;not null"`
	LeaderboardType string    `json:"leaderboard_type" gorm:"uniqueIndex:idx_leaderboard_period;type:varchar(16);not null"`
	PeriodStart     time.Time `json:"period_start" gorm:"uniqueIndex:idx_leaderboard_period;not null"`
	PeriodEnd       time.Time `json:"period_end" gorm:"not null"`
	Score           int64     `json:"score" gorm:"default:0;index"`
	Rank            int       `json:"rank" gorm:"default:0"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
