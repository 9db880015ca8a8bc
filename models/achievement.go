package models

import (
	"time"
)

// Requirement types stored in achievements.requirement_type
const (
	RequirementDecisions = "decisions"
	RequirementStreak    = "streak"
	RequirementXP        = "xp"
)

// Achievement: global catalog entry, admin-managed
type Achievement struct {
	ID               string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code             string    `gorm:"uniqueIndex;not null" json:"code"` // slug of Name, e.g. "first-sort"
	Name             string    `gorm:"not null" json:"name"`
	Description      string    `json:"description"`
	Icon             string    `gorm:"size:16" json:"icon"` // emoji
	Category         string    `gorm:"type:varchar(32);default:'milestone'" json:"category"`
	XPReward         int64     `gorm:"not null;check:xp_reward > 0" json:"xp_reward"`
	RequirementType  string    `gorm:"type:varchar(16);not null;check:requirement_type IN ('decisions','streak','xp')" json:"requirement_type"`
	RequirementValue int64     `gorm:"not null;check:requirement_value > 0" json:"requirement_value"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserAchievement: unlocked instance, at most one per (user, achievement)
type UserAchievement struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex:idx_user_achievement;not null" json:"external_user_id"`
	AchievementID  string    `gorm:"uniqueIndex:idx_user_achievement;not null" json:"achievement_id"`
	UnlockedAt     time.Time `gorm:"not null" json:"unlocked_at"`
}

// DefaultAchievements is the catalog seeded at startup. Codes are derived from
// names when seeding.
var DefaultAchievements = []Achievement{
	{
		Name:             "First Sort",
		Description:      "Made your first keep-or-toss decision",
		Icon:             "🌱",
		Category:         "milestone",
		XPReward:         25,
		RequirementType:  RequirementDecisions,
		RequirementValue: 1,
	},
	{
		Name:             "Getting Started",
		Description:      "Decided on 10 items",
		Icon:             "📦",
		Category:         "milestone",
		XPReward:         50,
		RequirementType:  RequirementDecisions,
		RequirementValue: 10,
	},
	{
		Name:             "Declutter Pro",
		Description:      "Decided on 100 items",
		Icon:             "🏆",
		Category:         "milestone",
		XPReward:         250,
		RequirementType:  RequirementDecisions,
		RequirementValue: 100,
	},
	{
		Name:             "On a Roll",
		Description:      "Reached a streak of 5 quick decisions",
		Icon:             "🔥",
		Category:         "streak",
		XPReward:         50,
		RequirementType:  RequirementStreak,
		RequirementValue: 5,
	},
	{
		Name:             "Unstoppable",
		Description:      "Reached a streak of 20 quick decisions",
		Icon:             "⚡",
		Category:         "streak",
		XPReward:         150,
		RequirementType:  RequirementStreak,
		RequirementValue: 20,
	},
	{
		Name:             "Lightning Hands",
		Description:      "Reached a streak of 50 quick decisions",
		Icon:             "🌩️",
		Category:         "streak",
		XPReward:         500,
		RequirementType:  RequirementStreak,
		RequirementValue: 50,
	},
	{
		Name:             "Rising Star",
		Description:      "Earned 1,000 XP",
		Icon:             "⭐",
		Category:         "xp",
		XPReward:         100,
		RequirementType:  RequirementXP,
		RequirementValue: 1000,
	},
	{
		Name:             "Minimalist Master",
		Description:      "Earned 10,000 XP",
		Icon:             "👑",
		Category:         "xp",
		XPReward:         1000,
		RequirementType:  RequirementXP,
		RequirementValue: 10000,
	},
}
