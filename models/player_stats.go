package models

import (
	"time"

	"gorm.io/gorm"
)

// PlayerStats tracks gamified progression for each user (one row per user)
type PlayerStats struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to auth/profile service

	// Core progression. Level is always game.Level(TotalXP)
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`

	// Momentum
	CurrentStreak int `json:"current_streak" gorm:"default:0"`
	LongestStreak int `json:"longest_streak" gorm:"default:0"`

	// Activity counters
	TotalDecisions int64 `json:"total_decisions" gorm:"default:0"`
	QuickDecisions int64 `json:"quick_decisions" gorm:"default:0"` // under 3s

	// Milestones
	LastLevelUpAt  *time.Time `json:"last_level_up_at,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
