package models

import "time"

// GameSession records one swipe session over a fixed item queue
type GameSession struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	InventoryID    string `gorm:"index;not null" json:"inventory_id"`
	GameMode       string `gorm:"type:varchar(16);not null;check:game_mode IN ('quick_sort','speed_toss','deep_sort','free_play')" json:"game_mode"`

	// Counters, written when the session ends
	TotalItems   int   `json:"total_items" gorm:"default:0"`
	ItemsDecided int   `json:"items_decided" gorm:"default:0"`
	ItemsKept    int   `json:"items_kept" gorm:"default:0"`
	ItemsTossed  int   `json:"items_tossed" gorm:"default:0"`
	SessionXP    int64 `json:"session_xp" gorm:"default:0"`
	MaxStreak    int   `json:"max_streak" gorm:"default:0"`

	IsCompleted bool       `json:"is_completed" gorm:"default:false"`
	EndReason   string     `json:"end_reason,omitempty" gorm:"type:varchar(16)"` // queue_exhausted, abandoned, time_up
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`

	Timestamps
}

// ItemDecision is the append-only decision log; one row per (item, user, session)
type ItemDecision struct {
	ID              string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ItemID          string    `gorm:"uniqueIndex:idx_item_user_session;not null" json:"item_id"`
	ExternalUserID  string    `gorm:"uniqueIndex:idx_item_user_session;index;not null" json:"external_user_id"`
	SessionID       string    `gorm:"uniqueIndex:idx_item_user_session;not null" json:"session_id"`
	Decision        string    `gorm:"type:varchar(8);not null;check:decision IN ('keep','toss')" json:"decision"`
	DecisionTimeMs  int64     `json:"decision_time_ms" gorm:"not null"`
	XPEarned        int64     `json:"xp_earned" gorm:"default:0"`
	StreakCount     int       `json:"streak_count" gorm:"default:0"`
	ComboMultiplier float64   `json:"combo_multiplier" gorm:"default:1"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
}
