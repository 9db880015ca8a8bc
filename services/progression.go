package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tosslee/game"
	"tosslee/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionGuard is implemented by SessionRegistry. Writes to a user's stats
// outside of play run through it so they never race a live session.
type SessionGuard interface {
	WithoutSession(userID string, fn func() error) error
}

type ProgressionService struct {
	DB       *gorm.DB
	Store    *GameStore
	Sessions SessionGuard // optional
}

func NewProgressionService(db *gorm.DB, store *GameStore, sessions SessionGuard) *ProgressionService {
	return &ProgressionService{DB: db, Store: store, Sessions: sessions}
}

// ensureStatsRecord ensures a PlayerStats row exists (idempotent)
func ensureStatsRecord(db *gorm.DB, externalUserID string) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := db.Where("external_user_id = ?", externalUserID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.PlayerStats{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Level:          1,
		}
		if err := db.Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Progress is the player's profile card.
type Progress struct {
	models.PlayerStats
	XPToNextLevel        int64                `json:"xp_to_next_level"`
	NextLevelXP          int64                `json:"next_level_xp"`
	CurrentLevelXP       int64                `json:"current_level_xp"`
	IsMaxLevel           bool                 `json:"is_max_level"`
	AchievementsUnlocked int64                `json:"achievements_unlocked"`
	TotalSessions        int64                `json:"total_sessions"`
	RecentSessions       []models.GameSession `json:"recent_sessions"`
}

func (s *ProgressionService) GetProgress(ctx context.Context, externalUserID string) (*Progress, error) {
	db := s.DB.WithContext(ctx)
	stats, err := ensureStatsRecord(db, externalUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	p := &Progress{
		PlayerStats:    *stats,
		XPToNextLevel:  game.XPToNextLevel(stats.TotalXP),
		CurrentLevelXP: game.LevelThreshold(stats.Level),
		NextLevelXP:    game.LevelThreshold(stats.Level + 1),
		IsMaxLevel:     stats.Level >= game.MaxLevel,
	}
	if err := db.Model(&models.UserAchievement{}).
		Where("external_user_id = ?", externalUserID).
		Count(&p.AchievementsUnlocked).Error; err != nil {
		return nil, fmt.Errorf("failed to count achievements: %w", err)
	}
	if err := db.Model(&models.GameSession{}).
		Where("external_user_id = ? AND ended_at IS NOT NULL", externalUserID).
		Count(&p.TotalSessions).Error; err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if err := db.Where("external_user_id = ? AND ended_at IS NOT NULL", externalUserID).
		Order("started_at DESC").
		Limit(3).
		Find(&p.RecentSessions).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent sessions: %w", err)
	}
	return p, nil
}

// GetRecentSessions returns sessions started in the last N days
func (s *ProgressionService) GetRecentSessions(ctx context.Context, externalUserID string, days int) ([]models.GameSession, error) {
	if days < 1 {
		days = 7
	}
	var sessions []models.GameSession
	since := time.Now().AddDate(0, 0, -days)
	err := s.DB.WithContext(ctx).
		Where("external_user_id = ? AND started_at >= ?", externalUserID, since).
		Order("started_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// GetUserHistory returns a page of the user's decision log, newest first
func (s *ProgressionService) GetUserHistory(ctx context.Context, externalUserID string, page, size int) (map[string]interface{}, error) {
	page, size = clampPage(page, size)
	offset := (page - 1) * size
	db := s.DB.WithContext(ctx)

	var totalDecisions int64
	if err := db.Model(&models.ItemDecision{}).
		Where("external_user_id = ?", externalUserID).
		Count(&totalDecisions).Error; err != nil {
		return nil, err
	}

	var decisions []models.ItemDecision
	if err := db.Where("external_user_id = ?", externalUserID).
		Order("created_at DESC").
		Limit(size).Offset(offset).
		Find(&decisions).Error; err != nil {
		return nil, err
	}

	totalPages := int((totalDecisions + int64(size) - 1) / int64(size))
	return map[string]interface{}{
		"decisions":   decisions,
		"page":        page,
		"size":        size,
		"total_items": totalDecisions,
		"total_pages": totalPages,
	}, nil
}

func clampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

// AwardXP grants XP outside of play and runs the achievement check. It
// returns the updated stats and anything newly unlocked, or
// ErrSessionInProgress while the user is playing.
func (s *ProgressionService) AwardXP(ctx context.Context, externalUserID string, xp int64, reason string) (game.PlayerStats, []game.Achievement, error) {
	if xp <= 0 {
		return game.PlayerStats{}, nil, fmt.Errorf("xp must be positive, got %d", xp)
	}
	if s.Sessions == nil {
		return s.awardXP(ctx, externalUserID, xp, reason)
	}
	var (
		stats game.PlayerStats
		newly []game.Achievement
	)
	err := s.Sessions.WithoutSession(externalUserID, func() error {
		var err error
		stats, newly, err = s.awardXP(ctx, externalUserID, xp, reason)
		return err
	})
	return stats, newly, err
}

func (s *ProgressionService) awardXP(ctx context.Context, externalUserID string, xp int64, reason string) (game.PlayerStats, []game.Achievement, error) {
	stats, err := s.Store.LoadPlayerStats(ctx, externalUserID)
	if err != nil {
		return game.PlayerStats{}, nil, err
	}
	catalog, err := s.Store.LoadAchievements(ctx)
	if err != nil {
		return game.PlayerStats{}, nil, err
	}
	unlocked, err := s.Store.LoadUnlocked(ctx, externalUserID)
	if err != nil {
		return game.PlayerStats{}, nil, err
	}

	now := time.Now()
	player := game.NewPlayer(externalUserID, stats, unlocked)
	player.Stats.AddXP(xp)
	newly := game.EvaluateAchievements(player, catalog, now)

	for _, a := range newly {
		if err := s.Store.RecordUnlock(ctx, externalUserID, a.ID, now); err != nil {
			return game.PlayerStats{}, nil, fmt.Errorf("failed to record unlock %s: %w", a.Code, err)
		}
	}
	if err := s.Store.SavePlayerStats(ctx, externalUserID, player.Stats); err != nil {
		return game.PlayerStats{}, nil, err
	}

	log.Printf("🎮 XP Awarded: %s → XP=%d, Lvl=%d (reason: %s, unlocked: %d)",
		externalUserID, player.Stats.TotalXP, player.Stats.Level, reason, len(newly))
	return player.Stats, newly, nil
}
