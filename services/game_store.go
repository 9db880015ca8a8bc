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
	"gorm.io/gorm/clause"
)

// PhotoSigner turns a stored photo key into a URL the client can load.
type PhotoSigner func(ctx context.Context, key string) (string, error)

// GameStore is the Postgres side of the game engine. It implements every
// collaborator interface in package game.
type GameStore struct {
	DB           *gorm.DB
	PresignPhoto PhotoSigner // optional
}

func NewGameStore(db *gorm.DB, signer PhotoSigner) *GameStore {
	return &GameStore{DB: db, PresignPhoto: signer}
}

// Deps wires the store into an engine.
func (s *GameStore) Deps() game.Dependencies {
	return game.Dependencies{
		Items:      s,
		Stats:      s,
		Catalog:    s,
		Unlocks:    s,
		Decisions:  s,
		Sessions:   s,
		ItemStatus: s,
	}
}

// AvailableItems returns the inventory's items the user has not decided yet,
// newest first.
func (s *GameStore) AvailableItems(ctx context.Context, inventoryID, userID string) (game.ItemQueue, error) {
	db := s.DB.WithContext(ctx)

	var member models.InventoryMember
	err := db.Where("inventory_id = ? AND external_user_id = ?", inventoryID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return game.ItemQueue{}, game.ErrAccessDenied
	}
	if err != nil {
		return game.ItemQueue{}, fmt.Errorf("membership lookup failed: %w", err)
	}

	var items []models.Item
	if err := db.Where("inventory_id = ?", inventoryID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return game.ItemQueue{}, fmt.Errorf("failed to load items: %w", err)
	}

	var decidedIDs []string
	if err := db.Model(&models.ItemDecision{}).
		Where("external_user_id = ? AND item_id IN (?)", userID,
			db.Model(&models.Item{}).Select("id").Where("inventory_id = ?", inventoryID)).
		Distinct().
		Pluck("item_id", &decidedIDs).Error; err != nil {
		return game.ItemQueue{}, fmt.Errorf("failed to load decisions: %w", err)
	}
	decided := make(map[string]bool, len(decidedIDs))
	for _, id := range decidedIDs {
		decided[id] = true
	}

	queue := game.ItemQueue{TotalItems: len(items)}
	for _, it := range items {
		if decided[it.ID] {
			queue.DecidedCount++
			continue
		}
		queue.Items = append(queue.Items, game.Item{
			ID:       it.ID,
			Name:     it.Name,
			Notes:    it.Description,
			ImageRef: s.photoURL(ctx, it),
			Category: it.Category,
			Location: it.Location,
		})
	}
	return queue, nil
}

func (s *GameStore) photoURL(ctx context.Context, it models.Item) string {
	if it.PhotoKey == "" || s.PresignPhoto == nil {
		return it.PhotoURL
	}
	url, err := s.PresignPhoto(ctx, it.PhotoKey)
	if err != nil {
		log.Printf("⚠️  [GameStore] Could not presign photo for item %s: %v", it.ID, err)
		return it.PhotoURL
	}
	return url
}

func (s *GameStore) LoadPlayerStats(ctx context.Context, userID string) (game.PlayerStats, error) {
	row, err := ensureStatsRecord(s.DB.WithContext(ctx), userID)
	if err != nil {
		return game.PlayerStats{}, err
	}
	return toGameStats(row), nil
}

// SavePlayerStats overwrites the stats row under a row lock.
func (s *GameStore) SavePlayerStats(ctx context.Context, userID string, stats game.PlayerStats) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureStatsRecord(tx, userID); err != nil {
			return err
		}
		var row models.PlayerStats
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_user_id = ?", userID).
			First(&row).Error; err != nil {
			return fmt.Errorf("stats record not found for %s: %w", userID, err)
		}

		now := time.Now()
		level := game.Level(stats.TotalXP)
		if level > row.Level {
			row.LastLevelUpAt = &now
		}
		row.TotalXP = stats.TotalXP
		row.Level = level
		row.CurrentStreak = stats.CurrentStreak
		row.LongestStreak = stats.LongestStreak
		row.TotalDecisions = stats.TotalDecisions
		row.QuickDecisions = stats.QuickDecisions
		row.LastActivityAt = &now
		return tx.Save(&row).Error
	})
}

// LoadAchievements returns the catalog. Rows with a requirement type the
// engine does not know are skipped.
func (s *GameStore) LoadAchievements(ctx context.Context) ([]game.Achievement, error) {
	var rows []models.Achievement
	if err := s.DB.WithContext(ctx).Order("xp_reward ASC, code ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}
	out := make([]game.Achievement, 0, len(rows))
	for _, r := range rows {
		a, err := toGameAchievement(r)
		if err != nil {
			log.Printf("⚠️  [GameStore] Skipping achievement %s: %v", r.Code, err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *GameStore) LoadUnlocked(ctx context.Context, userID string) (map[string]time.Time, error) {
	var rows []models.UserAchievement
	if err := s.DB.WithContext(ctx).Where("external_user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load unlocked achievements: %w", err)
	}
	out := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		out[r.AchievementID] = r.UnlockedAt
	}
	return out, nil
}

// RecordUnlock is a no-op when the pair already exists.
func (s *GameStore) RecordUnlock(ctx context.Context, userID, achievementID string, at time.Time) error {
	ua := models.UserAchievement{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		AchievementID:  achievementID,
		UnlockedAt:     at,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&ua).Error
}

// AppendDecision ignores a replay of the same (item, user, session).
func (s *GameStore) AppendDecision(ctx context.Context, rec game.DecisionRecord) error {
	row := models.ItemDecision{
		ID:              uuid.NewString(),
		ItemID:          rec.ItemID,
		ExternalUserID:  rec.UserID,
		SessionID:       rec.SessionID,
		Decision:        string(rec.Decision),
		DecisionTimeMs:  rec.DecisionTimeMs,
		XPEarned:        rec.XPEarned,
		StreakCount:     rec.StreakCount,
		ComboMultiplier: rec.ComboMultiplier,
		CreatedAt:       rec.DecidedAt,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "external_user_id"}, {Name: "session_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

func (s *GameStore) CreateSession(ctx context.Context, rec game.NewSessionRecord) (string, error) {
	row := models.GameSession{
		ID:             uuid.NewString(),
		ExternalUserID: rec.UserID,
		InventoryID:    rec.InventoryID,
		GameMode:       string(rec.Mode),
		TotalItems:     len(rec.ItemIDs),
		StartedAt:      rec.StartedAt,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return row.ID, nil
}

// FinalizeSession writes the end-of-session counters.
func (s *GameStore) FinalizeSession(ctx context.Context, sessionID string, sum game.Summary) error {
	endedAt := sum.EndedAt
	res := s.DB.WithContext(ctx).Model(&models.GameSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"total_items":   sum.TotalItems,
			"items_decided": sum.ItemsDecided,
			"items_kept":    sum.ItemsKept,
			"items_tossed":  sum.ItemsTossed,
			"session_xp":    sum.SessionXP,
			"max_streak":    sum.MaxStreak,
			"is_completed":  sum.Completed,
			"end_reason":    string(sum.Reason),
			"ended_at":      &endedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to finalize session %s: %w", sessionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session %s: %w", sessionID, gorm.ErrRecordNotFound)
	}
	return nil
}

// SetItemDecision marks the item decided and records the user's vote.
func (s *GameStore) SetItemDecision(ctx context.Context, userID, itemID string, d game.Decision) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Item{}).Where("id = ?", itemID).Updates(map[string]interface{}{
			"status":   string(d),
			"decision": string(d),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("item %s: %w", itemID, gorm.ErrRecordNotFound)
		}

		vote := models.Vote{
			ID:             uuid.NewString(),
			ItemID:         itemID,
			ExternalUserID: userID,
			Vote:           string(d),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"vote", "updated_at"}),
		}).Create(&vote).Error
	})
}

func toGameStats(row *models.PlayerStats) game.PlayerStats {
	return game.PlayerStats{
		TotalXP:        row.TotalXP,
		Level:          game.Level(row.TotalXP),
		CurrentStreak:  row.CurrentStreak,
		LongestStreak:  row.LongestStreak,
		TotalDecisions: row.TotalDecisions,
		QuickDecisions: row.QuickDecisions,
	}
}

func toGameAchievement(r models.Achievement) (game.Achievement, error) {
	kind, err := game.ParseRequirementKind(r.RequirementType)
	if err != nil {
		return game.Achievement{}, err
	}
	return game.Achievement{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Icon:        r.Icon,
		Category:    r.Category,
		XPReward:    r.XPReward,
		Requirement: game.Requirement{Kind: kind, Value: r.RequirementValue},
	}, nil
}
