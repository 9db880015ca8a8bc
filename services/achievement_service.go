package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"tosslee/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementService struct {
	DB *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

// AchievementCode derives the stable catalog code from a display name.
func AchievementCode(name string) string {
	return slug.Make(name)
}

var categoryTitle = cases.Title(language.English)

// CategoryLabel turns a stored category such as "milestone" or "quick_sort"
// into a display label.
func CategoryLabel(category string) string {
	if category == "" {
		return ""
	}
	spaced := []rune(category)
	for i, r := range spaced {
		if r == '_' || r == '-' {
			spaced[i] = ' '
		}
	}
	return categoryTitle.String(string(spaced))
}

// SeedCatalog upserts the given achievements by code. Existing rows keep
// their id so unlocks stay attached.
func (s *AchievementService) SeedCatalog(ctx context.Context, catalog []models.Achievement) error {
	rows := make([]models.Achievement, 0, len(catalog))
	for _, a := range catalog {
		if a.Code == "" {
			a.Code = AchievementCode(a.Name)
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		rows = append(rows, a)
	}
	if len(rows) == 0 {
		return nil
	}

	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"description",
			"icon",
			"category",
			"xp_reward",
			"requirement_type",
			"requirement_value",
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to seed achievements: %w", err)
	}
	log.Printf("🎖️ Achievement catalog seeded (%d entries)", len(rows))
	return nil
}

// AchievementStatus is a catalog entry as seen by one player.
type AchievementStatus struct {
	models.Achievement
	CategoryLabel string     `json:"category_label"`
	IsUnlocked    bool       `json:"is_unlocked"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty"`
}

// ListForUser returns the full catalog with the user's unlock state.
func (s *AchievementService) ListForUser(ctx context.Context, externalUserID string) ([]AchievementStatus, error) {
	db := s.DB.WithContext(ctx)

	var catalog []models.Achievement
	if err := db.Order("xp_reward ASC, code ASC").Find(&catalog).Error; err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}

	var unlocked []models.UserAchievement
	if err := db.Where("external_user_id = ?", externalUserID).Find(&unlocked).Error; err != nil {
		return nil, fmt.Errorf("failed to load unlocked achievements: %w", err)
	}
	at := make(map[string]time.Time, len(unlocked))
	for _, ua := range unlocked {
		at[ua.AchievementID] = ua.UnlockedAt
	}

	out := make([]AchievementStatus, 0, len(catalog))
	for _, a := range catalog {
		st := AchievementStatus{Achievement: a, CategoryLabel: CategoryLabel(a.Category)}
		if t, ok := at[a.ID]; ok {
			t := t
			st.IsUnlocked = true
			st.UnlockedAt = &t
		}
		out = append(out, st)
	}
	return out, nil
}
