package services

import (
	"testing"

	"tosslee/game"
	"tosslee/models"
)

func TestAchievementCode(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"First Sort", "first-sort"},
		{"Lightning Hands", "lightning-hands"},
		{"Déjà Vu", "deja-vu"},
	}
	for _, tt := range tests {
		if got := AchievementCode(tt.name); got != tt.want {
			t.Errorf("AchievementCode(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"milestone", "Milestone"},
		{"quick_sort", "Quick Sort"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CategoryLabel(tt.in); got != tt.want {
			t.Errorf("CategoryLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultAchievementsAreValid(t *testing.T) {
	codes := make(map[string]bool)
	for _, a := range models.DefaultAchievements {
		code := AchievementCode(a.Name)
		if codes[code] {
			t.Errorf("duplicate code %q", code)
		}
		codes[code] = true

		ga, err := toGameAchievement(a)
		if err != nil {
			t.Errorf("%s: %v", a.Name, err)
			continue
		}
		if ga.XPReward <= 0 || ga.Requirement.Value <= 0 {
			t.Errorf("%s: non-positive reward or threshold", a.Name)
		}
	}
}

func TestToGameAchievementRejectsUnknownType(t *testing.T) {
	_, err := toGameAchievement(models.Achievement{Name: "x", RequirementType: "sessions", RequirementValue: 1})
	if err == nil {
		t.Fatal("expected error for unknown requirement type")
	}
	ga, err := toGameAchievement(models.Achievement{ID: "a", RequirementType: models.RequirementStreak, RequirementValue: 5})
	if err != nil || ga.Requirement.Kind != game.RequireStreak {
		t.Errorf("got %+v, %v", ga, err)
	}
}
