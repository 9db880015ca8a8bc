package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tosslee/cache"
	"tosslee/models"
)

func TestPeriod(t *testing.T) {
	// Thursday afternoon, in a zone east of UTC
	now := time.Date(2026, 10, 15, 16, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		boardType  string
		start, end time.Time
	}{
		{"", day(2026, 10, 11), day(2026, 10, 18)},
		{models.LeaderboardWeeklyXP, day(2026, 10, 11), day(2026, 10, 18)},
		{models.LeaderboardMonthlyXP, day(2026, 10, 1), day(2026, 11, 1)},
		{models.LeaderboardAllTimeXP, day(2024, 1, 1), day(2100, 1, 1)},
		{models.LeaderboardStreak, day(2024, 1, 1), day(2100, 1, 1)},
	}
	for _, tt := range tests {
		start, end, err := Period(tt.boardType, now)
		if err != nil {
			t.Errorf("Period(%q): %v", tt.boardType, err)
			continue
		}
		if !start.Equal(tt.start) || !end.Equal(tt.end) {
			t.Errorf("Period(%q) = [%v, %v), want [%v, %v)", tt.boardType, start, end, tt.start, tt.end)
		}
	}
}

func TestPeriodWeekStartsOnSunday(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 0, 0, 1, 0, time.UTC)
	start, _, _ := Period(models.LeaderboardWeeklyXP, sunday)
	if !start.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Sunday belongs to the week it starts, got %v", start)
	}
	saturday := time.Date(2026, 10, 17, 23, 59, 59, 0, time.UTC)
	start, _, _ = Period(models.LeaderboardWeeklyXP, saturday)
	if !start.Equal(time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Saturday belongs to the previous Sunday's week, got %v", start)
	}
}

func TestPeriodUnknownType(t *testing.T) {
	if _, _, err := Period("daily_xp", time.Now()); !errors.Is(err, ErrUnknownLeaderboard) {
		t.Errorf("expected ErrUnknownLeaderboard, got %v", err)
	}
}

type fakeBoard struct {
	standings []cache.Standing
	err       error
	keys      []string
}

func (b *fakeBoard) Publish(context.Context, string, map[string]int64) error { return nil }

func (b *fakeBoard) Top(_ context.Context, key string, n int64) ([]cache.Standing, error) {
	b.keys = append(b.keys, key)
	if b.err != nil {
		return nil, b.err
	}
	if int64(len(b.standings)) > n {
		return b.standings[:n], nil
	}
	return b.standings, nil
}

func (b *fakeBoard) Rank(_ context.Context, _ string, userID string) (int, error) {
	for _, s := range b.standings {
		if s.UserID == userID {
			return s.Rank, nil
		}
	}
	return 0, nil
}

func TestTopReadsFromCache(t *testing.T) {
	board := &fakeBoard{standings: []cache.Standing{
		{UserID: "ana", Score: 900, Rank: 1},
		{UserID: "ben", Score: 400, Rank: 2},
		{UserID: "cy", Score: 100, Rank: 3},
	}}
	svc := &LeaderboardService{
		Cache: board,
		Now:   func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) },
	}

	got, err := svc.Top(context.Background(), "", 2, "ben")
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if got.Type != models.LeaderboardWeeklyXP {
		t.Errorf("type = %q", got.Type)
	}
	if len(got.Entries) != 2 || got.Entries[0].UserID != "ana" {
		t.Errorf("entries = %+v", got.Entries)
	}
	if got.UserRank == nil || got.UserRank.Rank != 2 || got.UserRank.Score != 400 {
		t.Errorf("user rank = %+v", got.UserRank)
	}
	if board.keys[0] != "leaderboard:weekly_xp:2026-10-11" {
		t.Errorf("cache key = %q", board.keys[0])
	}
}

func TestTopRejectsUnknownType(t *testing.T) {
	svc := &LeaderboardService{Now: time.Now}
	if _, err := svc.Top(context.Background(), "fastest", 10, ""); !errors.Is(err, ErrUnknownLeaderboard) {
		t.Errorf("expected ErrUnknownLeaderboard, got %v", err)
	}
}
