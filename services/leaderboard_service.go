package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tosslee/cache"
	"tosslee/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnknownLeaderboard = errors.New("unknown leaderboard type")

// LeaderboardTypes is every board refreshed for a player.
var LeaderboardTypes = []string{
	models.LeaderboardWeeklyXP,
	models.LeaderboardMonthlyXP,
	models.LeaderboardAllTimeXP,
	models.LeaderboardStreak,
}

var (
	allTimeStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	allTimeEnd   = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Period returns the [start, end) window of the board containing now, in UTC.
// Weeks start on Sunday. An empty type means weekly XP.
func Period(boardType string, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch boardType {
	case "", models.LeaderboardWeeklyXP:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7), nil
	case models.LeaderboardMonthlyXP:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	case models.LeaderboardAllTimeXP, models.LeaderboardStreak:
		return allTimeStart, allTimeEnd, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownLeaderboard, boardType)
}

// Board is a ranked store the service mirrors scores into.
type Board interface {
	Publish(ctx context.Context, key string, scores map[string]int64) error
	Top(ctx context.Context, key string, n int64) ([]cache.Standing, error)
	Rank(ctx context.Context, key, userID string) (int, error)
}

type LeaderboardService struct {
	DB    *gorm.DB
	Cache Board // optional
	Now   func() time.Time
}

func NewLeaderboardService(db *gorm.DB, board Board) *LeaderboardService {
	return &LeaderboardService{DB: db, Cache: board, Now: time.Now}
}

// Standing is one row of a leaderboard response.
type Standing struct {
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
	Rank   int    `json:"rank"`
}

type Standings struct {
	Type        string     `json:"type"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	Entries     []Standing `json:"leaderboard"`
	UserRank    *Standing  `json:"user_rank"`
}

// RefreshUser recomputes the caller's entry on every board and re-ranks.
func (s *LeaderboardService) RefreshUser(ctx context.Context, userID string) error {
	for _, t := range LeaderboardTypes {
		if err := s.refresh(ctx, t, []string{userID}); err != nil {
			return err
		}
	}
	return nil
}

// RefreshChanged refreshes every board for players whose stats changed
// since the given time. It returns how many players were refreshed.
func (s *LeaderboardService) RefreshChanged(ctx context.Context, since time.Time) (int, error) {
	var userIDs []string
	if err := s.DB.WithContext(ctx).Model(&models.PlayerStats{}).
		Where("updated_at >= ?", since).
		Pluck("external_user_id", &userIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to list changed players: %w", err)
	}
	if len(userIDs) == 0 {
		return 0, nil
	}
	for _, t := range LeaderboardTypes {
		if err := s.refresh(ctx, t, userIDs); err != nil {
			return 0, err
		}
	}
	return len(userIDs), nil
}

func (s *LeaderboardService) refresh(ctx context.Context, boardType string, userIDs []string) error {
	start, end, err := Period(boardType, s.Now())
	if err != nil {
		return err
	}
	scores, err := s.scores(ctx, boardType, start, end, userIDs)
	if err != nil {
		return fmt.Errorf("failed to compute %s scores: %w", boardType, err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(scores))
	for userID, score := range scores {
		entries = append(entries, models.LeaderboardEntry{
			ID:              uuid.NewString(),
			ExternalUserID:  userID,
			LeaderboardType: boardType,
			PeriodStart:     start,
			PeriodEnd:       end,
			Score:           score,
		})
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(entries) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "external_user_id"},
					{Name: "leaderboard_type"},
					{Name: "period_start"},
				},
				DoUpdates: clause.AssignmentColumns([]string{"score", "period_end", "updated_at"}),
			}).Create(&entries).Error; err != nil {
				return err
			}
		}
		return tx.Exec(`
			UPDATE leaderboard_entries AS le
			SET rank = r.rn
			FROM (
				SELECT id, ROW_NUMBER() OVER (ORDER BY score DESC, external_user_id ASC) AS rn
				FROM leaderboard_entries
				WHERE leaderboard_type = ? AND period_start = ?
			) r
			WHERE le.id = r.id`, boardType, start).Error
	})
	if err != nil {
		return fmt.Errorf("failed to update %s leaderboard: %w", boardType, err)
	}

	if s.Cache != nil {
		if err := s.Cache.Publish(ctx, cache.Key(boardType, start), scores); err != nil {
			log.Printf("⚠️  [Leaderboard] Cache publish failed for %s: %v", boardType, err)
		}
	}
	return nil
}

// scores reads the current score of each listed player. Players with no
// activity in the window score zero.
func (s *LeaderboardService) scores(ctx context.Context, boardType string, start, end time.Time, userIDs []string) (map[string]int64, error) {
	type row struct {
		ExternalUserID string
		Score          int64
	}
	var rows []row
	db := s.DB.WithContext(ctx)

	var q *gorm.DB
	switch boardType {
	case models.LeaderboardWeeklyXP, models.LeaderboardMonthlyXP:
		q = db.Model(&models.GameSession{}).
			Select("external_user_id, COALESCE(SUM(session_xp), 0) AS score").
			Where("ended_at >= ? AND ended_at < ?", start, end).
			Where("external_user_id IN ?", userIDs).
			Group("external_user_id")
	case models.LeaderboardAllTimeXP:
		q = db.Model(&models.PlayerStats{}).
			Select("external_user_id, total_xp AS score").
			Where("external_user_id IN ?", userIDs)
	case models.LeaderboardStreak:
		q = db.Model(&models.PlayerStats{}).
			Select("external_user_id, longest_streak AS score").
			Where("external_user_id IN ?", userIDs)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLeaderboard, boardType)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(userIDs))
	for _, id := range userIDs {
		out[id] = 0
	}
	for _, r := range rows {
		out[r.ExternalUserID] = r.Score
	}
	return out, nil
}

// Top returns the leading entries of the current period and the caller's
// own standing. Ranks come from the cache when one is configured.
func (s *LeaderboardService) Top(ctx context.Context, boardType string, limit int, userID string) (*Standings, error) {
	if boardType == "" {
		boardType = models.LeaderboardWeeklyXP
	}
	start, end, err := Period(boardType, s.Now())
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	out := &Standings{Type: boardType, PeriodStart: start, PeriodEnd: end}

	if s.Cache != nil {
		if ok := s.topFromCache(ctx, out, limit, userID); ok {
			return out, nil
		}
	}

	db := s.DB.WithContext(ctx)
	var entries []models.LeaderboardEntry
	if err := db.Where("leaderboard_type = ? AND period_start = ?", boardType, start).
		Order("rank ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	out.Entries = make([]Standing, 0, len(entries))
	for _, e := range entries {
		out.Entries = append(out.Entries, Standing{UserID: e.ExternalUserID, Score: e.Score, Rank: e.Rank})
	}

	if userID != "" {
		var mine models.LeaderboardEntry
		err := db.Where("external_user_id = ? AND leaderboard_type = ? AND period_start = ?", userID, boardType, start).
			First(&mine).Error
		if err == nil {
			out.UserRank = &Standing{UserID: userID, Score: mine.Score, Rank: mine.Rank}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load user rank: %w", err)
		}
	}
	return out, nil
}

func (s *LeaderboardService) topFromCache(ctx context.Context, out *Standings, limit int, userID string) bool {
	key := cache.Key(out.Type, out.PeriodStart)
	top, err := s.Cache.Top(ctx, key, int64(limit))
	if err != nil {
		log.Printf("⚠️  [Leaderboard] Cache read failed for %s, using database: %v", key, err)
		return false
	}
	if len(top) == 0 {
		return false
	}
	out.Entries = make([]Standing, 0, len(top))
	for _, st := range top {
		out.Entries = append(out.Entries, Standing{UserID: st.UserID, Score: st.Score, Rank: st.Rank})
		if st.UserID == userID {
			mine := Standing{UserID: userID, Score: st.Score, Rank: st.Rank}
			out.UserRank = &mine
		}
	}
	if userID != "" && out.UserRank == nil {
		rank, err := s.Cache.Rank(ctx, key, userID)
		if err != nil {
			log.Printf("⚠️  [Leaderboard] Cache rank failed for %s: %v", userID, err)
			return false
		}
		if rank > 0 {
			var mine models.LeaderboardEntry
			if err := s.DB.WithContext(ctx).
				Where("external_user_id = ? AND leaderboard_type = ? AND period_start = ?", userID, out.Type, out.PeriodStart).
				First(&mine).Error; err == nil {
				out.UserRank = &Standing{UserID: userID, Score: mine.Score, Rank: rank}
			}
		}
	}
	return true
}
