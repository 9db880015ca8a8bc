package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const leaderboardPrefix = "leaderboard:"

// Standing is one member of a cached leaderboard.
type Standing struct {
	UserID string
	Score  int64
	Rank   int // 1-based
}

type RedisLeaderboard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLeaderboard(addr string, ttl time.Duration) *RedisLeaderboard {
	return &RedisLeaderboard{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		ttl: ttl,
	}
}

// Ping checks the connection at startup.
func (c *RedisLeaderboard) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisLeaderboard) Close() error {
	return c.client.Close()
}

// Key names the sorted set for a leaderboard period.
func Key(boardType string, periodStart time.Time) string {
	return fmt.Sprintf("%s%s:%s", leaderboardPrefix, boardType, periodStart.UTC().Format("2006-01-02"))
}

// Scores are stored negated so ZRANGE returns the highest score first and
// equal scores fall back to member order, same as the database ranking.
func redisScore(score int64) float64 {
	return float64(-score)
}

// Publish writes the scores of one period and refreshes the key's expiry.
func (c *RedisLeaderboard) Publish(ctx context.Context, key string, scores map[string]int64) error {
	if len(scores) == 0 {
		return nil
	}
	members := make([]*redis.Z, 0, len(scores))
	for userID, score := range scores {
		members = append(members, &redis.Z{Score: redisScore(score), Member: userID})
	}
	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, key, members...)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Top returns the first n standings of a period.
func (c *RedisLeaderboard) Top(ctx context.Context, key string, n int64) ([]Standing, error) {
	zs, err := c.client.ZRangeWithScores(ctx, key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Standing, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, Standing{UserID: member, Score: int64(-z.Score), Rank: i + 1})
	}
	return out, nil
}

// Rank returns the player's 1-based rank, or 0 when the player is not on the board.
func (c *RedisLeaderboard) Rank(ctx context.Context, key, userID string) (int, error) {
	r, err := c.client.ZRank(ctx, key, userID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(r) + 1, nil
}
