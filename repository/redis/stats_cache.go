package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/taskhub/backend/domain"
)

// StatsCache is a read-through cache for per-user task statistics. A miss is
// reported via the bool return, not an error; the aggregator recomputes and
// stores the snapshot. Mutating task operations invalidate the entry.
type StatsCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewStatsCache creates a Redis-backed statistics cache.
func NewStatsCache(client *redislib.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatsCache{
		client: client,
		prefix: "stats:",
		ttl:    ttl,
	}
}

func (c *StatsCache) Get(ctx context.Context, userID int64) (*domain.TaskStats, bool, error) {
	result, err := c.client.Get(ctx, c.key(userID)).Result()
	if err != nil {
		if err == redislib.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var stats domain.TaskStats
	if err := json.Unmarshal([]byte(result), &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *StatsCache) Set(ctx context.Context, userID int64, stats *domain.TaskStats) error {
	if stats == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(userID), payload, c.ttl).Err()
}

func (c *StatsCache) Invalidate(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}

func (c *StatsCache) key(userID int64) string {
	return fmt.Sprintf("%s%d", c.prefix, userID)
}
