// Package cache provides the Redis backed leaderboard cache.
// Storage stays the source of truth; cached entries only shorten reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mentesana/memoria/internal/infra/storage"
)

// ErrMiss reports that a key is not cached.
var ErrMiss = errors.New("cache miss")

// RedisClient is the subset of Redis operations the cache needs.
// This allows for easy mocking in tests.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// GoRedisClient adapts *redis.Client to RedisClient.
type GoRedisClient struct {
	rdb *redis.Client
}

// NewGoRedisClient connects to Redis and verifies the connection with PING.
func NewGoRedisClient(ctx context.Context, addr, password string, db int) (*GoRedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &GoRedisClient{rdb: rdb}, nil
}

func (c *GoRedisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (c *GoRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

func (c *GoRedisClient) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Close closes the underlying connection pool.
func (c *GoRedisClient) Close() error {
	return c.rdb.Close()
}

// LeaderboardCache stores ranked results per difficulty. Each entry holds
// the top MaxLeaderboardLimit results so every requested limit can be served
// from one key.
type LeaderboardCache struct {
	client     RedisClient
	expiration time.Duration
}

// NewLeaderboardCache creates a new leaderboard cache instance.
func NewLeaderboardCache(client RedisClient, expiration time.Duration) *LeaderboardCache {
	if expiration <= 0 {
		expiration = 30 * time.Second
	}
	return &LeaderboardCache{
		client:     client,
		expiration: expiration,
	}
}

// Get returns the cached ranking for difficulty ("" for all) or ErrMiss.
func (c *LeaderboardCache) Get(ctx context.Context, difficulty string) ([]storage.GameResult, error) {
	data, err := c.client.Get(ctx, c.leaderboardKey(difficulty))
	if err != nil {
		return nil, err
	}

	var results []storage.GameResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal leaderboard: %w", err)
	}
	return results, nil
}

// Set caches the ranking for difficulty.
func (c *LeaderboardCache) Set(ctx context.Context, difficulty string, results []storage.GameResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	return c.client.Set(ctx, c.leaderboardKey(difficulty), string(data), c.expiration)
}

// Invalidate drops the ranking of difficulty and the overall ranking.
func (c *LeaderboardCache) Invalidate(ctx context.Context, difficulty string) error {
	return c.client.Del(ctx, c.leaderboardKey(difficulty), c.leaderboardKey(""))
}

func (c *LeaderboardCache) leaderboardKey(difficulty string) string {
	if difficulty == "" {
		difficulty = "all"
	}
	return fmt.Sprintf("memoria:leaderboard:%s", difficulty)
}
