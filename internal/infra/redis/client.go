package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// seenTTL bounds how long a transaction hash stays in the fast dedup path.
// The database unique constraint remains authoritative beyond it.
const seenTTL = 48 * time.Hour

// Client wraps Redis operations for the dedup fast path.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func seenKey(hash string) string {
	return fmt.Sprintf("bridge:seen:%s", hash)
}

// MarkSeen records a transaction hash and reports whether this was its
// first sighting. Replays after a reconnect come back false.
func (c *Client) MarkSeen(ctx context.Context, hash string) (bool, error) {
	first, err := c.rdb.SetNX(ctx, seenKey(hash), "1", seenTTL).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return first, nil
}

// ClearSeen drops a hash from the fast path, forcing the next sighting
// through the database.
func (c *Client) ClearSeen(ctx context.Context, hash string) error {
	return c.rdb.Del(ctx, seenKey(hash)).Err()
}
