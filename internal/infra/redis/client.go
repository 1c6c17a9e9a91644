package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// feedLength bounds the recent escalation feed kept in Redis.
const feedLength = 100

// Client wraps Redis operations for the operations-channel feed.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Channel  string `yaml:"channel"`
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

func feedKey(channel string) string {
	return fmt.Sprintf("escalations:%s:recent", channel)
}

// Publish sends the payload to subscribers of the channel and appends it to
// the bounded recent feed.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, feedKey(channel), payload)
	pipe.LTrim(ctx, feedKey(channel), 0, feedLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("feed update failed: %w", err)
	}
	return nil
}

// RecentFeed returns the most recent payloads published to the channel,
// newest first.
func (c *Client) RecentFeed(ctx context.Context, channel string, limit int) ([]string, error) {
	if limit <= 0 || limit > feedLength {
		limit = feedLength
	}
	vals, err := c.rdb.LRange(ctx, feedKey(channel), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}
	return vals, nil
}
