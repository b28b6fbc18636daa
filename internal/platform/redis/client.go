package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"stewardship/internal/platform/config"
)

const (
	// DefaultKeyPrefix namespaces keys when the config leaves it blank.
	DefaultKeyPrefix = "stewardship"
	// DefaultSummaryTTL keeps reconciliation summaries for a week of
	// follow-up by the treasurer.
	DefaultSummaryTTL = 7 * 24 * time.Hour
)

// Client is the shared go-redis connection plus the key namespace and
// retention this service writes with.
type Client struct {
	*redis.Client
	prefix     string
	summaryTTL time.Duration
}

// New connects to Redis and pings it. Returns nil, nil when no URL is
// configured so callers can fall back to in-process caches.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return wrap(client, cfg), nil
}

func wrap(client *redis.Client, cfg config.RedisConfig) *Client {
	prefix := strings.Trim(cfg.KeyPrefix, ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	ttl := cfg.SummaryTTL
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &Client{Client: client, prefix: prefix, summaryTTL: ttl}
}

// Key joins parts under the configured prefix with ":" separators.
// Empty parts are skipped.
func (c *Client) Key(parts ...string) string {
	key := c.prefix
	for _, p := range parts {
		if p = strings.Trim(p, ":"); p != "" {
			key += ":" + p
		}
	}
	return key
}

// SummaryTTL is how long reconciliation summaries stay retrievable.
func (c *Client) SummaryTTL() time.Duration {
	return c.summaryTTL
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}
