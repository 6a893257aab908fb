// Package redis implements cache.Store on top of Redis so that several dashboard
// processes can share one response cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/safefall/safefall-go/cache"
)

const (
	scanBatch   = 256
	deleteBatch = 256
)

// Client implements cache.Store using Redis as the backend.
type Client struct {
	client *redis.Client
	config Config
	closed atomic.Bool
}

var _ cache.Store = (*Client)(nil)

// NewClient validates cfg, connects and checks the connection with PING.
func NewClient(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address(),
		Password:    cfg.Password,
		DB:          cfg.Database,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", cfg.Address(), err)
	}

	return &Client{client: client, config: cfg}, nil
}

func (c *Client) key(k string) string {
	return c.config.Prefix + k
}

// Get retrieves and decodes an entry. Returns cache.ErrNotFound on a miss.
func (c *Client) Get(ctx context.Context, key string) (*cache.Entry, error) {
	if c.closed.Load() {
		return nil, cache.ErrClosed
	}

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, cache.NewOperationError("get", key, err)
	}

	entry, err := cache.DecodeEntry(data)
	if err != nil {
		return nil, cache.NewOperationError("decode", key, err)
	}
	return entry, nil
}

// Set encodes and stores an entry, applying Config.EntryTTL when set.
func (c *Client) Set(ctx context.Context, key string, entry *cache.Entry) error {
	if c.closed.Load() {
		return cache.ErrClosed
	}

	data, err := cache.EncodeEntry(entry)
	if err != nil {
		return cache.NewOperationError("encode", key, err)
	}

	if err := c.client.Set(ctx, c.key(key), data, c.config.EntryTTL).Err(); err != nil {
		return cache.NewOperationError("set", key, err)
	}
	return nil
}

// DeleteMatching scans the prefixed keyspace for keys containing pattern and deletes them.
func (c *Client) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	if c.closed.Load() {
		return 0, cache.ErrClosed
	}

	match := escapeGlob(c.config.Prefix) + "*"
	if pattern != "" {
		match = escapeGlob(c.config.Prefix) + "*" + escapeGlob(pattern) + "*"
	}

	var (
		cursor  uint64
		pending []string
		deleted int
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := c.client.Del(ctx, pending...).Result()
		if err != nil {
			return cache.NewOperationError("del", pattern, err)
		}
		deleted += int(n)
		pending = pending[:0]
		return nil
	}

	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return deleted, cache.NewOperationError("scan", pattern, err)
		}
		pending = append(pending, keys...)
		if len(pending) >= deleteBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// Health checks the connection with PING.
func (c *Client) Health(ctx context.Context) error {
	if c.closed.Load() {
		return cache.ErrClosed
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return cache.NewOperationError("ping", c.config.Address(), err)
	}
	return nil
}

// Stats returns connection pool statistics.
func (c *Client) Stats() map[string]any {
	poolStats := c.client.PoolStats()
	return map[string]any{
		"backend":          "redis",
		"address":          c.config.Address(),
		"pool_hits":        poolStats.Hits,
		"pool_misses":      poolStats.Misses,
		"pool_timeouts":    poolStats.Timeouts,
		"pool_total_conns": poolStats.TotalConns,
		"pool_idle_conns":  poolStats.IdleConns,
	}
}

// Close closes the Redis client. Close is idempotent.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.client.Close()
}

// escapeGlob escapes characters that are special in Redis MATCH patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
