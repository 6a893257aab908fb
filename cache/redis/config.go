package redis

import (
	"fmt"
	"time"

	"github.com/safefall/safefall-go/cache"
)

// Config holds Redis-specific configuration options.
type Config struct {
	// Host is the Redis server hostname or IP address.
	Host string

	// Port is the Redis server port (default: 6379).
	Port int

	// Password for Redis authentication (optional).
	Password string //nolint:gosec // loaded from env

	// Database number to use (0-15).
	Database int

	// PoolSize is the maximum number of socket connections (default: 10).
	PoolSize int

	// DialTimeout is the timeout for establishing new connections (default: 5s).
	DialTimeout time.Duration

	// Prefix namespaces every key so several dashboards can share one server.
	Prefix string

	// EntryTTL is a hard upper bound on how long Redis keeps an entry.
	// Zero keeps entries until they are invalidated; freshness is still judged by the reader.
	EntryTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
}

// Validate performs fail-fast validation of Redis configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return cache.NewConfigError("redis.host", "host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return cache.NewConfigError("redis.port", fmt.Sprintf("invalid port: %d", c.Port))
	}
	if c.Database < 0 || c.Database > 15 {
		return cache.NewConfigError("redis.database", fmt.Sprintf("invalid database number: %d (must be 0-15)", c.Database))
	}
	if c.PoolSize <= 0 {
		return cache.NewConfigError("redis.pool_size", fmt.Sprintf("invalid pool size: %d (must be > 0)", c.PoolSize))
	}
	if c.EntryTTL < 0 {
		return cache.NewConfigError("redis.entry_ttl", "entry TTL cannot be negative")
	}
	return nil
}

// Address returns the Redis server address in "host:port" format.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
