package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the process-wide configuration of the dashboard client.
// It is loaded once at start-up and handed to every constructor that needs it.
type Config struct {
	App        AppConfig        `koanf:"app" json:"app" yaml:"app"`
	API        APIConfig        `koanf:"api" json:"api" yaml:"api"`
	Auth       AuthConfig       `koanf:"auth" json:"auth" yaml:"auth"`
	Pagination PaginationConfig `koanf:"pagination" json:"pagination" yaml:"pagination"`
	Cache      CacheConfig      `koanf:"cache" json:"cache" yaml:"cache"`
	Log        LogConfig        `koanf:"log" json:"log" yaml:"log"`
	Metrics    MetricsConfig    `koanf:"metrics" json:"metrics" yaml:"metrics"`

	// k holds the underlying Koanf instance for flexible access to custom keys
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name  string `koanf:"name" json:"name" yaml:"name"`
	Env   string `koanf:"env" json:"env" yaml:"env"`
	Debug bool   `koanf:"debug" json:"debug" yaml:"debug"`
}

// APIConfig describes how the access layer reaches the backend.
type APIConfig struct {
	// BaseURL is joined with relative request paths. Trailing slashes are trimmed on load.
	BaseURL    string        `koanf:"baseurl" json:"baseurl" yaml:"baseurl"`
	Timeout    time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
	Retries    int           `koanf:"retries" json:"retries" yaml:"retries"`
	RetryDelay time.Duration `koanf:"retrydelay" json:"retrydelay" yaml:"retrydelay"`
	// RateLimit is requests per second; zero disables client-side limiting.
	RateLimit float64 `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit"`
	RateBurst int     `koanf:"rateburst" json:"rateburst" yaml:"rateburst"`
}

// AuthConfig holds token persistence settings.
type AuthConfig struct {
	// TokenFile is where the access/refresh token pair survives restarts.
	// Empty keeps tokens in memory only.
	TokenFile string `koanf:"tokenfile" json:"tokenfile" yaml:"tokenfile"`
}

// PaginationConfig holds list defaults.
type PaginationConfig struct {
	Page int `koanf:"page" json:"page" yaml:"page"`
	Size int `koanf:"size" json:"size" yaml:"size"`
	Max  int `koanf:"max" json:"max" yaml:"max"`
}

// CacheConfig selects the response cache backend and its TTLs.
type CacheConfig struct {
	Enabled bool        `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Backend string      `koanf:"backend" json:"backend" yaml:"backend"`
	TTL     TTLConfig   `koanf:"ttl" json:"ttl" yaml:"ttl"`
	Redis   RedisConfig `koanf:"redis" json:"redis" yaml:"redis"`
}

// TTLConfig holds per-resource cache durations.
type TTLConfig struct {
	Default time.Duration `koanf:"default" json:"default" yaml:"default"`
	Videos  time.Duration `koanf:"videos" json:"videos" yaml:"videos"`
	Stats   time.Duration `koanf:"stats" json:"stats" yaml:"stats"`
}

// RedisConfig is used when Backend is "redis".
type RedisConfig struct {
	Host     string `koanf:"host" json:"host" yaml:"host"`
	Port     int    `koanf:"port" json:"port" yaml:"port"`
	Password string `koanf:"password" json:"password" yaml:"password"` //nolint:gosec // loaded from env
	Database int    `koanf:"database" json:"database" yaml:"database"`
	PoolSize int    `koanf:"poolsize" json:"poolsize" yaml:"poolsize"`
	Prefix   string `koanf:"prefix" json:"prefix" yaml:"prefix"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// MetricsConfig controls export of the access layer's OpenTelemetry metrics.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	// Endpoint is "stdout" or an OTLP collector address.
	Endpoint    string        `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	Protocol    string        `koanf:"protocol" json:"protocol" yaml:"protocol"`
	Insecure    bool          `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Temporality string        `koanf:"temporality" json:"temporality" yaml:"temporality"`
	Interval    time.Duration `koanf:"interval" json:"interval" yaml:"interval"`
}

// LogLevel returns the effective log level. The debug flag forces "debug" so that
// request tracing shows up without touching log.level.
func (c *Config) LogLevel() string {
	if c.App.Debug {
		return "debug"
	}
	return c.Log.Level
}

// String returns the raw value stored under key, including keys the struct does not model.
func (c *Config) String(key string) string {
	if c.k == nil {
		return ""
	}
	return c.k.String(key)
}
