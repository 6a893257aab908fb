package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// ConfigError describes the first invalid field found by Validate.
//
//nolint:revive // ConfigError reads better than Error at call sites
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks cfg and returns a *ConfigError for the first problem found.
func Validate(cfg *Config) error {
	if err := validateApp(&cfg.App); err != nil {
		return err
	}
	if err := validateAPI(&cfg.API); err != nil {
		return err
	}
	if err := validatePagination(&cfg.Pagination); err != nil {
		return err
	}
	if err := validateCache(&cfg.Cache); err != nil {
		return err
	}
	return validateLog(&cfg.Log)
}

func validateApp(cfg *AppConfig) error {
	if cfg.Name == "" {
		return invalid("app.name", "is required")
	}
	validEnvs := []string{EnvDevelopment, EnvStaging, EnvProduction}
	if !slices.Contains(validEnvs, cfg.Env) {
		return invalid("app.env", "%q must be one of: %s", cfg.Env, strings.Join(validEnvs, ", "))
	}
	return nil
}

func validateAPI(cfg *APIConfig) error {
	if cfg.BaseURL == "" {
		return invalid("api.baseurl", "is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("api.baseurl", "%q must be an absolute http(s) URL", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		return invalid("api.timeout", "must be positive")
	}
	if cfg.Retries < 0 {
		return invalid("api.retries", "cannot be negative")
	}
	if cfg.RetryDelay < 0 {
		return invalid("api.retrydelay", "cannot be negative")
	}
	if cfg.RateLimit < 0 {
		return invalid("api.ratelimit", "cannot be negative")
	}
	if cfg.RateLimit > 0 && cfg.RateBurst <= 0 {
		return invalid("api.rateburst", "must be positive when rate limiting is enabled")
	}
	return nil
}

func validatePagination(cfg *PaginationConfig) error {
	if cfg.Page < 1 {
		return invalid("pagination.page", "must be at least 1")
	}
	if cfg.Max < 1 {
		return invalid("pagination.max", "must be at least 1")
	}
	if cfg.Size < 1 || cfg.Size > cfg.Max {
		return invalid("pagination.size", "must be between 1 and %d", cfg.Max)
	}
	return nil
}

func validateCache(cfg *CacheConfig) error {
	switch cfg.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if cfg.Redis.Host == "" {
			return invalid("cache.redis.host", "is required for the redis backend")
		}
		if cfg.Redis.Port <= 0 || cfg.Redis.Port > 65535 {
			return invalid("cache.redis.port", "invalid port: %d", cfg.Redis.Port)
		}
	default:
		return invalid("cache.backend", "%q must be %s or %s", cfg.Backend, CacheBackendMemory, CacheBackendRedis)
	}
	if cfg.TTL.Default <= 0 || cfg.TTL.Videos <= 0 || cfg.TTL.Stats <= 0 {
		return invalid("cache.ttl", "durations must be positive")
	}
	return nil
}

func validateLog(cfg *LogConfig) error {
	valid := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	if !slices.Contains(valid, cfg.Level) {
		return invalid("log.level", "%q must be one of: %s", cfg.Level, strings.Join(valid, ", "))
	}
	return nil
}
