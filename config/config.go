// Package config loads the dashboard client configuration with koanf.
//
// Sources are layered with increasing priority:
//  1. built-in defaults
//  2. an optional YAML file (config.yaml by default)
//  3. SAFEFALL_* environment variables, e.g. SAFEFALL_API_BASEURL -> api.baseurl
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "SAFEFALL_"

// DefaultFile is the YAML file Load looks for in the working directory.
const DefaultFile = "config.yaml"

// Load reads configuration from defaults, DefaultFile (if present) and the environment.
func Load() (*Config, error) {
	return LoadFrom(DefaultFile)
}

// LoadFrom is Load with an explicit YAML path. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	if err := k.Load(envprovider.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	Normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Normalize trims trailing slashes from the base URL and lower-cases enum-like fields.
func Normalize(cfg *Config) {
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":  "safefall-dashboard",
		"app.env":   EnvDevelopment,
		"app.debug": false,

		"api.baseurl":    "http://localhost:8000/api/v1",
		"api.timeout":    "15s",
		"api.retries":    1,
		"api.retrydelay": "1s",
		"api.ratelimit":  0,
		"api.rateburst":  1,

		"auth.tokenfile": "",

		"pagination.page": 1,
		"pagination.size": 20,
		"pagination.max":  100,

		"cache.enabled":        true,
		"cache.backend":        CacheBackendMemory,
		"cache.ttl.default":    "5m",
		"cache.ttl.videos":     "2m",
		"cache.ttl.stats":      "30s",
		"cache.redis.host":     "localhost",
		"cache.redis.port":     6379,
		"cache.redis.database": 0,
		"cache.redis.poolsize": 10,
		"cache.redis.prefix":   "safefall:http:",

		"log.level":  "info",
		"log.pretty": false,

		"metrics.enabled":     false,
		"metrics.endpoint":    "stdout",
		"metrics.protocol":    "http",
		"metrics.insecure":    false,
		"metrics.temporality": "cumulative",
		"metrics.interval":    "30s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
