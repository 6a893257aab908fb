package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/safefall/safefall-go/api"
	"github.com/safefall/safefall-go/cache"
	"github.com/safefall/safefall-go/cache/redis"
	"github.com/safefall/safefall-go/config"
	"github.com/safefall/safefall-go/httpclient"
	"github.com/safefall/safefall-go/logger"
	"github.com/safefall/safefall-go/observability"
	"github.com/safefall/safefall-go/tokenstore"
)

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigFile string
	TokenFile  string
	BaseURL    string
	Debug      bool
	// Version labels exported metrics.
	Version string
}

// session is the wired client stack for one command invocation.
type session struct {
	cfg     *config.Config
	log     logger.Logger
	cache   cache.Store
	client  *httpclient.RESTClient
	api     *api.Service
	metrics observability.Provider
}

func openSession(opts *GlobalOptions, stderr io.Writer) (*session, error) {
	cfg, err := config.LoadFrom(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.BaseURL != "" {
		cfg.API.BaseURL = opts.BaseURL
		config.Normalize(cfg)
	}
	if opts.Debug {
		cfg.App.Debug = true
	}

	log := logger.NewWithWriter(stderr, cfg.LogLevel(), cfg.Log.Pretty).
		WithFields(map[string]any{"app": cfg.App.Name, "env": cfg.App.Env})

	tokens, err := openTokenStore(opts, cfg, log)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewProvider(observability.Config{
		Enabled:        cfg.Metrics.Enabled,
		ServiceName:    cfg.App.Name,
		ServiceVersion: opts.Version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Metrics.Endpoint,
		Protocol:       cfg.Metrics.Protocol,
		Insecure:       cfg.Metrics.Insecure,
		Temporality:    cfg.Metrics.Temporality,
		Interval:       cfg.Metrics.Interval,
	}, observability.WithWriter(stderr))
	if err != nil {
		return nil, err
	}

	clientOpts := []httpclient.Option{
		httpclient.WithLogger(log),
		httpclient.WithTokenStore(tokens),
		httpclient.WithMeterProvider(metrics.MeterProvider()),
	}

	var store cache.Store
	if cfg.Cache.Enabled {
		store, err = openCache(cfg)
		if err != nil {
			_ = observability.Shutdown(metrics, 0)
			return nil, err
		}
		clientOpts = append(clientOpts, httpclient.WithCache(store))
	}

	client := httpclient.New(httpclient.Config{
		BaseURL:          cfg.API.BaseURL,
		Timeout:          cfg.API.Timeout,
		MaxRetries:       clientRetries(cfg.API.Retries),
		RetryDelay:       cfg.API.RetryDelay,
		DefaultCacheTime: cfg.Cache.TTL.Default,
		RateLimit:        cfg.API.RateLimit,
		RateBurst:        cfg.API.RateBurst,
		LogPayloads:      cfg.App.Debug,
		OnAuthRequired: func(context.Context) {
			log.Warn().Msg("Session expired, run `safefall login` to sign in again")
		},
	}, clientOpts...)

	svc := api.NewService(client, api.Config{
		Page:        cfg.Pagination.Page,
		PageSize:    cfg.Pagination.Size,
		MaxPageSize: cfg.Pagination.Max,
		DefaultTTL:  cfg.Cache.TTL.Default,
		VideosTTL:   cfg.Cache.TTL.Videos,
		StatsTTL:    cfg.Cache.TTL.Stats,
		SessionTTL:  cfg.Cache.TTL.Stats,
	}, log)

	return &session{cfg: cfg, log: log, cache: store, client: client, api: svc, metrics: metrics}, nil
}

// Close flushes metrics and releases the cache.
func (s *session) Close() error {
	err := observability.Shutdown(s.metrics, 0)
	if s.cache != nil {
		err = errors.Join(err, s.cache.Close())
	}
	return err
}

func openCache(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Backend != config.CacheBackendRedis {
		return cache.NewMemoryStore(), nil
	}
	client, err := redis.NewClient(redis.Config{
		Host:     cfg.Cache.Redis.Host,
		Port:     cfg.Cache.Redis.Port,
		Password: cfg.Cache.Redis.Password,
		Database: cfg.Cache.Redis.Database,
		PoolSize: cfg.Cache.Redis.PoolSize,
		Prefix:   cfg.Cache.Redis.Prefix,
		EntryTTL: cfg.Cache.TTL.Default,
	})
	if err != nil {
		return nil, fmt.Errorf("open redis cache: %w", err)
	}
	return client, nil
}

// clientRetries maps api.retries onto Config.MaxRetries, where zero would mean the default.
func clientRetries(n int) int {
	if n == 0 {
		return httpclient.NoRetries
	}
	return n
}

// openTokenStore prefers the flag, then auth.tokenfile, then a file in the user config dir.
// Without a config dir the session lives in memory and is lost on exit.
func openTokenStore(opts *GlobalOptions, cfg *config.Config, log logger.Logger) (tokenstore.Store, error) {
	path := opts.TokenFile
	if path == "" {
		path = cfg.Auth.TokenFile
	}
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			log.Warn().Err(err).Msg("No user config directory, session tokens will not be saved; pass --token-file to keep them")
			return tokenstore.NewMemoryStore(), nil
		}
		path = filepath.Join(dir, "safefall", "tokens.json")
	}
	store, err := tokenstore.OpenFileStore(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// withSession opens a session, runs fn and closes the session.
func withSession(ctx context.Context, opts *GlobalOptions, stderr io.Writer, fn func(context.Context, *session) error) (err error) {
	s, err := openSession(opts, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(ctx, s)
}
