// Package httpclient is the HTTP access layer of the dashboard client. Every backend
// call goes through it so that caching, in-flight de-duplication, retries, bearer
// authentication and token refresh behave the same way everywhere.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/safefall/safefall-go/cache"
	"github.com/safefall/safefall-go/logger"
	"github.com/safefall/safefall-go/tokenstore"
)

// RESTClient implements Client.
type RESTClient struct {
	cfg            Config
	baseURL        string
	defaultHeaders map[string]string
	traceHeader    string
	newTraceID     func() string

	httpClient *nethttp.Client
	log        logger.Logger
	cache      cache.Store
	tokens     tokenstore.Store
	limiter    *rate.Limiter
	metrics    *instruments
	now        func() time.Time

	inflight  singleflight.Group
	refreshMu sync.Mutex
}

var _ Client = (*RESTClient)(nil)

// Option configures optional collaborators of a RESTClient.
type Option func(*RESTClient)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(c *RESTClient) { c.log = l }
}

// WithCache sets the response cache. Without one, Options.Cache is ignored.
func WithCache(s cache.Store) Option {
	return func(c *RESTClient) { c.cache = s }
}

// WithTokenStore sets where the access/refresh token pair is kept. The default is in-memory.
func WithTokenStore(s tokenstore.Store) Option {
	return func(c *RESTClient) { c.tokens = s }
}

// WithHTTPClient replaces the underlying transport client. Per-attempt timeouts are
// applied through the request context, so hc.Timeout should normally be zero.
func WithHTTPClient(hc *nethttp.Client) Option {
	return func(c *RESTClient) { c.httpClient = hc }
}

// WithMeterProvider sets the OpenTelemetry meter provider. The default is the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *RESTClient) { c.metrics = newInstruments(mp) }
}

// WithClock sets the clock used to judge cache freshness.
func WithClock(now func() time.Time) Option {
	return func(c *RESTClient) { c.now = now }
}

// New creates a client from cfg. Zero-valued fields take the package defaults.
func New(cfg Config, opts ...Option) *RESTClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.DefaultCacheTime <= 0 {
		cfg.DefaultCacheTime = DefaultCacheTime
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = DefaultRefreshPath
	}
	if cfg.MaxPayloadLogBytes <= 0 {
		cfg.MaxPayloadLogBytes = DefaultMaxPayloadLogBytes
	}
	if cfg.TraceIDHeader == "" {
		cfg.TraceIDHeader = HeaderXRequestID
	}
	if cfg.NewTraceID == nil {
		cfg.NewTraceID = func() string { return uuid.New().String() }
	}

	c := &RESTClient{
		cfg:            cfg,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		defaultHeaders: cfg.DefaultHeaders,
		traceHeader:    cfg.TraceIDHeader,
		newTraceID:     cfg.NewTraceID,
		httpClient:     &nethttp.Client{},
		log:            logger.Nop(),
		tokens:         tokenstore.NewMemoryStore(),
		now:            time.Now,
	}
	if c.defaultHeaders == nil {
		c.defaultHeaders = DefaultHeaders()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newInstruments(otel.GetMeterProvider())
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *RESTClient) BaseURL() string { return c.baseURL }

// Get performs a GET request.
func (c *RESTClient) Get(ctx context.Context, url string, opts *Options) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, &Request{URL: url, Options: derefOptions(opts)})
}

// Post performs a POST request.
func (c *RESTClient) Post(ctx context.Context, url string, body any, opts *Options) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, &Request{URL: url, Body: body, Options: derefOptions(opts)})
}

// Put performs a PUT request.
func (c *RESTClient) Put(ctx context.Context, url string, body any, opts *Options) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, &Request{URL: url, Body: body, Options: derefOptions(opts)})
}

// Patch performs a PATCH request.
func (c *RESTClient) Patch(ctx context.Context, url string, body any, opts *Options) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, &Request{URL: url, Body: body, Options: derefOptions(opts)})
}

// Delete performs a DELETE request.
func (c *RESTClient) Delete(ctx context.Context, url string, opts *Options) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, &Request{URL: url, Options: derefOptions(opts)})
}

func derefOptions(opts *Options) Options {
	if opts == nil {
		return Options{}
	}
	return *opts
}

// call is one logical request after its inputs have been resolved.
type call struct {
	method    string
	url       string
	key       string
	body      *encodedBody
	headers   map[string]string
	options   Options
	retries   int
	timeout   time.Duration
	cacheTime time.Duration
	cacheable bool
}

// Do performs a request with the given method.
//
// A fresh cached GET response is returned without touching the network. Otherwise
// identical concurrent calls share a single execution, which retries transient
// failures and refreshes the access token once on 401.
func (c *RESTClient) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if req == nil {
		return nil, NewValidationError("request is nil", "request")
	}
	start := time.Now()
	method = strings.ToUpper(method)
	if method == "" {
		method = nethttp.MethodGet
	}

	resolved, err := c.resolveURL(req.URL)
	if err != nil {
		return nil, err
	}
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	cl := &call{
		method:    method,
		url:       resolved,
		key:       requestKey(method, resolved, body),
		body:      body,
		headers:   req.Headers,
		options:   req.Options,
		retries:   c.cfg.MaxRetries,
		timeout:   c.cfg.Timeout,
		cacheTime: c.cfg.DefaultCacheTime,
		cacheable: method == nethttp.MethodGet && req.Options.Cache && c.cache != nil,
	}
	if req.Options.Retries != nil {
		cl.retries = max(*req.Options.Retries, 0)
	}
	if req.Options.Timeout > 0 {
		cl.timeout = req.Options.Timeout
	}
	if req.Options.CacheTime > 0 {
		cl.cacheTime = req.Options.CacheTime
	}

	if cl.cacheable {
		if resp := c.lookup(ctx, cl); resp != nil {
			c.metrics.recordCacheHit(ctx)
			c.log.Debug().
				Str("method", method).
				Str("url", resolved).
				Msg("REST client cache hit")
			return resp, nil
		}
	}

	v, err, shared := c.inflight.Do(cl.key, func() (any, error) {
		return c.execute(ctx, cl)
	})
	if shared {
		c.metrics.recordShared(ctx, method)
		c.log.Debug().
			Str("method", method).
			Str("url", resolved).
			Msg("REST client request shared with in-flight call")
	}
	if err != nil {
		c.metrics.recordCall(ctx, method, start, nil, err)
		return nil, err
	}

	resp := *v.(*Response)
	resp.Shared = shared
	c.metrics.recordCall(ctx, method, start, &resp, nil)
	return &resp, nil
}

// execute runs the attempt loop for one logical call.
func (c *RESTClient) execute(ctx context.Context, cl *call) (*Response, error) {
	start := time.Now()
	var (
		lastErr   error
		refreshed bool
		calls     int64
	)

	for attempt := 0; attempt <= cl.retries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, contextError(ctx, err, cl.timeout)
			}
		}

		token := c.AccessToken()
		calls++
		resp, err := c.attempt(ctx, cl, token)
		if err == nil {
			resp.Stats = Stats{ElapsedTime: time.Since(start), CallCount: calls}
			c.afterSuccess(ctx, cl, resp)
			return resp, nil
		}
		lastErr = err

		if IsErrorType(err, UnauthorizedError) {
			// A successful refresh re-runs the same attempt index.
			if !refreshed && c.refreshAccessToken(ctx, token) {
				refreshed = true
				attempt--
				continue
			}
			c.expireSession(ctx)
			return nil, err
		}

		if ctx.Err() != nil {
			return nil, contextError(ctx, ctx.Err(), cl.timeout)
		}
		if attempt == cl.retries || !isTransient(err) {
			break
		}

		delay := c.cfg.RetryDelay * time.Duration(attempt+1)
		c.metrics.recordRetry(ctx, cl.method)
		c.log.Debug().
			Str("method", cl.method).
			Str("url", cl.url).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying REST client request")
		if err := sleepContext(ctx, delay); err != nil {
			return nil, contextError(ctx, err, cl.timeout)
		}
	}

	return nil, lastErr
}

// attempt performs a single physical request bounded by the call timeout.
func (c *RESTClient) attempt(ctx context.Context, cl *call, token string) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, cl.timeout)
	defer cancel()

	req, err := nethttp.NewRequestWithContext(attemptCtx, cl.method, cl.url, cl.body.reader())
	if err != nil {
		return nil, NewValidationError("build request: "+err.Error(), "url")
	}
	req.Header = c.buildHeaders(ctx, cl.method, cl.body, cl.headers, cl.options.Headers, token)

	for _, interceptor := range c.cfg.RequestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return nil, NewInterceptorError("request interceptor failed", "request", err)
		}
	}

	c.logRequest(req, cl.body.data)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(attemptCtx, err, cl.timeout)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(attemptCtx, err, cl.timeout)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))

	for _, interceptor := range c.cfg.ResponseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return nil, NewInterceptorError("response interceptor failed", "response", err)
		}
	}

	c.logResponse(req, resp, data)

	if !IsSuccessStatus(resp.StatusCode) {
		return nil, newStatusError(resp.StatusCode, data, cl.url)
	}

	contentType := resp.Header.Get(headerContentType)
	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        data,
		Headers:     resp.Header,
		ContentType: contentType,
		Kind:        classifyPayload(contentType, cl.options.ResponseType),
	}, nil
}

func (c *RESTClient) afterSuccess(ctx context.Context, cl *call, resp *Response) {
	if cl.cacheable {
		entry := &cache.Entry{
			Payload:     resp.Body,
			ContentType: resp.ContentType,
			StatusCode:  resp.StatusCode,
			StoredAt:    c.now(),
		}
		if err := c.cache.Set(ctx, cl.key, entry); err != nil {
			c.log.Warn().Err(err).Str("url", cl.url).Msg("Failed to store response in cache")
		}
	}

	if cl.method != nethttp.MethodGet {
		for _, pattern := range cl.options.Invalidate {
			if err := c.ClearCache(ctx, pattern); err != nil {
				c.log.Warn().Err(err).Str("pattern", pattern).Msg("Failed to invalidate cached responses")
			}
		}
	}
}

// lookup returns a fresh cached response for cl, or nil.
func (c *RESTClient) lookup(ctx context.Context, cl *call) *Response {
	entry, err := c.cache.Get(ctx, cl.key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.log.Warn().Err(err).Str("url", cl.url).Msg("Response cache lookup failed")
		}
		return nil
	}
	if !entry.Fresh(cl.cacheTime, c.now()) {
		return nil
	}

	status := entry.StatusCode
	if status == 0 {
		status = nethttp.StatusOK
	}
	headers := make(nethttp.Header)
	if entry.ContentType != "" {
		headers.Set(headerContentType, entry.ContentType)
	}
	return &Response{
		StatusCode:  status,
		Body:        entry.Payload,
		Headers:     headers,
		ContentType: entry.ContentType,
		Kind:        classifyPayload(entry.ContentType, cl.options.ResponseType),
		Cached:      true,
	}
}

// ClearCache drops cached responses whose key contains pattern; "" drops all.
func (c *RESTClient) ClearCache(ctx context.Context, pattern string) error {
	if c.cache == nil {
		return nil
	}
	n, err := c.cache.DeleteMatching(ctx, pattern)
	if err != nil {
		return err
	}
	c.log.Debug().Str("pattern", pattern).Int("removed", n).Msg("Cleared cached responses")
	return nil
}

// classifyPayload decides how a body is decoded. An explicit response type wins over
// the content type.
func classifyPayload(contentType string, hint ResponseType) PayloadKind {
	switch hint {
	case ResponseJSON:
		return KindJSON
	case ResponseText:
		return KindText
	case ResponseBinary:
		return KindBinary
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, mimeJSON):
		return KindJSON
	case strings.Contains(ct, "text/"):
		return KindText
	default:
		return KindBinary
	}
}
