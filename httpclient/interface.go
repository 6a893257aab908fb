package httpclient

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"time"
)

const (
	// HeaderXRequestID is the header used for request tracing.
	HeaderXRequestID = "X-Request-ID"
	// HeaderRequestedWith is removed from requests without a body.
	HeaderRequestedWith = "X-Requested-With"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	mimeJSON            = "application/json"
)

// Defaults applied by New when the matching Config field is zero.
const (
	DefaultTimeout            = 15 * time.Second
	DefaultMaxRetries         = 1
	DefaultRetryDelay         = time.Second
	DefaultCacheTime          = 5 * time.Minute
	DefaultRefreshPath        = "/auth/refresh-token"
	DefaultMaxPayloadLogBytes = 1024
)

// NoRetries disables retries when used as Config.MaxRetries.
const NoRetries = -1

// Client is the HTTP access layer used by the API facade.
type Client interface {
	Get(ctx context.Context, url string, opts *Options) (*Response, error)
	Post(ctx context.Context, url string, body any, opts *Options) (*Response, error)
	Put(ctx context.Context, url string, body any, opts *Options) (*Response, error)
	Patch(ctx context.Context, url string, body any, opts *Options) (*Response, error)
	Delete(ctx context.Context, url string, opts *Options) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)

	// ClearCache drops cached responses whose key contains pattern; "" drops all.
	ClearCache(ctx context.Context, pattern string) error

	SetTokens(access, refresh string) error
	ClearTokens() error
	AccessToken() string
}

// Request describes one logical call.
type Request struct {
	URL     string
	Headers map[string]string
	// Body is nil, a string, []byte, json.RawMessage, *FormData or any JSON-marshalable value.
	Body    any
	Options Options
}

// Options tune a single call. The zero value uses the client defaults.
type Options struct {
	Headers map[string]string
	// Cache enables the response cache. Only GET responses are cached.
	Cache bool
	// CacheTime is the freshness window for a cached entry. Zero means DefaultCacheTime.
	CacheTime time.Duration
	// Retries overrides Config.MaxRetries when non-nil. See Retries().
	Retries *int
	// Timeout bounds each attempt. Zero means Config.Timeout.
	Timeout      time.Duration
	ResponseType ResponseType
	// Invalidate lists cache key substrings dropped after a successful non-GET call.
	Invalidate []string
}

// Retries returns a pointer suitable for Options.Retries.
func Retries(n int) *int { return &n }

// ResponseType forces how a body is classified regardless of its content type.
type ResponseType int

const (
	ResponseAuto ResponseType = iota
	ResponseJSON
	ResponseText
	ResponseBinary
)

// PayloadKind tells how a response body was classified.
type PayloadKind int

const (
	KindBinary PayloadKind = iota
	KindJSON
	KindText
)

func (k PayloadKind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindText:
		return "text"
	default:
		return "binary"
	}
}

// Response is a successful (2xx) response. Responses shared between de-duplicated callers
// reference the same Body slice and must be treated as read-only.
type Response struct {
	StatusCode  int
	Body        []byte
	Headers     nethttp.Header
	ContentType string
	Kind        PayloadKind
	// Cached is true when the response was served from the cache without a network call.
	Cached bool
	// Shared is true when the outcome was delivered to several identical concurrent calls.
	Shared bool
	Stats  Stats
}

// Stats contains request execution statistics.
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// JSON decodes the body into v whatever its Kind. An empty body leaves v untouched.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// Bytes returns the raw body.
func (r *Response) Bytes() []byte { return r.Body }

// DecodeJSON decodes the body of resp into a new T.
func DecodeJSON[T any](resp *Response) (T, error) {
	var out T
	err := resp.JSON(&out)
	return out, err
}

// RequestInterceptor is called before sending each attempt.
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving each attempt's response.
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the client configuration.
type Config struct {
	// BaseURL is joined with relative request URLs.
	BaseURL string
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after the first. Zero takes
	// DefaultMaxRetries; use NoRetries (any negative value) for a single attempt.
	MaxRetries int
	// RetryDelay is multiplied by the attempt number to get the backoff.
	RetryDelay time.Duration
	// DefaultCacheTime is used when Options.CacheTime is zero.
	DefaultCacheTime time.Duration
	// DefaultHeaders replaces the built-in Content-Type/Accept JSON headers when non-nil.
	DefaultHeaders map[string]string
	// RefreshPath is POSTed with the refresh token after a 401.
	RefreshPath string
	// OnAuthRequired runs after a failed refresh once the tokens are cleared.
	OnAuthRequired func(ctx context.Context)

	// RateLimit caps attempts per second; zero disables limiting.
	RateLimit float64
	RateBurst int

	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor

	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new trace ID when none is present (default: uuid)
	NewTraceID func() string
}

// DefaultHeaders returns the headers sent with every request unless overridden.
func DefaultHeaders() map[string]string {
	return map[string]string{
		headerContentType: mimeJSON,
		headerAccept:      mimeJSON,
	}
}

type traceIDKey struct{}

// WithTraceID stores a trace ID that is sent as the X-Request-ID of calls made with ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext returns a trace ID from context if present.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceIDKey{}).(string)
	return id, ok && id != ""
}
