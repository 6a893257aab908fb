package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/safefall/safefall-go/cache"
	"github.com/safefall/safefall-go/tokenstore"
)

const (
	testVideosPath  = "/videos"
	testRefreshPath = "/api/v1/auth/refresh-token"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestClient points a client with an in-memory cache at srv's /api/v1.
func newTestClient(t *testing.T, srv *httptest.Server, cfg Config, opts ...Option) *RESTClient {
	t.Helper()
	cfg.BaseURL = srv.URL + "/api/v1"
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	base := []Option{WithCache(cache.NewMemoryStore())}
	return New(cfg, append(base, opts...)...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetCachedWithinTTL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, []map[string]any{{"filename": "a.mp4"}})
	}))
	defer srv.Close()

	clock := newFakeClock()
	c := newTestClient(t, srv, Config{}, WithClock(clock.Now))
	ctx := context.Background()
	opts := &Options{Cache: true, CacheTime: 2 * time.Minute}

	first, err := c.Get(ctx, "/videos?page=1", opts)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	clock.Advance(time.Second)
	second, err := c.Get(ctx, "/videos?page=1", opts)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, KindJSON, second.Kind)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(2 * time.Minute)
	third, err := c.Get(ctx, "/videos?page=1", opts)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetWithoutCacheOptionAlwaysFetches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]int{"total": 3})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	for range 3 {
		_, err := c.Get(context.Background(), "/dashboard/stats", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestNonGetIsNeverCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	for range 2 {
		resp, err := c.Post(context.Background(), "/stream/start", nil, &Options{Cache: true})
		require.NoError(t, err)
		assert.False(t, resp.Cached)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestConcurrentIdenticalCallsShareOneRequest(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		once.Do(func() { close(started) })
		<-release
		writeJSON(w, http.StatusOK, map[string]int{"total": 7})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	ctx := context.Background()

	const callers = 5
	var (
		wg      sync.WaitGroup
		results [callers]*Response
		errs    [callers]error
	)
	wg.Add(callers)
	for i := range callers {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(ctx, "/dashboard/stats", nil)
		}(i)
	}

	<-started
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.JSONEq(t, `{"total":7}`, string(results[i].Body))
		assert.True(t, results[i].Shared)
	}
}

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	var videoCalls, refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case testRefreshPath:
			refreshCalls.Add(1)
			var body refreshRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.RefreshToken != "refresh-1" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bad refresh token"})
				return
			}
			writeJSON(w, http.StatusOK, refreshResponse{AccessToken: "access-2", RefreshToken: "refresh-2"})
		default:
			videoCalls.Add(1)
			if r.Header.Get("Authorization") != "Bearer access-2" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
				return
			}
			writeJSON(w, http.StatusOK, []string{"a.mp4"})
		}
	}))
	defer srv.Close()

	tokens := tokenstore.NewMemoryStore()
	c := newTestClient(t, srv, Config{}, WithTokenStore(tokens))
	require.NoError(t, c.SetTokens("access-1", "refresh-1"))

	// Zero retries: the refresh must not consume a retry slot.
	resp, err := c.Get(context.Background(), testVideosPath, &Options{Retries: Retries(0)})
	require.NoError(t, err)
	assert.JSONEq(t, `["a.mp4"]`, string(resp.Body))

	assert.Equal(t, int32(2), videoCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, "access-2", c.AccessToken())
	assert.Equal(t, "refresh-2", tokenstore.Lookup(tokens, tokenstore.RefreshTokenKey))
	assert.Equal(t, int64(2), resp.Stats.CallCount)
}

func TestUnauthorizedRefreshFailureRequiresLogin(t *testing.T) {
	var videoCalls, refreshCalls, hookCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == testRefreshPath {
			refreshCalls.Add(1)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh expired"})
			return
		}
		videoCalls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{
		MaxRetries:     3,
		OnAuthRequired: func(context.Context) { hookCalls.Add(1) },
	})
	require.NoError(t, c.SetTokens("access-1", "refresh-1"))

	_, err := c.Get(context.Background(), testVideosPath, nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, UnauthorizedError))
	assert.ErrorIs(t, err, ErrAuthRequired)

	assert.Equal(t, int32(1), videoCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(1), hookCalls.Load())
	assert.Empty(t, c.AccessToken())
}

func TestUnauthorizedAfterRefreshDoesNotRefreshAgain(t *testing.T) {
	var videoCalls, refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == testRefreshPath {
			refreshCalls.Add(1)
			writeJSON(w, http.StatusOK, refreshResponse{AccessToken: "access-new"})
			return
		}
		videoCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{MaxRetries: 2})
	require.NoError(t, c.SetTokens("access-1", "refresh-1"))

	_, err := c.Get(context.Background(), testVideosPath, nil)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, int32(2), videoCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
}

func TestUnauthorizedWithoutRefreshToken(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == testRefreshPath {
			refreshCalls.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	_, err := c.Get(context.Background(), testVideosPath, nil)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Zero(t, refreshCalls.Load())
}

func TestStatusErrorsAreNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			writeJSON(w, status, map[string]string{"message": "server said no"})
		}))

		c := newTestClient(t, srv, Config{MaxRetries: 3})
		_, err := c.Get(context.Background(), testVideosPath, nil)
		srv.Close()

		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load(), "status %d", status)
		assert.True(t, IsHTTPStatusError(err, status))
		assert.Contains(t, err.Error(), "server said no")
	}
}

func TestNotFoundMessageIncludesURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	_, err := c.Get(context.Background(), "/videos/missing.mp4", nil)
	assert.True(t, IsErrorType(err, NotFoundError))
	assert.Contains(t, err.Error(), srv.URL+"/api/v1/videos/missing.mp4")
}

func TestTimeoutIsRetriedThenReported(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{Timeout: 30 * time.Millisecond, MaxRetries: 1})
	_, err := c.Get(context.Background(), testVideosPath, nil)

	require.Error(t, err)
	assert.True(t, IsErrorType(err, TimeoutError))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDroppedConnectionIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			dropConnection(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{MaxRetries: 1})
	resp, err := c.Post(context.Background(), "/stream/start", map[string]string{"camera": "1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(2), resp.Stats.CallCount)
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return
	}
	conn, _, err := hj.Hijack()
	if err == nil {
		conn.Close()
	}
}

func TestZeroConfigRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		dropConnection(w)
	}))
	defer srv.Close()

	t.Run("zero MaxRetries takes the default", func(t *testing.T) {
		calls.Store(0)
		c := New(Config{BaseURL: srv.URL})
		_, err := c.Get(context.Background(), testVideosPath, nil)
		require.Error(t, err)
		assert.True(t, IsErrorType(err, NetworkError))
		assert.Equal(t, int32(1+DefaultMaxRetries), calls.Load())
	})

	t.Run("NoRetries makes a single attempt", func(t *testing.T) {
		calls.Store(0)
		c := New(Config{BaseURL: srv.URL, MaxRetries: NoRetries, RetryDelay: time.Millisecond})
		_, err := c.Get(context.Background(), testVideosPath, nil)
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestRetryDelaysGrowLinearly(t *testing.T) {
	const delay = 50 * time.Millisecond
	var mu sync.Mutex
	var arrivals []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		dropConnection(w)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{MaxRetries: 3, RetryDelay: delay})
	_, err := c.Get(context.Background(), testVideosPath, nil)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, arrivals, 4)
	var prev time.Duration
	for i := 1; i < len(arrivals); i++ {
		gap := arrivals[i].Sub(arrivals[i-1])
		want := delay * time.Duration(i)
		assert.GreaterOrEqual(t, gap, want, "gap %d", i)
		assert.Less(t, gap, want+40*time.Millisecond, "gap %d", i)
		assert.Greater(t, gap, prev, "gap %d", i)
		prev = gap
	}
}

func TestCallerCancellationStopsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{MaxRetries: 5})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := c.Get(ctx, testVideosPath, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMultipartUpload(t *testing.T) {
	var gotContentType, gotFilename, gotField string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotField = r.FormValue("filename")
		f, hdr, err := r.FormFile("video")
		if err == nil {
			gotFilename = hdr.Filename
			gotFile, _ = io.ReadAll(f)
			f.Close()
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": "v1"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	form := NewFormData().
		AddFile("video", "fall.mp4", []byte("frames")).
		Set("filename", "fall.mp4")

	resp, err := c.Post(context.Background(), "/upload/video", form, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.True(t, strings.HasPrefix(gotContentType, "multipart/form-data; boundary="))
	assert.NotContains(t, gotContentType, "application/json")
	assert.Equal(t, "fall.mp4", gotField)
	assert.Equal(t, "fall.mp4", gotFilename)
	assert.Equal(t, []byte("frames"), gotFile)
}

func TestRequestHeadersOnTheWire(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	require.NoError(t, c.SetTokens("access-1", "refresh-1"))

	_, err := c.Get(WithTraceID(context.Background(), "trace-123"), testVideosPath, nil)
	require.NoError(t, err)
	assert.Empty(t, got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "Bearer access-1", got.Get("Authorization"))
	assert.Equal(t, "trace-123", got.Get(HeaderXRequestID))

	_, err = c.Patch(context.Background(), "/videos/a.mp4/status", map[string]bool{"isChecked": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.NotEmpty(t, got.Get(HeaderXRequestID))
}

func TestWriteInvalidatesCachedReads(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": []string{}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	ctx := context.Background()
	cached := &Options{Cache: true}

	_, err := c.Get(ctx, "/videos?page=1", cached)
	require.NoError(t, err)
	_, err = c.Get(ctx, "/settings/general", cached)
	require.NoError(t, err)
	resp, err := c.Get(ctx, "/videos?page=1", cached)
	require.NoError(t, err)
	require.True(t, resp.Cached)

	_, err = c.Post(ctx, testVideosPath, map[string]string{"filename": "b.mp4"}, &Options{Invalidate: []string{"videos"}})
	require.NoError(t, err)

	resp, err = c.Get(ctx, "/videos?page=1", cached)
	require.NoError(t, err)
	assert.False(t, resp.Cached)

	resp, err = c.Get(ctx, "/settings/general", cached)
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.Equal(t, int32(3), gets.Load())

	require.NoError(t, c.ClearCache(ctx, ""))
	resp, err = c.Get(ctx, "/settings/general", cached)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
}

func TestResponseKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/health":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("OK"))
		case "/api/v1/videos/a.mp4/download":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte{0x00, 0x01, 0x02})
		default:
			writeJSON(w, http.StatusOK, map[string]int{"total": 4})
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{})
	ctx := context.Background()

	resp, err := c.Get(ctx, "/health", nil)
	require.NoError(t, err)
	assert.Equal(t, KindText, resp.Kind)
	assert.Equal(t, "OK", resp.Text())

	resp, err = c.Get(ctx, "/videos/a.mp4/download", nil)
	require.NoError(t, err)
	assert.Equal(t, KindBinary, resp.Kind)
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, resp.Bytes())

	resp, err = c.Get(ctx, "/dashboard/stats", nil)
	require.NoError(t, err)
	assert.Equal(t, KindJSON, resp.Kind)
	stats, err := DecodeJSON[map[string]int](resp)
	require.NoError(t, err)
	assert.Equal(t, 4, stats["total"])

	resp, err = c.Get(ctx, "/dashboard/stats", &Options{ResponseType: ResponseBinary})
	require.NoError(t, err)
	assert.Equal(t, KindBinary, resp.Kind)
}

func TestAbsoluteURLBypassesBase(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: "http://unused.invalid/api/v1"})
	_, err := c.Get(context.Background(), srv.URL+"/absolute", nil)
	require.NoError(t, err)
	assert.Equal(t, "/absolute", path)
}

func TestInterceptors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("X-Signed", r.Header.Get("X-Signature"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Run("request interceptor decorates every attempt", func(t *testing.T) {
		var seen string
		c := newTestClient(t, srv, Config{
			RequestInterceptors: []RequestInterceptor{func(_ context.Context, req *http.Request) error {
				req.Header.Set("X-Signature", "sig")
				return nil
			}},
			ResponseInterceptors: []ResponseInterceptor{func(_ context.Context, _ *http.Request, resp *http.Response) error {
				seen = resp.Header.Get("X-Signed")
				return nil
			}},
		})
		_, err := c.Get(context.Background(), "/health", nil)
		require.NoError(t, err)
		assert.Equal(t, "sig", seen)
	})

	t.Run("failing request interceptor is not retried", func(t *testing.T) {
		before := calls.Load()
		c := newTestClient(t, srv, Config{
			MaxRetries: 3,
			RequestInterceptors: []RequestInterceptor{func(context.Context, *http.Request) error {
				return errors.New("bad signature")
			}},
		})
		_, err := c.Get(context.Background(), "/health", nil)
		assert.True(t, IsErrorType(err, InterceptorError))
		assert.Equal(t, before, calls.Load())
	})
}

func TestRateLimitedClientStillCompletes(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{RateLimit: 100, RateBurst: 1})
	for range 3 {
		_, err := c.Post(context.Background(), "/notifications/clear", nil, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"total": 1})
	}))
	defer srv.Close()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	c := newTestClient(t, srv, Config{}, WithMeterProvider(mp))
	ctx := context.Background()

	for range 3 {
		_, err := c.Get(ctx, "/dashboard/stats", &Options{Cache: true})
		require.NoError(t, err)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), sumCounter(rm, metricCacheHit))
	assert.Equal(t, uint64(1), histogramCount(rm, metricRequestDuration))
}

func sumCounter(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func histogramCount(rm metricdata.ResourceMetrics, name string) uint64 {
	var total uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok {
				for _, dp := range h.DataPoints {
					total += dp.Count
				}
			}
		}
	}
	return total
}
