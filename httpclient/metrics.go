package httpclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "safefall/httpclient"

	metricRequestDuration = "http.client.request.duration" // Histogram in seconds
	metricCacheHit        = "http.client.cache.hit"
	metricShared          = "http.client.shared"
	metricRetries         = "http.client.retries"
	metricRefreshes       = "http.client.token.refreshes"

	attrMethod    = "http.request.method"
	attrStatus    = "http.response.status_code"
	attrErrorType = "error.type"
	attrOutcome   = "outcome"
)

// instruments holds the client's OpenTelemetry instruments. A failed instrument
// registration leaves a nil field and recording becomes a no-op.
type instruments struct {
	duration  metric.Float64Histogram
	cacheHit  metric.Int64Counter
	shared    metric.Int64Counter
	retries   metric.Int64Counter
	refreshes metric.Int64Counter
}

func logMetricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize http client metric %s: %v\n", name, err)
	}
}

func newInstruments(provider metric.MeterProvider) *instruments {
	m := provider.Meter(meterName)
	inst := &instruments{}
	var err error

	inst.duration, err = m.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Duration of logical HTTP calls including retries"),
		metric.WithUnit("s"))
	logMetricError(metricRequestDuration, err)

	inst.cacheHit, err = m.Int64Counter(metricCacheHit,
		metric.WithDescription("Responses served from the response cache"),
		metric.WithUnit("{response}"))
	logMetricError(metricCacheHit, err)

	inst.shared, err = m.Int64Counter(metricShared,
		metric.WithDescription("Calls whose outcome was shared with identical concurrent calls"),
		metric.WithUnit("{request}"))
	logMetricError(metricShared, err)

	inst.retries, err = m.Int64Counter(metricRetries,
		metric.WithDescription("Attempts repeated after a transient failure"),
		metric.WithUnit("{attempt}"))
	logMetricError(metricRetries, err)

	inst.refreshes, err = m.Int64Counter(metricRefreshes,
		metric.WithDescription("Access token refresh attempts"),
		metric.WithUnit("{refresh}"))
	logMetricError(metricRefreshes, err)

	return inst
}

func (i *instruments) recordCall(ctx context.Context, method string, start time.Time, resp *Response, err error) {
	if i.duration == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(attrMethod, method)}
	switch {
	case err != nil:
		attrs = append(attrs, attribute.String(attrErrorType, errorTypeOf(err)))
		if code, ok := StatusCode(err); ok {
			attrs = append(attrs, attribute.Int(attrStatus, code))
		}
	case resp != nil:
		attrs = append(attrs, attribute.Int(attrStatus, resp.StatusCode))
	}
	i.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
}

func (i *instruments) add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (i *instruments) recordCacheHit(ctx context.Context) { i.add(ctx, i.cacheHit) }

func (i *instruments) recordShared(ctx context.Context, method string) {
	i.add(ctx, i.shared, attribute.String(attrMethod, method))
}

func (i *instruments) recordRetry(ctx context.Context, method string) {
	i.add(ctx, i.retries, attribute.String(attrMethod, method))
}

func (i *instruments) recordRefresh(ctx context.Context, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	i.add(ctx, i.refreshes, attribute.String(attrOutcome, outcome))
}

func errorTypeOf(err error) string {
	var ce ClientError
	if errors.As(err, &ce) {
		return ce.Type().String()
	}
	return "unknown"
}
