// Package observability builds the OpenTelemetry meter provider that receives the
// access layer's request, cache, retry and token-refresh instruments.
package observability

import (
	"fmt"
	"strings"
	"time"
)

const (
	// EndpointStdout prints metrics to the configured writer instead of exporting them.
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// TemporalityDelta reports the change since the last export.
	TemporalityDelta = "delta"

	// TemporalityCumulative reports the total since start, the OTel SDK default.
	TemporalityCumulative = "cumulative"

	// DefaultInterval is the export period when none is configured.
	DefaultInterval = 30 * time.Second
)

// Config selects where metrics go.
type Config struct {
	Enabled bool

	// ServiceName and ServiceVersion label every exported point.
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Endpoint is EndpointStdout or the OTLP collector address. gRPC endpoints are
	// host:port, HTTP endpoints may carry a scheme.
	Endpoint string
	Protocol string
	Insecure bool
	Headers  map[string]string

	Temporality string
	Interval    time.Duration
}

// ApplyDefaults fills the zero fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = EndpointStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.Temporality == "" {
		c.Temporality = TemporalityCumulative
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	c.Protocol = strings.ToLower(c.Protocol)
	c.Temporality = strings.ToLower(c.Temporality)
}

// Validate reports the first invalid field of an enabled configuration.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if c.Endpoint != EndpointStdout {
		switch c.Protocol {
		case ProtocolHTTP:
		case ProtocolGRPC:
			if strings.Contains(c.Endpoint, "://") {
				return fmt.Errorf("%w: grpc endpoint %q must be host:port", ErrInvalidEndpointFormat, c.Endpoint)
			}
		default:
			return fmt.Errorf("metrics protocol '%s': %w", c.Protocol, ErrInvalidProtocol)
		}
	}
	switch c.Temporality {
	case TemporalityDelta, TemporalityCumulative:
	default:
		return fmt.Errorf("metrics temporality '%s': %w", c.Temporality, ErrInvalidTemporality)
	}
	return nil
}
