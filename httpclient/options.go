package httpclient

import (
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/trail/httpclient"
)

// =============================================================================
// Internal Configuration
// =============================================================================

// internalConfig holds the client configuration assembled from options.
type internalConfig struct {
	// === Dispatcher ===

	// BaseURL is prefixed to every route path.
	BaseURL string

	// Interceptors are copied into every request builder the client creates.
	Interceptors []Interceptor

	// DefaultHeaders are set on every request builder after the JSON
	// Accept/Content-Type defaults.
	DefaultHeaders http.Header

	// Routes, when set, restricts Client.Route to the declared verbs.
	Routes RouteTable

	// === Pipeline ===

	// Registry coalesces identical in-flight requests.
	// Default: a new Registry per client.
	Registry *Registry

	// === Transport ===

	// Transport is the base round tripper. Default: http.DefaultTransport.
	Transport http.RoundTripper

	// HTTPClient, when set, is used as a template for the client. Its
	// transport is wrapped with instrumentation.
	HTTPClient *http.Client

	// MockTransport replaces the base transport in tests.
	MockTransport *MockTransport

	// TransportConfig, when set, builds the base transport and the call
	// timeout. Ignored when Transport or HTTPClient is set.
	TransportConfig *TransportConfig

	// BreakerConfig, when set, guards transport calls with a circuit breaker.
	BreakerConfig *BreakerConfig

	// === OpenTelemetry Configuration ===

	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// Tracer is the tracer instance created from TracerProvider.
	Tracer trace.Tracer

	// Meter is the meter instance created from MeterProvider.
	Meter metric.Meter

	// Metrics holds the metric instruments.
	Metrics *metrics

	// ServiceName identifies the client in traces and metrics.
	// Added as "http.client.name" attribute.
	ServiceName string

	// Filters determine which transport calls are traced.
	Filters []Filter

	// Propagators configures the context propagators.
	// Default: TraceContext + Baggage (W3C standard)
	Propagators propagation.TextMapPropagator

	// === Debugging ===

	// Logger receives debug output. Default: debugLogger.
	Logger zerolog.Logger

	// Debug enables request/response logging.
	Debug bool

	// GenerateCurl attaches an equivalent cURL command to responses.
	GenerateCurl bool
}

// newConfig creates a new internal config with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		DefaultHeaders: make(http.Header),
		Logger:         debugLogger,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}

	// Initialize tracer and meter after options are applied
	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Initialize metrics (ignore errors, will just be nil if fails)
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildHTTPClient assembles the instrumented *http.Client.
func (cfg *internalConfig) buildHTTPClient() *http.Client {
	base := cfg.Transport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil && base == nil {
		base = cfg.HTTPClient.Transport
	}
	if cfg.MockTransport != nil {
		base = cfg.MockTransport
	}

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		*httpClient = *cfg.HTTPClient
	} else if cfg.TransportConfig != nil {
		httpClient.Timeout = cfg.TransportConfig.Timeout
		if base == nil {
			base = cfg.TransportConfig.newTransport()
		}
	}
	if base == nil {
		base = http.DefaultTransport
	}

	httpClient.Transport = newOtelTransport(newCircuitBreakerTransport(base, cfg), cfg)

	return httpClient
}

// baseAttributes returns common attributes for all spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 1)
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.ServiceName))
	}
	return attrs
}

// =============================================================================
// Options - Functional Options for Client Configuration
// =============================================================================

// Filter determines whether a transport call should be traced.
// Return true to trace the request, false to skip tracing.
// All filters must return true for a request to be traced.
type Filter func(r *http.Request) bool

// Option configures the client.
type Option func(*internalConfig)

// WithBaseURL sets the root URL prepended to every route path.
//
// Example:
//
//	client := httpclient.New(httpclient.WithBaseURL("https://api.example.com"))
//	client.Get("/users/:id") // targets https://api.example.com/users/:id
func WithBaseURL(baseURL string) Option {
	return func(cfg *internalConfig) {
		cfg.BaseURL = baseURL
	}
}

// WithRequestInterceptor appends an interceptor to the client's chain.
// Request builders created afterwards start with a copy of the chain.
func WithRequestInterceptor(i Interceptor) Option {
	return func(cfg *internalConfig) {
		cfg.Interceptors = append(cfg.Interceptors, i)
	}
}

// WithDefaultHeader sets a header on every request builder the client
// creates.
func WithDefaultHeader(name, value string) Option {
	return func(cfg *internalConfig) {
		cfg.DefaultHeaders.Set(name, value)
	}
}

// WithRoutes restricts Client.Route to the verbs declared in the table.
func WithRoutes(routes RouteTable) Option {
	return func(cfg *internalConfig) {
		cfg.Routes = routes
	}
}

// WithRegistry shares an in-flight registry between clients. Requests from
// clients sharing a registry are coalesced with each other.
func WithRegistry(r *Registry) Option {
	return func(cfg *internalConfig) {
		cfg.Registry = r
	}
}

// WithTransport sets the base round tripper. It is wrapped with
// OpenTelemetry instrumentation.
func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *internalConfig) {
		cfg.Transport = rt
	}
}

// WithHTTPClient uses a copy of c (its CheckRedirect, Jar and Transport)
// as the transport primitive. c itself is not modified.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *internalConfig) {
		cfg.HTTPClient = c
	}
}

// WithTransportConfig builds the base transport from tc. It has no effect
// when WithTransport or WithHTTPClient is also used, except that the
// timeout still applies alongside WithTransport.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithTransportConfig(httpclient.HighThroughputTransportConfig()),
//	)
func WithTransportConfig(tc TransportConfig) Option {
	return func(cfg *internalConfig) {
		cfg.TransportConfig = &tc
	}
}

// WithCircuitBreaker guards transport calls with a circuit breaker named
// after the service name. While open, executions fail with ErrCircuitOpen
// without reaching the network.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("billing-api"),
//	    httpclient.WithCircuitBreaker(httpclient.DefaultBreakerConfig()),
//	)
func WithCircuitBreaker(bc BreakerConfig) Option {
	return func(cfg *internalConfig) {
		cfg.BreakerConfig = &bc
	}
}

// WithServiceName sets an identifier for this client in traces and metrics.
// This value is added as the "http.client.name" attribute.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider sets a custom TracerProvider.
// If not set, the global TracerProvider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom MeterProvider.
// If not set, the global MeterProvider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}

// WithFilter adds a filter to skip tracing of some transport calls.
//
// Example - Skip health checks:
//
//	httpclient.WithFilter(func(r *http.Request) bool {
//	    return r.URL.Path != "/health"
//	})
func WithFilter(f Filter) Option {
	return func(cfg *internalConfig) {
		cfg.Filters = append(cfg.Filters, f)
	}
}

// WithPropagators sets the propagators used to inject trace context into
// outgoing requests.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *internalConfig) {
		cfg.Propagators = p
	}
}

// WithLogger sets the zerolog logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
	}
}

// WithDebug enables logging of every draft sent and response received.
func WithDebug(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.Debug = enabled
	}
}

// WithGenerateCurl attaches an equivalent cURL command to every response.
// See Response.CurlCommand.
func WithGenerateCurl(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.GenerateCurl = enabled
	}
}
