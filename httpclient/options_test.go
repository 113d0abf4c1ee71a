package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := newConfig()

	assert.NotNil(t, cfg.Registry)
	assert.NotNil(t, cfg.DefaultHeaders)
	assert.NotNil(t, cfg.Tracer)
	assert.NotNil(t, cfg.Meter)
	assert.NotNil(t, cfg.Metrics)
	assert.Empty(t, cfg.BaseURL)
	assert.Empty(t, cfg.Interceptors)
	assert.Nil(t, cfg.BreakerConfig)
	assert.Nil(t, cfg.TransportConfig)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.GenerateCurl)
	assert.Empty(t, cfg.baseAttributes())
}

func TestOptions(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	tp := sdktrace.NewTracerProvider()
	mp := noop.NewMeterProvider()
	transport := NewMockTransport()
	hc := &http.Client{Timeout: 3 * time.Second}
	propagator := propagation.TraceContext{}
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	tests := []struct {
		name  string
		opt   Option
		check func(t *testing.T, cfg *internalConfig)
	}{
		{
			name: "given WithBaseURL, then sets base URL",
			opt:  WithBaseURL("https://api.test"),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Equal(t, "https://api.test", cfg.BaseURL)
			},
		},
		{
			name: "given WithRequestInterceptor, then appends to chain",
			opt:  WithRequestInterceptor(HeaderInterceptor("X-A", "1")),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Len(t, cfg.Interceptors, 1)
			},
		},
		{
			name: "given WithDefaultHeader, then sets canonical header",
			opt:  WithDefaultHeader("x-api-key", "secret"),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Equal(t, "secret", cfg.DefaultHeaders.Get("X-Api-Key"))
			},
		},
		{
			name: "given WithRoutes, then sets route table",
			opt:  WithRoutes(RouteTable{"/users": {VerbGet}}),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Equal(t, []Verb{VerbGet}, cfg.Routes["/users"])
			},
		},
		{
			name: "given WithRegistry, then uses shared registry",
			opt:  WithRegistry(registry),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Same(t, registry, cfg.Registry)
			},
		},
		{
			name: "given WithTransport, then sets transport",
			opt:  WithTransport(transport),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Same(t, transport, cfg.Transport)
			},
		},
		{
			name: "given WithHTTPClient, then keeps template",
			opt:  WithHTTPClient(hc),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Same(t, hc, cfg.HTTPClient)
			},
		},
		{
			name: "given WithTransportConfig, then stores a copy",
			opt:  WithTransportConfig(DefaultTransportConfig()),
			check: func(t *testing.T, cfg *internalConfig) {
				require.NotNil(t, cfg.TransportConfig)
				assert.Equal(t, 15*time.Second, cfg.TransportConfig.Timeout)
			},
		},
		{
			name: "given WithCircuitBreaker, then stores breaker config",
			opt:  WithCircuitBreaker(DefaultBreakerConfig()),
			check: func(t *testing.T, cfg *internalConfig) {
				require.NotNil(t, cfg.BreakerConfig)
				assert.Equal(t, uint32(5), cfg.BreakerConfig.ConsecutiveFailures)
			},
		},
		{
			name: "given WithServiceName, then adds client name attribute",
			opt:  WithServiceName("billing"),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Equal(t, []attribute.KeyValue{attribute.String("http.client.name", "billing")}, cfg.baseAttributes())
			},
		},
		{
			name: "given WithTracerProvider, then uses it",
			opt:  WithTracerProvider(tp),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Same(t, tp, cfg.TracerProvider)
			},
		},
		{
			name: "given WithMeterProvider, then uses it",
			opt:  WithMeterProvider(mp),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Equal(t, mp, cfg.MeterProvider)
			},
		},
		{
			name: "given WithFilter, then appends filter",
			opt:  WithFilter(func(*http.Request) bool { return true }),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Len(t, cfg.Filters, 1)
			},
		},
		{
			name: "given WithPropagators, then uses them",
			opt:  WithPropagators(propagator),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.Equal(t, propagator, cfg.Propagators)
			},
		},
		{
			name: "given WithDebug and WithLogger, then logs through logger",
			opt: func(cfg *internalConfig) {
				WithDebug(true)(cfg)
				WithLogger(logger)(cfg)
			},
			check: func(t *testing.T, cfg *internalConfig) {
				assert.True(t, cfg.Debug)
				cfg.Logger.Debug().Msg("probe")
				assert.Contains(t, buf.String(), "probe")
			},
		},
		{
			name: "given WithGenerateCurl, then enables curl",
			opt:  WithGenerateCurl(true),
			check: func(t *testing.T, cfg *internalConfig) {
				assert.True(t, cfg.GenerateCurl)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, newConfig(tt.opt))
		})
	}
}

func TestBuildHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("given mock and transport, then mock wins", func(t *testing.T) {
		t.Parallel()

		other := NewMockTransport().StubResponse(http.StatusTeapot, `{}`)
		mock := NewMockTransport().StubResponse(http.StatusOK, `{}`)
		client := New(WithTransport(other), WithMockTransport(mock))

		resp, err := client.Get("http://api.test/").Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, 0, other.RequestCount())
		assert.Equal(t, 1, mock.RequestCount())
	})

	t.Run("given transport config, then builds tuned transport", func(t *testing.T) {
		t.Parallel()

		tc := DefaultTransportConfig()
		tc.Timeout = 2 * time.Second
		hc := newConfig(WithTransportConfig(tc)).buildHTTPClient()

		assert.Equal(t, 2*time.Second, hc.Timeout)
		otel, ok := hc.Transport.(*otelTransport)
		require.True(t, ok)
		base, ok := otel.base.(*http.Transport)
		require.True(t, ok)
		assert.Equal(t, 20, base.MaxIdleConnsPerHost)
		assert.True(t, base.DisableCompression)
	})

	t.Run("given http client template, then copies it", func(t *testing.T) {
		t.Parallel()

		hc := &http.Client{Timeout: 3 * time.Second}
		built := newConfig(WithHTTPClient(hc), WithTransportConfig(DefaultTransportConfig())).buildHTTPClient()

		assert.NotSame(t, hc, built)
		assert.Equal(t, 3*time.Second, built.Timeout)
		assert.Nil(t, hc.Transport)
	})
}

func TestHighThroughputTransportConfig(t *testing.T) {
	t.Parallel()

	tc := HighThroughputTransportConfig()
	assert.Equal(t, 30*time.Second, tc.Timeout)
	assert.Equal(t, 500, tc.MaxIdleConns)
	assert.Equal(t, 100, tc.MaxIdleConnsPerHost)
	assert.Zero(t, tc.MaxConnsPerHost)
	assert.Equal(t, 5*time.Second, tc.DialTimeout)
}
