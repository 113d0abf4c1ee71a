package httpclient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collectSums returns every int64 sum data point by metric name and the
// given attribute's value ("" when absent).
func collectSums(t *testing.T, reader *sdkmetric.ManualReader, attr string) map[string]map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			points := make(map[string]int64)
			for _, dp := range sum.DataPoints {
				value, _ := dp.Attributes.Value(attribute.Key(attr))
				points[value.AsString()] += dp.Value
			}
			out[m.Name] = points
		}
	}
	return out
}

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := newMetrics(mp.Meter("test"))
	require.NoError(t, err)
	assert.NotNil(t, m.requestDuration)
	assert.NotNil(t, m.requestErrors)
	assert.NotNil(t, m.activeRequests)
	assert.NotNil(t, m.executions)
	assert.NotNil(t, m.coalesced)
	assert.NotNil(t, m.inflight)
	assert.NotNil(t, m.interceptorErrors)
	assert.NotNil(t, m.breakerRequests)
	assert.NotNil(t, m.breakerState)
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.recordRequestDuration(ctx, time.Second, nil)
		m.recordError(ctx, ErrorTypeUnknown, nil)
		m.recordActiveRequestStart(ctx, nil)
		m.recordActiveRequestEnd(ctx, nil)
		m.recordExecution(ctx, "", nil)
		m.recordCoalesced(ctx, nil)
		m.recordInflight(ctx, 1, nil)
		m.recordInterceptorError(ctx, nil)
		m.recordBreakerRequest(ctx, "svc", "success")
		m.recordBreakerState(ctx, "svc", 2)
	})
}

func TestMetrics_RecordExecution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		errorType   string
		wantOutcome string
	}{
		{name: "given no error, then success outcome", errorType: "", wantOutcome: "success"},
		{name: "given aborted, then aborted outcome", errorType: ErrorTypeAborted, wantOutcome: "aborted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			defer mp.Shutdown(context.Background())

			m, err := newMetrics(mp.Meter("test"))
			require.NoError(t, err)
			m.recordExecution(context.Background(), tt.errorType, nil)

			sums := collectSums(t, reader, "trail.outcome")
			assert.Equal(t, int64(1), sums["trail.client.executions"][tt.wantOutcome])
		})
	}
}

func TestClientMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	mock := NewMockTransport().StubResponse(http.StatusOK, `{}`).Hold()
	client := New(WithMeterProvider(mp), WithMockTransport(mock), WithServiceName("svc"))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.Get("/data").Execute(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return mock.RequestCount() == 1 }, time.Second, time.Millisecond)
	waitJoined()
	mock.Release()
	wg.Wait()

	_, err := client.Get("/data").
		AddRequestInterceptor(func(_ context.Context, d Draft) (Draft, error) {
			return d, errors.New("denied")
		}).
		Execute(context.Background())
	require.Error(t, err)

	outcomes := collectSums(t, reader, "trail.outcome")
	assert.Equal(t, int64(4), outcomes["trail.client.executions"]["success"])
	assert.Equal(t, int64(1), outcomes["trail.client.executions"][ErrorTypeInterceptor])

	byClient := collectSums(t, reader, "http.client.name")
	assert.Equal(t, int64(3), byClient["trail.client.coalesced"]["svc"])
	assert.Equal(t, int64(1), byClient["trail.client.interceptor.errors"]["svc"])
	assert.Equal(t, int64(0), byClient["trail.client.inflight"]["svc"])
	assert.Equal(t, int64(0), byClient["http.client.active_requests"]["svc"])
}
