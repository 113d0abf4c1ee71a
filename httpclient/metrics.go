package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the metric instruments for request executions.
type metrics struct {
	// === Transport Metrics ===

	// requestDuration measures the duration of physical transport calls.
	requestDuration metric.Float64Histogram

	// requestErrors counts failed transport calls by error type.
	requestErrors metric.Int64Counter

	// activeRequests tracks physical transport calls in progress.
	activeRequests metric.Int64UpDownCounter

	// === Pipeline Metrics ===

	// executions counts Execute calls by outcome.
	executions metric.Int64Counter

	// coalesced counts executions served by another caller's transport call.
	coalesced metric.Int64Counter

	// inflight tracks registry entries (outstanding deduplicated calls).
	inflight metric.Int64UpDownCounter

	// interceptorErrors counts interceptor chains aborted by an error.
	interceptorErrors metric.Int64Counter

	// === Circuit Breaker Metrics ===

	// breakerRequests counts calls seen by the breaker by result.
	breakerRequests metric.Int64Counter

	// breakerState reports the breaker state (0 closed, 1 half-open, 2 open).
	breakerState metric.Int64Gauge
}

// newMetrics creates and registers metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.requestDuration, err = meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	m.requestErrors, err = meter.Int64Counter(
		"http.client.request.error",
		metric.WithDescription("Number of HTTP client request errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	m.activeRequests, err = meter.Int64UpDownCounter(
		"http.client.active_requests",
		metric.WithDescription("Number of active HTTP client requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.executions, err = meter.Int64Counter(
		"trail.client.executions",
		metric.WithDescription("Number of request builder executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, err
	}

	m.coalesced, err = meter.Int64Counter(
		"trail.client.coalesced",
		metric.WithDescription("Number of executions that shared an in-flight request"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, err
	}

	m.inflight, err = meter.Int64UpDownCounter(
		"trail.client.inflight",
		metric.WithDescription("Number of deduplicated requests in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.interceptorErrors, err = meter.Int64Counter(
		"trail.client.interceptor.errors",
		metric.WithDescription("Number of interceptor chains that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	m.breakerRequests, err = meter.Int64Counter(
		"http.client.circuit_breaker.requests",
		metric.WithDescription("Number of transport calls seen by the circuit breaker"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.breakerState, err = meter.Int64Gauge(
		"http.client.circuit_breaker.state",
		metric.WithDescription("Circuit breaker state: 0 closed, 1 half-open, 2 open"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// recordRequestDuration records the duration of a transport call.
func (m *metrics) recordRequestDuration(
	ctx context.Context,
	duration time.Duration,
	attrs []attribute.KeyValue,
) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// recordError records a transport error.
func (m *metrics) recordError(ctx context.Context, errorType string, attrs []attribute.KeyValue) {
	if m == nil || m.requestErrors == nil {
		return
	}
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attrs...)
	allAttrs = append(allAttrs, attribute.String("error.type", errorType))
	m.requestErrors.Add(ctx, 1, metric.WithAttributes(allAttrs...))
}

// recordActiveRequestStart records a transport call starting.
func (m *metrics) recordActiveRequestStart(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// recordActiveRequestEnd records a transport call completing.
func (m *metrics) recordActiveRequestEnd(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))
}

// recordExecution records a finished Execute call. errorType is empty on
// success.
func (m *metrics) recordExecution(ctx context.Context, errorType string, attrs []attribute.KeyValue) {
	if m == nil || m.executions == nil {
		return
	}
	outcome := "success"
	if errorType != "" {
		outcome = errorType
	}
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attrs...)
	allAttrs = append(allAttrs, attribute.String("trail.outcome", outcome))
	m.executions.Add(ctx, 1, metric.WithAttributes(allAttrs...))
}

// recordCoalesced records an execution that joined an in-flight request.
func (m *metrics) recordCoalesced(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.coalesced == nil {
		return
	}
	m.coalesced.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// recordInflight adjusts the in-flight registry gauge by delta.
func (m *metrics) recordInflight(ctx context.Context, delta int64, attrs []attribute.KeyValue) {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Add(ctx, delta, metric.WithAttributes(attrs...))
}

// recordInterceptorError records a failed interceptor chain.
func (m *metrics) recordInterceptorError(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.interceptorErrors == nil {
		return
	}
	m.interceptorErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// recordBreakerRequest records a call seen by the circuit breaker.
// result is "success", "failure" or "rejected".
func (m *metrics) recordBreakerRequest(ctx context.Context, name, result string) {
	if m == nil || m.breakerRequests == nil {
		return
	}
	m.breakerRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.client.name", name),
		attribute.String("trail.breaker.result", result),
	))
}

// recordBreakerState records a circuit breaker state transition.
func (m *metrics) recordBreakerState(ctx context.Context, name string, state int64) {
	if m == nil || m.breakerState == nil {
		return
	}
	m.breakerState.Record(ctx, state, metric.WithAttributes(attribute.String("http.client.name", name)))
}
