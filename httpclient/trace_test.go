package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "given nil, then empty", err: nil, want: ""},
		{name: "given abort, then aborted", err: ErrAborted, want: ErrorTypeAborted},
		{
			name: "given abort wrapping cancel, then aborted",
			err:  fmt.Errorf("%w: %w", ErrAborted, context.Canceled),
			want: ErrorTypeAborted,
		},
		{
			name: "given open circuit, then circuit_open",
			err:  fmt.Errorf("%w: svc", ErrCircuitOpen),
			want: ErrorTypeCircuitOpen,
		},
		{
			name: "given interceptor error, then interceptor",
			err:  &InterceptorError{Index: 0, Err: context.Canceled},
			want: ErrorTypeInterceptor,
		},
		{
			name: "given decode error, then decode",
			err:  &DecodeError{StatusCode: 200, Err: errors.New("bad json")},
			want: ErrorTypeDecode,
		},
		{name: "given context canceled, then cancelled", err: context.Canceled, want: ErrorTypeCancelled},
		{name: "given deadline, then timeout", err: context.DeadlineExceeded, want: ErrorTypeTimeout},
		{name: "given net timeout, then timeout", err: timeoutError{}, want: ErrorTypeTimeout},
		{
			name: "given DNS error, then dns_error",
			err:  &url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{Err: "no such host", Name: "x"}},
			want: ErrorTypeDNSError,
		},
		{name: "given refused, then connection_refused", err: syscall.ECONNREFUSED, want: ErrorTypeConnectionRefused},
		{name: "given reset, then connection_reset", err: syscall.ECONNRESET, want: ErrorTypeConnectionReset},
		{name: "given EOF, then eof", err: io.EOF, want: ErrorTypeEOF},
		{name: "given x509 message, then tls_error", err: errors.New("x509: unknown authority"), want: ErrorTypeTLSError},
		{name: "given other error, then unknown", err: errors.New("weird"), want: ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}

func TestErrorTypeFromStatusCode(t *testing.T) {
	t.Parallel()

	assert.Empty(t, errorTypeFromStatusCode(200))
	assert.Empty(t, errorTypeFromStatusCode(302))
	assert.Equal(t, "404", errorTypeFromStatusCode(404))
	assert.Equal(t, "503", errorTypeFromStatusCode(503))
}

func TestSetSpanError(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	setSpanError(span, ErrAborted, ErrorTypeAborted)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, ErrAborted.Error(), spans[0].Status.Description)

	attrs := make(map[string]any)
	for _, attr := range spans[0].Attributes {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}
	assert.Equal(t, ErrorTypeAborted, attrs["error.type"])
}
