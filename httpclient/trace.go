package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error type classifications for the error.type attribute.
const (
	ErrorTypeAborted           = "aborted"
	ErrorTypeCircuitOpen       = "circuit_open"
	ErrorTypeInterceptor       = "interceptor"
	ErrorTypeDecode            = "decode"
	ErrorTypeTimeout           = "timeout"
	ErrorTypeConnectionRefused = "connection_refused"
	ErrorTypeDNSError          = "dns_error"
	ErrorTypeTLSError          = "tls_error"
	ErrorTypeCancelled         = "cancelled"
	ErrorTypeConnectionReset   = "connection_reset"
	ErrorTypeEOF               = "eof"
	ErrorTypeUnknown           = "unknown"
)

// classifyError maps an execution error to an error.type value.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	// Pipeline errors first: they may wrap transport errors.
	if errors.Is(err, ErrAborted) {
		return ErrorTypeAborted
	}
	if errors.Is(err, ErrCircuitOpen) {
		return ErrorTypeCircuitOpen
	}
	var interceptorErr *InterceptorError
	if errors.As(err, &interceptorErr) {
		return ErrorTypeInterceptor
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return ErrorTypeDecode
	}

	if errors.Is(err, context.Canceled) {
		return ErrorTypeCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorTypeDNSError
	}

	var tlsRecordErr *tls.RecordHeaderError
	if errors.As(err, &tlsRecordErr) {
		return ErrorTypeTLSError
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ErrorTypeTLSError
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrorTypeConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return ErrorTypeConnectionReset
	}
	if errors.Is(err, io.EOF) {
		return ErrorTypeEOF
	}

	// Fallback: check error message for common patterns
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout"):
		return ErrorTypeTimeout
	case strings.Contains(errStr, "connection refused"):
		return ErrorTypeConnectionRefused
	case strings.Contains(errStr, "connection reset"):
		return ErrorTypeConnectionReset
	case strings.Contains(errStr, "no such host"):
		return ErrorTypeDNSError
	case strings.Contains(errStr, "x509"), strings.Contains(errStr, "certificate"):
		return ErrorTypeTLSError
	}

	return ErrorTypeUnknown
}

// errorTypeFromStatusCode returns error.type for HTTP status codes.
// Per OTel semconv, the status code itself is used as the error type for 4xx/5xx.
func errorTypeFromStatusCode(statusCode int) string {
	if statusCode >= 400 {
		return strconv.Itoa(statusCode)
	}
	return ""
}

// setSpanError records an error on the span with proper status and attributes.
func setSpanError(span trace.Span, err error, errorType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errorType != "" {
		span.SetAttributes(attribute.String("error.type", errorType))
	}
}
