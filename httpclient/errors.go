package httpclient

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted is returned to the caller whose descriptor was aborted, and
	// wraps the transport error of a call cancelled through Abort.
	ErrAborted = errors.New("httpclient: request aborted")

	// ErrRouteNotAllowed is returned by Client.Route when the route table
	// does not declare the verb for the path.
	ErrRouteNotAllowed = errors.New("httpclient: route not allowed")

	// ErrUnsupportedVerb is matched by UnsupportedVerbError.
	ErrUnsupportedVerb = errors.New("httpclient: unsupported verb")
)

// UnsupportedVerbError reports a method name that is not one of
// GET, POST, PUT, PATCH or DELETE.
type UnsupportedVerbError struct {
	Verb string
}

func (e *UnsupportedVerbError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedVerb, e.Verb)
}

// Is reports whether target is ErrUnsupportedVerb.
func (e *UnsupportedVerbError) Is(target error) bool {
	return target == ErrUnsupportedVerb
}

// InterceptorError wraps the error returned by a request interceptor.
// Index is the position of the failing interceptor in the chain.
type InterceptorError struct {
	Index int
	Err   error
}

func (e *InterceptorError) Error() string {
	return fmt.Sprintf("httpclient: interceptor %d: %v", e.Index, e.Err)
}

func (e *InterceptorError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when the response body cannot be decoded.
// The raw response is still recorded on the request builder.
type DecodeError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("httpclient: decode response (status %d): %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
