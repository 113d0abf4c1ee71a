package httpclient

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"regexp"
	"sync"
)

// MockTransport provides a configurable transport primitive for testing.
// It stubs responses, records every physical call and can hold calls open
// to exercise in-flight coalescing.
type MockTransport struct {
	mu          sync.RWMutex
	stubs       []stub
	defaultResp *stubResponse
	defaultErr  error
	calls       []RecordedRequest
	requestHook func(*http.Request)
	gate        chan struct{}
}

// RecordedRequest is a request seen by the MockTransport, with its body
// already read.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type stub struct {
	matcher  func(*http.Request) bool
	response *stubResponse
	err      error
}

// stubResponse is immutable once registered; every call gets its own
// *http.Response and body reader.
type stubResponse struct {
	statusCode int
	header     http.Header
	body       []byte
}

// NewMockTransport creates a new MockTransport for testing.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func newStubResponse(statusCode int, body string, header http.Header) *stubResponse {
	if header == nil {
		header = make(http.Header)
	}
	return &stubResponse{
		statusCode: statusCode,
		header:     header.Clone(),
		body:       []byte(body),
	}
}

// StubResponse stubs all requests to return the given response.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	return m.StubResponseWithHeaders(statusCode, body, nil)
}

// StubResponseWithHeaders stubs all requests to return the given response
// and headers.
func (m *MockTransport) StubResponseWithHeaders(statusCode int, body string, header http.Header) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResp = newStubResponse(statusCode, body, header)
	return m
}

// StubError stubs all requests to return the given error.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultErr = err
	return m
}

// StubPath stubs requests matching the path to return the given response.
func (m *MockTransport) StubPath(path string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.Path == path
	}, statusCode, body)
}

// StubPathRegex stubs requests matching the path regex to return the given response.
func (m *MockTransport) StubPathRegex(pattern string, statusCode int, body string) *MockTransport {
	re := regexp.MustCompile(pattern)
	return m.StubFunc(func(req *http.Request) bool {
		return re.MatchString(req.URL.Path)
	}, statusCode, body)
}

// StubMethod stubs requests with the given method to return the given response.
func (m *MockTransport) StubMethod(method string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.Method == method
	}, statusCode, body)
}

// StubFunc stubs requests matching the predicate to return the given response.
func (m *MockTransport) StubFunc(
	matcher func(*http.Request) bool,
	statusCode int,
	body string,
) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{
		matcher:  matcher,
		response: newStubResponse(statusCode, body, nil),
	})
	return m
}

// StubFuncError stubs requests matching the predicate to return the given error.
func (m *MockTransport) StubFuncError(matcher func(*http.Request) bool, err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{
		matcher: matcher,
		err:     err,
	})
	return m
}

// OnRequest sets a hook that is called for each request.
// Useful for assertions or capturing request details.
func (m *MockTransport) OnRequest(fn func(*http.Request)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHook = fn
	return m
}

// Hold makes every subsequent call block until Release is called or the
// request context is done.
func (m *MockTransport) Hold() *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
	return m
}

// Release unblocks the calls held by Hold.
func (m *MockTransport) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	recorded := RecordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		recorded.Body = body
	}

	m.mu.Lock()
	m.calls = append(m.calls, recorded)
	hook := m.requestHook
	gate := m.gate
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	if gate != nil {
		select {
		case <-gate:
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Check stubs in order (first match wins)
	for _, s := range m.stubs {
		if s.matcher(req) {
			if s.err != nil {
				return nil, s.err
			}
			return s.response.build(req), nil
		}
	}

	if m.defaultErr != nil {
		return nil, m.defaultErr
	}
	if m.defaultResp != nil {
		return m.defaultResp.build(req), nil
	}

	return nil, errors.New("no stub found for request: " + req.Method + " " + req.URL.String())
}

// Requests returns all requests made through this transport.
func (m *MockTransport) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest{}, m.calls...)
}

// RequestCount returns the number of requests made.
func (m *MockTransport) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// LastRequest returns the most recent request, or nil if none.
func (m *MockTransport) LastRequest() *RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return nil
	}
	last := m.calls[len(m.calls)-1]
	return &last
}

// Reset clears all recorded requests and stubs, and releases held calls.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
	m.calls = nil
	m.stubs = nil
	m.defaultResp = nil
	m.defaultErr = nil
	m.requestHook = nil
}

// build returns a fresh response for req over the stubbed bytes.
func (r *stubResponse) build(req *http.Request) *http.Response {
	return &http.Response{
		Status:        http.StatusText(r.statusCode),
		StatusCode:    r.statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        r.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(r.body)),
		ContentLength: int64(len(r.body)),
		Request:       req,
	}
}

// WithMockTransport is a convenience option to create a client with a mock transport.
func WithMockTransport(mock *MockTransport) Option {
	return func(cfg *internalConfig) {
		cfg.MockTransport = mock
	}
}
