package httpclient

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RequestBuilder describes a single route call: a URL template with
// ":name" placeholders, a verb, route and query parameters, headers, a body
// and the interceptors to run before sending.
//
// Create a RequestBuilder using the Client:
//
//	resp, err := client.Post("/users/:id/posts").
//	    SetRouteParam("id", userID).
//	    SetQueryParam("notify", true).
//	    SetHeader("Idempotency-Key", key).
//	    SetBody(post).
//	    Execute(ctx)
//
// A RequestBuilder is safe for concurrent use. Executing the same builder
// from several goroutines at once coalesces into one transport call.
type RequestBuilder struct {
	client *Client

	mu           sync.Mutex
	urlTemplate  string
	verb         Verb
	routeParams  map[string]any
	queryParams  *Query
	headers      http.Header
	body         any
	interceptors []Interceptor
	token        *cancelToken
	lastResponse *http.Response
}

// cancelToken is the single-use abort signal owned by a RequestBuilder.
type cancelToken struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newCancelToken() *cancelToken {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &cancelToken{ctx: ctx, cancel: cancel}
}

func newRequestBuilder(c *Client, urlTemplate string, verb Verb, chain []Interceptor) *RequestBuilder {
	headers := make(http.Header)
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")
	for name, values := range c.config.DefaultHeaders {
		headers[name] = append([]string(nil), values...)
	}

	return &RequestBuilder{
		client:       c,
		urlTemplate:  urlTemplate,
		verb:         verb,
		routeParams:  make(map[string]any),
		queryParams:  &Query{},
		headers:      headers,
		interceptors: chain,
		token:        newCancelToken(),
	}
}

// =============================================================================
// Accessors
// =============================================================================

// URLTemplate returns the uncompiled URL, placeholders included.
func (rb *RequestBuilder) URLTemplate() string {
	return rb.urlTemplate
}

// Verb returns the request verb.
func (rb *RequestBuilder) Verb() Verb {
	return rb.verb
}

// RouteParams returns a copy of the route parameters.
func (rb *RequestBuilder) RouteParams() map[string]any {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	out := make(map[string]any, len(rb.routeParams))
	for k, v := range rb.routeParams {
		out[k] = v
	}
	return out
}

// QueryParams returns a copy of the query parameters.
func (rb *RequestBuilder) QueryParams() *Query {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.queryParams.clone()
}

// Header returns a copy of the request headers.
func (rb *RequestBuilder) Header() http.Header {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.headers.Clone()
}

// Body returns the body set with SetBody, or nil.
func (rb *RequestBuilder) Body() any {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.body
}

// =============================================================================
// Setters
// =============================================================================

// SetRouteParam sets the value of a ":name" placeholder.
//
// Values are rendered with fmt.Sprint. A falsy value (nil, "", 0, false)
// removes the placeholder segment from the compiled URL, like a missing one.
func (rb *RequestBuilder) SetRouteParam(name string, value any) *RequestBuilder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.routeParams[name] = value
	return rb
}

// SetRouteParams merges params into the route parameters.
func (rb *RequestBuilder) SetRouteParams(params map[string]any) *RequestBuilder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for k, v := range params {
		rb.routeParams[k] = v
	}
	return rb
}

// SetQueryParam sets a query parameter, replacing previous values of key.
func (rb *RequestBuilder) SetQueryParam(key string, value any) *RequestBuilder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.queryParams.Set(key, stringify(value))
	return rb
}

// SetQueryParams sets several query parameters. New keys are appended in
// sorted key order so that the compiled URL is deterministic.
func (rb *RequestBuilder) SetQueryParams(params map[string]any) *RequestBuilder {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rb.mu.Lock()
	defer rb.mu.Unlock()
	for _, k := range keys {
		rb.queryParams.Set(k, stringify(params[k]))
	}
	return rb
}

// AddQueryParam appends a value for key, keeping existing values.
func (rb *RequestBuilder) AddQueryParam(key string, value any) *RequestBuilder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.queryParams.Add(key, stringify(value))
	return rb
}

// DeleteQueryParam removes every value of key.
func (rb *RequestBuilder) DeleteQueryParam(key string) *RequestBuilder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.queryParams.Del(key)
	return rb
}

// SetHeader sets a request header. Names are case-insensitive.
func (rb *RequestBuilder) SetHeader(name, value string) *RequestBuilder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.headers.Set(name, value)
	return rb
}

// SetHeaders sets several request headers.
func (rb *RequestBuilder) SetHeaders(headers map[string]string) *RequestBuilder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for k, v := range headers {
		rb.headers.Set(k, v)
	}
	return rb
}

// DeleteHeader removes a request header, including the JSON defaults.
func (rb *RequestBuilder) DeleteHeader(name string) *RequestBuilder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.headers.Del(name)
	return rb
}

// SetBody sets the request body: a *Form, sent as multipart/form-data, or
// any value that encodes to JSON. GET requests never send a body.
func (rb *RequestBuilder) SetBody(body any) *RequestBuilder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.body = body
	return rb
}

// AddRequestInterceptor appends an interceptor to this builder's chain.
// The client's shared chain is not modified.
func (rb *RequestBuilder) AddRequestInterceptor(i Interceptor) *RequestBuilder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.interceptors = append(rb.interceptors, i)
	return rb
}

// =============================================================================
// Compilation
// =============================================================================

// CompileURL returns the URL with route parameters substituted and the
// query string appended.
//
// Example:
//
//	client.Get("/api/:id").SetRouteParam("id", "789").
//	    SetQueryParam("search", "hello").
//	    CompileURL() // "/api/789?search=hello"
//
//	client.Get("/api/:id").CompileURL() // "/api"
func (rb *RequestBuilder) CompileURL() string {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return compileURL(rb.urlTemplate, rb.routeParams, rb.queryParams)
}

// SerializedBody returns the body as it is placed in the draft: the *Form
// itself, a JSON string, or nil when no body is set.
func (rb *RequestBuilder) SerializedBody() (any, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return serializeBody(rb.body)
}

// Fingerprint runs the interceptor chain on a draft of the request and
// returns the key Execute would register it under. Interceptors with side
// effects, such as rate limiters, run as they would for Execute.
func (rb *RequestBuilder) Fingerprint(ctx context.Context) (string, error) {
	initial, chain, _, err := rb.draft()
	if err != nil {
		return "", err
	}

	d, err := applyInterceptors(ctx, chain, initial)
	if err != nil {
		return "", err
	}
	return Fingerprint(d.Options.Method, d.URL, d.Options.Header, d.Options.Body), nil
}

// draft captures the builder state for one execution.
func (rb *RequestBuilder) draft() (Draft, []Interceptor, *cancelToken, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var body any
	if rb.verb != VerbGet {
		var err error
		body, err = serializeBody(rb.body)
		if err != nil {
			return Draft{}, nil, nil, err
		}
	}

	d := Draft{
		URL: compileURL(rb.urlTemplate, rb.routeParams, rb.queryParams),
		Options: Options{
			Method: string(rb.verb),
			Header: rb.headers.Clone(),
			Body:   body,
		},
	}

	return d, append([]Interceptor(nil), rb.interceptors...), rb.token, nil
}

// =============================================================================
// Execution
// =============================================================================

// Execute sends the request and decodes the response body as JSON into
// Response.Body.
//
// Identical requests (same method, URL, headers and body after the
// interceptors ran) that are in flight at the same time share a single
// transport call. Non-2xx responses are not errors.
func (rb *RequestBuilder) Execute(ctx context.Context) (*Response, error) {
	return rb.execute(ctx, decodeJSON, nil)
}

// ExecuteText sends the request and returns the response body as a string
// in Response.Body.
func (rb *RequestBuilder) ExecuteText(ctx context.Context) (*Response, error) {
	return rb.execute(ctx, decodeText, nil)
}

// ExecuteInto sends the request and decodes the JSON response body into v,
// which becomes Response.Body.
//
// Example:
//
//	var user User
//	resp, err := client.Get("/users/:id").
//	    SetRouteParam("id", 42).
//	    ExecuteInto(ctx, &user)
func (rb *RequestBuilder) ExecuteInto(ctx context.Context, v any) (*Response, error) {
	return rb.execute(ctx, decodeInto, v)
}

func (rb *RequestBuilder) execute(ctx context.Context, mode decodeMode, target any) (resp *Response, err error) {
	cfg := rb.client.config
	attrs := cfg.baseAttributes()

	ctx, span := cfg.Tracer.Start(ctx, "trail.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("http.request.method", string(rb.verb)),
			attribute.String("url.template", rb.urlTemplate),
		),
	)
	defer span.End()

	defer func() {
		errorType := classifyError(err)
		if err != nil {
			setSpanError(span, err, errorType)
		}
		cfg.Metrics.recordExecution(ctx, errorType, attrs)
	}()

	initial, chain, token, err := rb.draft()
	if err != nil {
		return nil, err
	}

	draft, err := applyInterceptors(ctx, chain, initial)
	if err != nil {
		cfg.Metrics.recordInterceptorError(ctx, attrs)
		return nil, err
	}

	key := Fingerprint(draft.Options.Method, draft.URL, draft.Options.Header, draft.Options.Body)
	if cfg.Debug {
		logDraft(cfg.Logger, draft, key)
	}

	start := time.Now()
	pending, owner := cfg.Registry.join(key, func() (*exchange, error) {
		cfg.Metrics.recordInflight(ctx, 1, attrs)
		defer cfg.Metrics.recordInflight(ctx, -1, attrs)
		return rb.client.roundTrip(ctx, token, draft)
	})

	var aborted <-chan struct{}
	if token != nil {
		aborted = token.ctx.Done()
	}

	select {
	case res := <-pending:
		if res.Err != nil {
			if cfg.Debug {
				logFailure(cfg.Logger, draft, res.Err)
			}
			return nil, res.Err
		}

		resp = rb.settle(res.Val.(*exchange), !*owner)
		span.SetAttributes(
			attribute.Int("http.response.status_code", resp.StatusCode()),
			attribute.Bool("trail.coalesced", resp.Coalesced),
		)
		if resp.Coalesced {
			cfg.Metrics.recordCoalesced(ctx, attrs)
		}
		if cfg.Debug {
			logResponse(cfg.Logger, resp, time.Since(start))
		}

		if err := decode(resp, mode, target); err != nil {
			return resp, err
		}
		return resp, nil

	case <-aborted:
		// Detach: a shared call started by another builder keeps running.
		return nil, ErrAborted

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// settle records the shared exchange on the builder and wraps it in a
// private Response.
func (rb *RequestBuilder) settle(ex *exchange, coalesced bool) *Response {
	native := ex.nativeCopy()

	rb.mu.Lock()
	rb.lastResponse = native
	rb.mu.Unlock()

	return &Response{
		Headers:     flattenHeaders(native.Header),
		Native:      native,
		Raw:         ex.body,
		Coalesced:   coalesced,
		curlCommand: ex.curl,
	}
}

// =============================================================================
// Response inspection and cancellation
// =============================================================================

// LastResponse returns the raw response of the last completed execution,
// or nil before the first one.
func (rb *RequestBuilder) LastResponse() *http.Response {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.lastResponse
}

// ResponseHeaders returns the headers of the last completed response
// flattened to one value per lower-cased name, or nil before the first
// response.
func (rb *RequestBuilder) ResponseHeaders() map[string]string {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.lastResponse == nil {
		return nil
	}
	return flattenHeaders(rb.lastResponse.Header)
}

// Abort cancels the builder's in-flight execution, if any, and discards its
// cancellation token. It returns true on the first call and false afterwards.
//
// An execution that started the transport call cancels it, and executions
// coalesced onto that call see the same error. An execution that joined
// another builder's call only stops waiting and returns ErrAborted. Calls to
// Execute after Abort run without an abort signal.
func (rb *RequestBuilder) Abort() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.token == nil {
		return false
	}

	rb.token.cancel(ErrAborted)
	rb.token = nil
	return true
}
