package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Client is the dispatcher of the package: it turns route paths and verbs
// into request builders that share the client's base URL, interceptors,
// transport and in-flight registry.
//
// Create a Client using New():
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithServiceName("payment-service"),
//	    httpclient.WithRequestInterceptor(httpclient.AuthBearerInterceptor(token)),
//	)
//
//	resp, err := client.Get("/payments/:id").
//	    SetRouteParam("id", paymentID).
//	    Execute(ctx)
type Client struct {
	// httpClient is the transport primitive, wrapped with instrumentation.
	httpClient *http.Client

	// config holds all client configuration.
	config *internalConfig

	// baseURL is prefixed to every route path.
	baseURL string

	mu sync.RWMutex

	// interceptors is the shared chain copied into new request builders.
	interceptors []Interceptor
}

// New creates a Client.
//
// Example - Basic usage:
//
//	client := httpclient.New(httpclient.WithBaseURL("https://api.example.com"))
//	resp, err := client.Get("/users").Execute(ctx)
//
// Example - Testing with a mock transport:
//
//	mock := httpclient.NewMockTransport().StubResponse(200, `{"ok":true}`)
//	client := httpclient.New(httpclient.WithMockTransport(mock))
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	return &Client{
		httpClient:   cfg.buildHTTPClient(),
		config:       cfg,
		baseURL:      cfg.BaseURL,
		interceptors: append([]Interceptor(nil), cfg.Interceptors...),
	}
}

// HTTP returns the underlying instrumented *http.Client.
//
// Requests made directly through it bypass interceptors and coalescing.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// Registry returns the in-flight registry used by the client.
func (c *Client) Registry() *Registry {
	return c.config.Registry
}

// AddRequestInterceptor adds an interceptor to the shared chain, at the end
// or, with prepend set, at the front. Only request builders created
// afterwards see it.
func (c *Client) AddRequestInterceptor(i Interceptor, prepend bool) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prepend {
		c.interceptors = append([]Interceptor{i}, c.interceptors...)
	} else {
		c.interceptors = append(c.interceptors, i)
	}
	return c
}

// Request creates a request builder for the route path and verb.
//
// The path may contain ":name" placeholders filled with SetRouteParam.
// The route table, if any, is not consulted; use Route for a checked
// lookup.
func (c *Client) Request(path string, verb Verb) *RequestBuilder {
	c.mu.RLock()
	chain := append([]Interceptor(nil), c.interceptors...)
	c.mu.RUnlock()

	return newRequestBuilder(c, c.baseURL+path, verb, chain)
}

// Route creates a request builder after checking the client's route table.
// It returns ErrRouteNotAllowed when the table does not declare verb for
// path. Without a route table every route is allowed.
func (c *Client) Route(path string, verb Verb) (*RequestBuilder, error) {
	if c.config.Routes != nil && !c.config.Routes.Allows(path, verb) {
		return nil, fmt.Errorf("%w: %s %s", ErrRouteNotAllowed, verb, path)
	}
	return c.Request(path, verb), nil
}

// Get creates a GET request builder.
func (c *Client) Get(path string) *RequestBuilder {
	return c.Request(path, VerbGet)
}

// Post creates a POST request builder.
func (c *Client) Post(path string) *RequestBuilder {
	return c.Request(path, VerbPost)
}

// Put creates a PUT request builder.
func (c *Client) Put(path string) *RequestBuilder {
	return c.Request(path, VerbPut)
}

// Patch creates a PATCH request builder.
func (c *Client) Patch(path string) *RequestBuilder {
	return c.Request(path, VerbPatch)
}

// Delete creates a DELETE request builder.
func (c *Client) Delete(path string) *RequestBuilder {
	return c.Request(path, VerbDelete)
}

// roundTrip performs the physical transport call for a draft and buffers
// the response body.
//
// The call is bound to ctx and, when present, to the cancellation token of
// the request builder that started it.
func (c *Client) roundTrip(ctx context.Context, token *cancelToken, draft Draft) (*exchange, error) {
	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if token != nil {
		stop := context.AfterFunc(token.ctx, func() {
			cancel(context.Cause(token.ctx))
		})
		defer stop()
	}

	body, raw, contentType, err := bodyReader(draft.Options.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(reqCtx, draft.Options.Method, draft.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header = draft.Options.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	// The body is buffered below and closed before returning.
	//nolint:bodyclose
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, abortCause(reqCtx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, abortCause(reqCtx, err)
	}

	ex := &exchange{response: resp, body: data}
	if c.config.GenerateCurl {
		ex.curl = generateCurlCommand(req, raw)
	}
	return ex, nil
}

// abortCause marks err as an abort when ctx was cancelled through Abort.
func abortCause(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), ErrAborted) && !errors.Is(err, ErrAborted) {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return err
}
