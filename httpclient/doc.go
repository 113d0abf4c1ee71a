// Package httpclient is a typed HTTP request builder and API-client SDK
// with OpenTelemetry instrumentation.
//
// # Features
//
//   - Route templates with ":name" placeholders compiled into URLs
//   - Fluent request builders for route, query, header and body state
//   - Sequential request interceptors (auth, correlation IDs, rate limits)
//   - Coalescing of identical in-flight requests into one transport call
//   - JSON, text and typed response decoding
//   - Single-use abort per request builder
//   - OpenTelemetry tracing and metrics, optional circuit breaker
//
// # Quick Start
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithServiceName("catalog-service"),
//	)
//
//	// GET https://api.example.com/products/42?expand=stock
//	resp, err := client.Get("/products/:id").
//	    SetRouteParam("id", 42).
//	    SetQueryParam("expand", "stock").
//	    Execute(ctx)
//
//	// POST with a JSON body, decoded into a struct
//	var created Product
//	resp, err = client.Post("/products").
//	    SetBody(newProduct).
//	    ExecuteInto(ctx, &created)
//
// # Route Templates
//
// Every "/:name" segment of a route is replaced by the value set with
// SetRouteParam. A missing or falsy value (nil, "", 0, false) removes the
// segment together with its slash:
//
//	client.Get("/users/:id/posts/:postId").
//	    SetRouteParam("id", 7).
//	    CompileURL() // ".../users/7/posts"
//
// Query parameters keep their insertion order.
//
// # Declared Routes
//
// A RouteTable restricts which verbs Client.Route accepts per path, and
// Endpoint binds a route to its response type:
//
//	client := httpclient.New(httpclient.WithRoutes(httpclient.RouteTable{
//	    "/users/:id": {httpclient.VerbGet, httpclient.VerbDelete},
//	}))
//
//	getUser := httpclient.NewEndpoint[User](httpclient.VerbGet, "/users/:id")
//	rb, err := getUser.Build(client)
//	user, resp, err := getUser.Do(ctx, rb.SetRouteParam("id", 7))
//
// # Interceptors
//
// Interceptors transform the draft (URL, method, headers, body) before it is
// sent. They run in order; the first error stops the chain and nothing is
// sent:
//
//	client := httpclient.New(
//	    httpclient.WithRequestInterceptor(httpclient.AuthBearerInterceptor(token)),
//	    httpclient.WithRequestInterceptor(httpclient.RateLimitInterceptor(limiter, true)),
//	)
//
//	client.AddRequestInterceptor(func(ctx context.Context, d httpclient.Draft) (httpclient.Draft, error) {
//	    d.Options.Header.Set("X-Tenant", tenantFrom(ctx))
//	    return d, nil
//	}, false)
//
// # Request Coalescing
//
// Executions whose method, URL, headers and body are identical after the
// interceptors ran share the transport call already in flight and receive
// the same response. Coalescing only spans the lifetime of the call; there
// is no response caching. Clients coalesce with each other when they share
// a Registry:
//
//	registry := httpclient.NewRegistry()
//	a := httpclient.New(httpclient.WithRegistry(registry))
//	b := httpclient.New(httpclient.WithRegistry(registry))
//
// # Cancellation
//
// Each request builder carries a single-use abort signal:
//
//	rb := client.Get("/reports/:id").SetRouteParam("id", id)
//	go func() { <-stop; rb.Abort() }()
//	resp, err := rb.Execute(ctx) // errors.Is(err, httpclient.ErrAborted)
//
// Aborting the builder that started a shared call cancels it for every
// waiter. Aborting a builder that joined another's call only stops that
// builder from waiting. The ctx passed to Execute is honored the same way.
//
// # Observability
//
// Every physical transport call gets a client span and duration/error
// metrics; every execution gets a "trail.execute" span and is counted in
// trail.client.executions. Coalesced executions are counted in
// trail.client.coalesced.
//
//	client := httpclient.New(
//	    httpclient.WithTracerProvider(tp),
//	    httpclient.WithMeterProvider(mp),
//	    httpclient.WithDebug(true),
//	    httpclient.WithGenerateCurl(true),
//	)
//
// # Resilience
//
// A circuit breaker guards physical calls, optionally sharing its state
// through Redis. Rate limits run as interceptors, globally or per host.
// TransportConfig tunes the connection pool and timeouts:
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("billing-api"),
//	    httpclient.WithCircuitBreaker(httpclient.DefaultBreakerConfig()),
//	    httpclient.WithRateLimit(httpclient.DefaultRateLimitConfig()),
//	    httpclient.WithTransportConfig(httpclient.DefaultTransportConfig()),
//	)
//
// # Testing
//
// MockTransport stubs responses and records physical calls:
//
//	mock := httpclient.NewMockTransport().
//	    StubPath("/users/7", 200, `{"id":7}`)
//	client := httpclient.New(httpclient.WithMockTransport(mock))
package httpclient
