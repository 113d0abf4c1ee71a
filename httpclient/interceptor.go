package httpclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Draft is the request as seen by interceptors: the compiled URL and the
// transport options.
type Draft struct {
	URL     string
	Options Options
}

// Options are the transport options of a Draft.
//
// Body is nil (no body), a JSON string, a *Form, or whatever an interceptor
// replaced it with ([]byte and io.Reader are also sent).
type Options struct {
	Method string
	Header http.Header
	Body   any
}

// Interceptor transforms a draft before it is sent.
//
// Interceptors run in the order they were added, each receiving the draft
// returned by the previous one. An interceptor may block (e.g. to refresh a
// token); the chain waits for it. Returning an error stops the chain and no
// request is sent.
//
// Common use cases:
//   - Adding authentication headers (Bearer tokens, API keys)
//   - Injecting correlation IDs
//   - Rewriting the target host
//   - Client-side rate limiting
type Interceptor func(ctx context.Context, draft Draft) (Draft, error)

// applyInterceptors runs the chain sequentially over draft.
func applyInterceptors(ctx context.Context, chain []Interceptor, draft Draft) (Draft, error) {
	for i, interceptor := range chain {
		next, err := interceptor(ctx, draft)
		if err != nil {
			return Draft{}, &InterceptorError{Index: i, Err: err}
		}
		if next.Options.Header == nil {
			next.Options.Header = make(http.Header)
		}
		draft = next
	}
	return draft, nil
}

// HeaderInterceptor creates an interceptor that sets a static header.
func HeaderInterceptor(name, value string) Interceptor {
	return func(_ context.Context, d Draft) (Draft, error) {
		d.Options.Header.Set(name, value)
		return d, nil
	}
}

// AuthBearerInterceptor creates an interceptor that adds a Bearer token.
func AuthBearerInterceptor(token string) Interceptor {
	return HeaderInterceptor("Authorization", "Bearer "+token)
}

// AuthBearerFuncInterceptor creates an interceptor that adds a Bearer token
// from a function (useful for dynamic/refreshable tokens).
func AuthBearerFuncInterceptor(tokenFunc func(ctx context.Context) (string, error)) Interceptor {
	return func(ctx context.Context, d Draft) (Draft, error) {
		token, err := tokenFunc(ctx)
		if err != nil {
			return d, err
		}
		d.Options.Header.Set("Authorization", "Bearer "+token)
		return d, nil
	}
}

// APIKeyInterceptor creates an interceptor that adds an API key header.
func APIKeyInterceptor(headerName, apiKey string) Interceptor {
	return HeaderInterceptor(headerName, apiKey)
}

// UserAgentInterceptor creates an interceptor that sets the User-Agent header.
func UserAgentInterceptor(userAgent string) Interceptor {
	return HeaderInterceptor("User-Agent", userAgent)
}

// CorrelationIDInterceptor creates an interceptor that adds a correlation ID.
// A nil idFunc generates random UUIDs.
//
// A fresh ID per request makes the fingerprint unique, so requests carrying
// it are never coalesced.
func CorrelationIDInterceptor(headerName string, idFunc func() string) Interceptor {
	if idFunc == nil {
		idFunc = uuid.NewString
	}
	return func(_ context.Context, d Draft) (Draft, error) {
		if d.Options.Header.Get(headerName) == "" {
			d.Options.Header.Set(headerName, idFunc())
		}
		return d, nil
	}
}

// BaseURLInterceptor creates an interceptor that replaces the from prefix of
// the draft URL with to. Drafts that do not start with from are untouched.
func BaseURLInterceptor(from, to string) Interceptor {
	return func(_ context.Context, d Draft) (Draft, error) {
		if strings.HasPrefix(d.URL, from) {
			d.URL = to + strings.TrimPrefix(d.URL, from)
		}
		return d, nil
	}
}
