package httpclient

import (
	"context"
	"sort"
)

// RouteTable declares the verbs each route path accepts.
//
// Example:
//
//	routes := httpclient.RouteTable{
//	    "/users":     {httpclient.VerbGet, httpclient.VerbPost},
//	    "/users/:id": {httpclient.VerbGet, httpclient.VerbPatch, httpclient.VerbDelete},
//	}
//	client := httpclient.New(httpclient.WithRoutes(routes))
//
//	rb, err := client.Route("/users/:id", httpclient.VerbPut) // ErrRouteNotAllowed
type RouteTable map[string][]Verb

// Allows reports whether verb is declared for path.
func (t RouteTable) Allows(path string, verb Verb) bool {
	for _, v := range t[path] {
		if v == verb {
			return true
		}
	}
	return false
}

// Paths returns the paths that declare verb, sorted.
func (t RouteTable) Paths(verb Verb) []string {
	var out []string
	for path := range t {
		if t.Allows(path, verb) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// Endpoint binds a route path and verb to the type its responses decode
// into.
//
// Example:
//
//	var getUser = httpclient.NewEndpoint[User](httpclient.VerbGet, "/users/:id")
//
//	rb, err := getUser.Build(client)
//	if err != nil {
//	    return err
//	}
//	user, resp, err := getUser.Do(ctx, rb.SetRouteParam("id", 42))
type Endpoint[Resp any] struct {
	Path string
	Verb Verb
}

// NewEndpoint creates an Endpoint.
func NewEndpoint[Resp any](verb Verb, path string) Endpoint[Resp] {
	return Endpoint[Resp]{Path: path, Verb: verb}
}

// Build creates a request builder for the endpoint through Client.Route.
func (e Endpoint[Resp]) Build(c *Client) (*RequestBuilder, error) {
	return c.Route(e.Path, e.Verb)
}

// Do executes rb and decodes the response into Resp.
func (e Endpoint[Resp]) Do(ctx context.Context, rb *RequestBuilder) (Resp, *Response, error) {
	return Do[Resp](ctx, rb)
}

// Do executes rb and decodes the JSON response body into a T.
//
// Example:
//
//	users, resp, err := httpclient.Do[[]User](ctx, client.Get("/users"))
func Do[T any](ctx context.Context, rb *RequestBuilder) (T, *Response, error) {
	var out T
	resp, err := rb.ExecuteInto(ctx, &out)
	return out, resp, err
}
