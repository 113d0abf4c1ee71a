package httpclient

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Fingerprint builds the key used to detect identical in-flight requests:
//
//	"<method> <url> <headers> <body>"
//
// Headers contribute "name=value" pairs with lower-cased names in sorted
// order, multiple values joined by ", ". The body contributes form entries
// as "key=value" pairs in insertion order, strings verbatim, and nothing for
// other types. The key is not hashed or normalized any further: query
// parameter order and header values must match exactly for two requests to
// be coalesced.
func Fingerprint(method, rawURL string, header http.Header, body any) string {
	return method + " " + rawURL + " " + headerKey(header) + " " + bodyKey(body)
}

func headerKey(header http.Header) string {
	if len(header) == 0 {
		return ""
	}

	merged := make(map[string][]string, len(header))
	names := make([]string, 0, len(header))
	for name, values := range header {
		lower := strings.ToLower(name)
		if _, ok := merged[lower]; !ok {
			names = append(names, lower)
		}
		merged[lower] = append(merged[lower], values...)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(strings.Join(merged[name], ", "))
	}
	return sb.String()
}

// Registry tracks in-flight executions by fingerprint so that concurrent
// identical requests share one transport call.
//
// An entry exists only while its transport call is outstanding: it is
// added by the first caller and removed exactly once when the call settles,
// whether it succeeded or failed. Callers arriving later start a new call.
//
// A Registry is safe for concurrent use. Clients get their own Registry
// unless one is shared with WithRegistry.
type Registry struct {
	group singleflight.Group

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		pending: make(map[string]struct{}),
	}
}

// Len returns the number of transport calls currently outstanding.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Pending reports whether a transport call for key is outstanding.
func (r *Registry) Pending(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[key]
	return ok
}

// join returns the pending execution for key, starting call when there is
// none. owner reports, once the result is received, whether this caller's
// call was the one executed.
func (r *Registry) join(key string, call func() (*exchange, error)) (<-chan singleflight.Result, *bool) {
	owner := new(bool)
	ch := r.group.DoChan(key, func() (any, error) {
		*owner = true
		r.track(key, true)
		defer r.track(key, false)
		return call()
	})
	return ch, owner
}

func (r *Registry) track(key string, start bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if start {
		r.pending[key] = struct{}{}
		return
	}
	delete(r.pending, key)
}
