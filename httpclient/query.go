package httpclient

import (
	"net/url"
	"strings"
)

// Query is an insertion-ordered multi-map of query parameters.
//
// Unlike url.Values, Encode keeps the order in which keys were first
// added, so the compiled URL (and the request fingerprint derived from it)
// is stable for a given sequence of setter calls.
type Query struct {
	pairs []queryPair
}

type queryPair struct {
	key   string
	value string
}

// Set replaces every value of key with value. The key keeps the position
// of its first occurrence; a new key is appended.
func (q *Query) Set(key, value string) {
	idx := -1
	kept := q.pairs[:0]
	for _, p := range q.pairs {
		if p.key != key {
			kept = append(kept, p)
			continue
		}
		if idx < 0 {
			idx = len(kept)
			kept = append(kept, queryPair{key: key, value: value})
		}
	}
	q.pairs = kept
	if idx < 0 {
		q.pairs = append(q.pairs, queryPair{key: key, value: value})
	}
}

// Add appends a value for key, keeping existing values.
func (q *Query) Add(key, value string) {
	q.pairs = append(q.pairs, queryPair{key: key, value: value})
}

// Del removes every value of key.
func (q *Query) Del(key string) {
	kept := q.pairs[:0]
	for _, p := range q.pairs {
		if p.key != key {
			kept = append(kept, p)
		}
	}
	q.pairs = kept
}

// Get returns the first value of key, or "" if it is not set.
func (q *Query) Get(key string) string {
	for _, p := range q.pairs {
		if p.key == key {
			return p.value
		}
	}
	return ""
}

// Values returns all values of key in insertion order.
func (q *Query) Values(key string) []string {
	var out []string
	for _, p := range q.pairs {
		if p.key == key {
			out = append(out, p.value)
		}
	}
	return out
}

// Len returns the number of key/value pairs.
func (q *Query) Len() int {
	return len(q.pairs)
}

// Encode serializes the pairs as a form-urlencoded query string
// ("a=1&b=x+y") in insertion order.
func (q *Query) Encode() string {
	if len(q.pairs) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, p := range q.pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.value))
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (q *Query) String() string {
	return q.Encode()
}

func (q *Query) clone() *Query {
	return &Query{pairs: append([]queryPair(nil), q.pairs...)}
}
