package httpclient

import (
	"net/http"
	"strings"
)

// Verb is an HTTP method accepted by the request builder.
type Verb string

// Supported verbs.
const (
	VerbGet    Verb = http.MethodGet
	VerbPost   Verb = http.MethodPost
	VerbPut    Verb = http.MethodPut
	VerbPatch  Verb = http.MethodPatch
	VerbDelete Verb = http.MethodDelete
)

// ParseVerb converts a case-insensitive method name into a Verb.
func ParseVerb(s string) (Verb, error) {
	switch v := Verb(strings.ToUpper(strings.TrimSpace(s))); v {
	case VerbGet, VerbPost, VerbPut, VerbPatch, VerbDelete:
		return v, nil
	default:
		return "", &UnsupportedVerbError{Verb: s}
	}
}

// String returns the method name.
func (v Verb) String() string {
	return string(v)
}
