package httpclient

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

// Response is the decoded result of an execution.
//
// Example usage:
//
//	resp, err := client.Get("/users/:id").
//	    SetRouteParam("id", 42).
//	    Execute(ctx)
//	if err != nil {
//	    return err
//	}
//
//	if resp.IsSuccess() {
//	    user := resp.Body.(map[string]any)
//	    fmt.Println(user["name"])
//	}
type Response struct {
	// Body is the decoded body: the JSON value for Execute, a string for
	// ExecuteText, and the decode target for ExecuteInto.
	Body any

	// Headers are the response headers flattened to one value per
	// lower-cased name.
	Headers map[string]string

	// Native is the transport response. Its Body can be read again; it
	// replays Raw.
	Native *http.Response

	// Raw is the undecoded response body.
	Raw []byte

	// Coalesced is true when this execution shared another caller's
	// in-flight transport call instead of issuing its own.
	Coalesced bool

	// curlCommand is the equivalent cURL command for this request.
	// Only populated if WithGenerateCurl(true) was set on the client.
	curlCommand string
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int {
	if r.Native == nil {
		return 0
	}
	return r.Native.StatusCode
}

// IsSuccess returns true if the response status code is 2xx.
func (r *Response) IsSuccess() bool {
	code := r.StatusCode()
	return code >= 200 && code < 300
}

// IsError returns true if the response status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode() >= 400
}

// CurlCommand returns the cURL command equivalent for this request.
//
// This is only populated if WithGenerateCurl(true) was set on the client.
func (r *Response) CurlCommand() string {
	return r.curlCommand
}

// exchange is the settled outcome of one transport call, shared by every
// caller coalesced onto it. It must not be mutated once published.
type exchange struct {
	response *http.Response
	body     []byte
	curl     string
}

// nativeCopy returns a private copy of the shared response whose body
// replays the buffered bytes.
func (e *exchange) nativeCopy() *http.Response {
	clone := *e.response
	clone.Header = e.response.Header.Clone()
	clone.Body = io.NopCloser(bytes.NewReader(e.body))
	return &clone
}

// decodeMode selects how the body of an exchange is decoded.
type decodeMode int

const (
	decodeJSON decodeMode = iota
	decodeText
	decodeInto
)

// decode fills resp.Body according to mode.
func decode(resp *Response, mode decodeMode, target any) error {
	switch mode {
	case decodeText:
		resp.Body = string(resp.Raw)
		return nil
	case decodeInto:
		if err := json.Unmarshal(resp.Raw, target); err != nil {
			return &DecodeError{StatusCode: resp.StatusCode(), Body: resp.Raw, Err: err}
		}
		resp.Body = target
		return nil
	default:
		var v any
		if err := json.Unmarshal(resp.Raw, &v); err != nil {
			return &DecodeError{StatusCode: resp.StatusCode(), Body: resp.Raw, Err: err}
		}
		resp.Body = v
		return nil
	}
}

// flattenHeaders maps every header name (lower-cased) to a single value.
// When a name carries several values the last one wins.
func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(name)] = values[len(values)-1]
	}
	return out
}
