package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
)

// serializeBody prepares a descriptor body for the draft.
//
// A *Form passes through unchanged and nil stays absent. Any other value is
// JSON encoded into a string.
func serializeBody(body any) (any, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case *Form:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode body: %w", err)
		}
		return string(data), nil
	}
}

// bodyKey is the body segment of a request fingerprint: form entries as
// concatenated "key=value" pairs, strings verbatim, anything else empty.
func bodyKey(body any) string {
	switch b := body.(type) {
	case *Form:
		var sb strings.Builder
		for _, e := range b.entries {
			value := e.Value
			if e.IsFile() {
				value = e.FileName
			}
			sb.WriteString(e.Name)
			sb.WriteByte('=')
			sb.WriteString(value)
		}
		return sb.String()
	case string:
		return b
	default:
		return ""
	}
}

// bodyReader turns a draft body into a transport body. The returned content
// type is non-empty only when it must replace the request's Content-Type.
func bodyReader(body any) (io.Reader, []byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil, "", nil
	case string:
		return strings.NewReader(b), []byte(b), "", nil
	case []byte:
		return bytes.NewReader(b), b, "", nil
	case *Form:
		buf, contentType, err := b.encode()
		if err != nil {
			return nil, nil, "", fmt.Errorf("httpclient: encode form: %w", err)
		}
		return bytes.NewReader(buf.Bytes()), buf.Bytes(), contentType, nil
	case io.Reader:
		return b, nil, "", nil
	default:
		return nil, nil, "", fmt.Errorf("httpclient: unsupported draft body type %T", body)
	}
}
