package httpclient

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// debugLogger is the package-level zerolog logger for debug output.
var debugLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// generateCurlCommand creates a cURL command equivalent for the given request.
//
// Example output:
//
//	curl -X POST 'https://api.example.com/users' \
//	  -H 'Content-Type: application/json' \
//	  -d '{"name":"John"}'
func generateCurlCommand(req *http.Request, body []byte) string {
	var parts []string

	parts = append(parts, "curl")

	if req.Method != http.MethodGet {
		parts = append(parts, "-X", req.Method)
	}

	parts = append(parts, fmt.Sprintf("'%s'", req.URL.String()))

	// Headers (sorted for consistent output)
	headerKeys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		headerKeys = append(headerKeys, k)
	}
	sort.Strings(headerKeys)

	for _, k := range headerKeys {
		for _, v := range req.Header[k] {
			parts = append(parts, "-H", fmt.Sprintf("'%s: %s'", k, v))
		}
	}

	if len(body) > 0 {
		bodyStr := strings.ReplaceAll(string(body), "'", "'\\''")
		parts = append(parts, "--data-binary", fmt.Sprintf("'%s'", bodyStr))
	}

	return strings.Join(parts, " ")
}

// logDraft logs a draft leaving the interceptor chain.
func logDraft(logger zerolog.Logger, draft Draft, key string) {
	logger.Debug().
		Str("method", draft.Options.Method).
		Str("url", draft.URL).
		Str("fingerprint", key).
		Msg("HTTP request")
}

// logResponse logs the response details of a completed execution.
func logResponse(logger zerolog.Logger, resp *Response, duration time.Duration) {
	logger.Debug().
		Int("status", resp.StatusCode()).
		Str("status_text", resp.Native.Status).
		Bool("coalesced", resp.Coalesced).
		Dur("duration_ms", duration).
		Int("content_length", len(resp.Raw)).
		Msg("HTTP response")
}

// logFailure logs a failed execution.
func logFailure(logger zerolog.Logger, draft Draft, err error) {
	logger.Debug().
		Err(err).
		Str("method", draft.Options.Method).
		Str("url", draft.URL).
		Str("error_type", classifyError(err)).
		Msg("HTTP request failed")
}
