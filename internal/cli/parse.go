package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/trail/httpclient"
)

var errBodyConflict = errors.New("--data and --form are mutually exclusive")

type pair struct {
	key   string
	value string
}

// parsePairs splits "key=value" arguments, keeping their order.
func parsePairs(values []string) ([]pair, error) {
	pairs := make([]pair, 0, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid pair %q (want key=value)", v)
		}
		pairs = append(pairs, pair{key: key, value: value})
	}
	return pairs, nil
}

// parseHeaders splits "Name: value" arguments on the first colon.
func parseHeaders(values []string) (http.Header, error) {
	header := make(http.Header)
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (want 'Name: value')", v)
		}
		header.Add(name, strings.TrimSpace(value))
	}
	return header, nil
}

// parseBody turns --data or --form into a request body. A nil body means
// neither was given.
func parseBody(data string, form []string) (any, error) {
	if data != "" && len(form) > 0 {
		return nil, errBodyConflict
	}

	if len(form) > 0 {
		fields, err := parsePairs(form)
		if err != nil {
			return nil, err
		}
		f := httpclient.NewForm()
		for _, field := range fields {
			if path, ok := strings.CutPrefix(field.value, "@"); ok {
				f.AppendFilePath(field.key, path)
				continue
			}
			f.Append(field.key, field.value)
		}
		return f, nil
	}

	if data == "" {
		return nil, nil
	}

	raw := []byte(data)
	if path, ok := strings.CutPrefix(data, "@"); ok {
		var err error
		if raw, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("body is not valid JSON: %w", err)
	}
	return body, nil
}

// buildRequest creates a request builder from the positional VERB PATH
// arguments and the shared flags.
func buildRequest(cmd *cobra.Command, client *httpclient.Client, args []string) (*httpclient.RequestBuilder, error) {
	verb, err := httpclient.ParseVerb(args[0])
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	rawParams, _ := flags.GetStringArray("param")
	rawQuery, _ := flags.GetStringArray("query")
	rawHeaders, _ := flags.GetStringArray("header")
	data, _ := flags.GetString("data")
	rawForm, _ := flags.GetStringArray("form")

	params, err := parsePairs(rawParams)
	if err != nil {
		return nil, err
	}
	query, err := parsePairs(rawQuery)
	if err != nil {
		return nil, err
	}
	headers, err := parseHeaders(rawHeaders)
	if err != nil {
		return nil, err
	}
	body, err := parseBody(data, rawForm)
	if err != nil {
		return nil, err
	}

	rb, err := client.Route(args[1], verb)
	if err != nil {
		return nil, err
	}

	for _, p := range params {
		rb.SetRouteParam(p.key, p.value)
	}
	for _, q := range query {
		rb.AddQueryParam(q.key, q.value)
	}
	for name := range headers {
		rb.SetHeader(name, strings.Join(headers.Values(name), ", "))
	}
	if body != nil {
		rb.SetBody(body)
	}
	return rb, nil
}
