package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/trail/httpclient"
	"github.com/kroma-labs/trail/internal/telemetry"
)

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request VERB PATH",
		Short: "Send a request and print the response body",
		Example: `  trail request GET /users/:id -p id=42 --base-url https://api.example.com
  trail request POST /users -d '{"name":"Ada"}' -i`,
		Args: cobra.ExactArgs(2),
		RunE: runRequest,
	}

	f := cmd.Flags()
	f.Bool("text", false, "Print the body as text instead of indented JSON")
	f.BoolP("include", "i", false, "Print the status line and response headers")
	f.Bool("curl", false, "Print an equivalent curl command to stderr")
	f.Float64("rps", 0, "Client-side rate limit in requests per second (0 disables)")
	f.String("service-name", "trail-cli", "Client name reported in traces and metrics")
	f.String("otlp-endpoint", "", "OTLP gRPC endpoint receiving traces (e.g., localhost:4317)")
	f.Bool("metrics", false, "Print client metrics to stderr after the request")
	return cmd
}

// newLogger returns the zerolog console logger used for --debug output.
func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(level).
		With().Timestamp().Logger()
}

// newClient creates the client shared by the request and fingerprint
// commands. providers may be nil.
func newClient(cmd *cobra.Command, logger zerolog.Logger, providers *telemetry.Providers, extra ...httpclient.Option) *httpclient.Client {
	flags := cmd.Flags()
	baseURL, _ := flags.GetString("base-url")
	timeout, _ := flags.GetDuration("timeout")
	debug, _ := flags.GetBool("debug")
	correlation, _ := flags.GetString("correlation-header")

	tc := httpclient.DefaultTransportConfig()
	tc.Timeout = timeout

	opts := []httpclient.Option{
		httpclient.WithBaseURL(strings.TrimSuffix(baseURL, "/")),
		httpclient.WithTransportConfig(tc),
		httpclient.WithLogger(logger),
		httpclient.WithDebug(debug),
		httpclient.WithDefaultHeader("User-Agent", "trail/"+version),
	}
	if correlation != "" {
		opts = append(opts, httpclient.WithRequestInterceptor(httpclient.CorrelationIDInterceptor(correlation, nil)))
	}
	if providers != nil {
		opts = append(opts,
			httpclient.WithTracerProvider(providers.TracerProvider),
			httpclient.WithMeterProvider(providers.MeterProvider),
			httpclient.WithPropagators(providers.Propagator),
		)
	}
	return httpclient.New(append(opts, extra...)...)
}

func runRequest(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	text, _ := flags.GetBool("text")
	include, _ := flags.GetBool("include")
	curl, _ := flags.GetBool("curl")
	rps, _ := flags.GetFloat64("rps")
	serviceName, _ := flags.GetString("service-name")
	otlpEndpoint, _ := flags.GetString("otlp-endpoint")
	withMetrics, _ := flags.GetBool("metrics")
	debug, _ := flags.GetBool("debug")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	logger := newLogger(cmd.ErrOrStderr(), debug)

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		OTLPEndpoint:   otlpEndpoint,
		Metrics:        withMetrics,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	extra := []httpclient.Option{
		httpclient.WithServiceName(serviceName),
		httpclient.WithGenerateCurl(curl),
	}
	if rps > 0 {
		rl := httpclient.DefaultRateLimitConfig()
		rl.RequestsPerSecond = rps
		extra = append(extra, httpclient.WithRateLimit(rl))
	}
	client := newClient(cmd, logger, providers, extra...)

	if withMetrics {
		providers.Registry.MustRegister(httpclient.NewRegistryCollector(client.Registry(), serviceName))
	}

	rb, err := buildRequest(cmd, client, args)
	if err != nil {
		return err
	}

	var resp *httpclient.Response
	if text {
		resp, err = rb.ExecuteText(ctx)
	} else {
		resp, err = rb.Execute(ctx)
	}

	var decodeErr *httpclient.DecodeError
	if err != nil && !errors.As(err, &decodeErr) {
		return err
	}

	out := cmd.OutOrStdout()
	if include {
		writeHead(out, resp)
	}
	writeBody(out, resp.Raw, text)

	if curl {
		fmt.Fprintln(cmd.ErrOrStderr(), resp.CurlCommand())
	}
	if withMetrics {
		if err := providers.WriteMetrics(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	return nil
}

// writeHead prints the status line and the response headers sorted by name.
func writeHead(w io.Writer, resp *httpclient.Response) {
	fmt.Fprintf(w, "%s %s\n", resp.Native.Proto, resp.Native.Status)

	names := make([]string, 0, len(resp.Native.Header))
	for name := range resp.Native.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range resp.Native.Header[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
	fmt.Fprintln(w)
}

// writeBody prints raw, indenting it when it is JSON and text is unset.
func writeBody(w io.Writer, raw []byte, text bool) {
	if len(raw) == 0 {
		return
	}

	if !text {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err == nil {
			buf.WriteByte('\n')
			_, _ = buf.WriteTo(w)
			return
		}
	}

	_, _ = w.Write(raw)
	if raw[len(raw)-1] != '\n' {
		fmt.Fprintln(w)
	}
}
