// Package cli implements the trail command line.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Execute runs the trail command tree with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the trail command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trail",
		Short: "Send templated HTTP requests from the command line",
		Long: `trail - templated HTTP requests from the command line

Route paths may contain ":name" placeholders filled with --param. Requests
go through the same interceptor chain and in-flight coalescing as the
httpclient package, so the printed fingerprint is the key a running client
would use.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("base-url", os.Getenv("TRAIL_BASE_URL"), "Root URL prepended to route paths (env TRAIL_BASE_URL)")
	pf.StringArrayP("param", "p", nil, "Route parameter (repeatable, e.g., -p id=42)")
	pf.StringArrayP("query", "q", nil, "Query parameter (repeatable, e.g., -q page=2)")
	pf.StringArrayP("header", "H", nil, "Extra header (repeatable, e.g., -H 'X-Custom: value')")
	pf.StringP("data", "d", "", "JSON body, or @file to read it from a file")
	pf.StringArrayP("form", "F", nil, "Multipart field (repeatable, e.g., -F name=value or -F file=@path)")
	pf.String("correlation-header", "", "Header set to a random UUID on every request")
	pf.Duration("timeout", 30*time.Second, "Request timeout")
	pf.Bool("debug", false, "Log drafts and responses to stderr")

	root.AddCommand(newVersionCmd(), newRequestCmd(), newFingerprintCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trail %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
