package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint VERB PATH",
		Short: "Print the compiled URL and coalescing key of a request without sending it",
		Long: `Fingerprint builds the request exactly as "request" would, runs the
interceptor chain, and prints the compiled URL followed by the key under
which identical in-flight requests are coalesced.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			client := newClient(cmd, newLogger(cmd.ErrOrStderr(), debug), nil)

			rb, err := buildRequest(cmd, client, args)
			if err != nil {
				return err
			}

			key, err := rb.Fingerprint(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, rb.CompileURL())
			fmt.Fprintln(out, key)
			return nil
		},
	}
}
