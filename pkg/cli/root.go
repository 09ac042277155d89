// Package cli implements the rulegate command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "rulegate",
		Short:         "Authorization rule compiler CLI",
		Long:          "Command-line interface for the rulegate authorization rule compiler API.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Precedence: flag > environment > default.
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("RULEGATE_HOST"); v != "" {
					opts.host = v
				}
			}
			if !cmd.Flags().Changed("token") {
				if v := os.Getenv("RULEGATE_TOKEN"); v != "" {
					opts.token = v
				}
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.host, "host", "http://localhost:8080", "server base URL")
	pf.StringVar(&opts.token, "token", "", "bearer token")

	rootCmd.AddCommand(
		newAuthCmd(),
		newClaimsCmd(opts),
		newRulesCmd(opts),
		newRecompileCmd(opts),
		newAuditCmd(opts),
		newMigrateCmd(),
	)
	return rootCmd
}

type globalOptions struct {
	host  string
	token string
}
