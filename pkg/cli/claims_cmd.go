package cli

import (
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newClaimsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Manage claim definitions",
	}
	cmd.AddCommand(
		newClaimsListCmd(opts),
		newClaimsDefineCmd(opts),
		newClaimsDropCmd(opts),
	)
	return cmd
}

func newClaimsListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out []map[string]interface{}
			if err := newClient(opts).do(http.MethodGet, "/v1/claims", nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newClaimsDefineCmd(opts *globalOptions) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "define NAME",
		Short: "Define or replace a claim",
		Example: `  rulegate claims define orgs \
    --query "SELECT user_id AS subject, org_id AS value, role FROM org_members"

  # Read the query from a file
  rulegate claims define orgs --query @orgs.sql`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := argOrFile(query)
			if err != nil {
				return err
			}
			body := map[string]string{"name": args[0], "query": q}
			var report map[string]interface{}
			if err := newClient(opts).do(http.MethodPost, "/v1/claims", body, &report); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "claim query (or @file)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newClaimsDropCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop NAME",
		Short: "Drop a claim and its derived relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).do(http.MethodDelete, "/v1/claims/"+args[0], nil, nil)
		},
	}
}

// argOrFile returns the value itself, or the contents of the file it names
// when prefixed with "@".
func argOrFile(v string) (string, error) {
	name, ok := strings.CutPrefix(v, "@")
	if !ok {
		return v, nil
	}
	data, err := os.ReadFile(name) //nolint:gosec // path is caller-controlled
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
