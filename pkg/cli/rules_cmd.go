package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newRulesCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage rule definitions",
	}
	cmd.AddCommand(
		newRulesListCmd(opts),
		newRulesDefineCmd(opts),
		newRulesDropCmd(opts),
	)
	return cmd
}

func newRulesListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [RELATION]",
		Short: "List rules, optionally for one relation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/rules"
			if len(args) == 1 {
				path += "/" + args[0]
			}
			var out []map[string]interface{}
			if err := newClient(opts).do(http.MethodGet, path, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newRulesDefineCmd(opts *globalOptions) *cobra.Command {
	var (
		operation string
		columns   []string
		keyColumn string
		predicate string
	)

	cmd := &cobra.Command{
		Use:   "define RELATION",
		Short: "Define or replace the rule for (relation, operation)",
		Example: `  rulegate rules define files --operation read --columns id,title \
    --predicate '[{"kind":"eq","column":"owner","value":{"kind":"identity"}}]'

  # Read the predicate from a file
  rulegate rules define files --operation delete --predicate @files_delete.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"relation":  args[0],
				"operation": operation,
			}
			if len(columns) > 0 {
				body["columns"] = columns
			}
			if keyColumn != "" {
				body["key_column"] = keyColumn
			}
			if predicate != "" {
				p, err := argOrFile(predicate)
				if err != nil {
					return err
				}
				if !json.Valid([]byte(p)) {
					return fmt.Errorf("predicate is not valid JSON")
				}
				body["predicate"] = json.RawMessage(p)
			}
			var report map[string]interface{}
			if err := newClient(opts).do(http.MethodPost, "/v1/rules", body, &report); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "rule operation: read, create, update, delete")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "projection columns (read rules)")
	cmd.Flags().StringVar(&keyColumn, "key-column", "", "row-identity column (update/delete rules)")
	cmd.Flags().StringVar(&predicate, "predicate", "", "predicate JSON (or @file)")
	_ = cmd.MarkFlagRequired("operation")
	return cmd
}

func newRulesDropCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop RELATION",
		Short: "Drop every rule for a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).do(http.MethodDelete, "/v1/rules/"+args[0], nil, nil)
		},
	}
}

func newRecompileCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recompile",
		Short: "Regenerate every artifact from the stored definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := newClient(opts).do(http.MethodPost, "/v1/recompile", nil, nil); err != nil {
				return err
			}
			cmd.Println("recompiled")
			return nil
		},
	}
}

func newAuditCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Show recent administrative audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out []map[string]interface{}
			if err := newClient(opts).do(http.MethodGet, "/v1/audit", nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
