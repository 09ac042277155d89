package cli

import (
	"github.com/spf13/cobra"

	_ "github.com/mattn/go-sqlite3"

	"rulegate/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run pending registry migrations against a local database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeDB, err := db.OpenSQLite(dbPath, "write", 0)
			if err != nil {
				return err
			}
			defer writeDB.Close() //nolint:errcheck

			if err := db.RunMigrations(writeDB); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "rulegate.sqlite", "path to the SQLite database file")
	return cmd
}
