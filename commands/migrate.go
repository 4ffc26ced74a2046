package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ovpnscale/internal/db"
	"ovpnscale/internal/logs"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, d, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(d)
		if err := db.Migrate(d); err != nil {
			return fmt.Errorf("db migrate failed: %w", err)
		}
		logs.Component("cli").WithField("driver", cfg.Database.Driver).Info("schema migrated")
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}
