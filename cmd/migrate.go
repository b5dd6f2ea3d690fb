package cmd

import (
	"github.com/spf13/cobra"

	"github.com/inklings/inklings/db"
	"github.com/inklings/inklings/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return db.Migrate(cfg.PostgresURL(), initLogger())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
