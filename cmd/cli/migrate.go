package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	cmd2 "github.com/linkgate/urlshortener/cmd"
	"github.com/linkgate/urlshortener/internal/logger"
	"github.com/linkgate/urlshortener/internal/storage"
)

// MigrateCmd represents the 'migrate' command
// This command handles database schema creation and updates
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `This command connects to the configured database (SQLite or Postgres)
and executes GORM automatic migrations to create the 'links' and 'clicks' tables
based on the Go models.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.L()

		db, err := storage.Open(cmd2.Cfg, log)
		if err != nil {
			return err
		}
		defer storage.Close(db, log)

		if err := storage.Migrate(db); err != nil {
			return err
		}

		fmt.Println("Database migrations executed successfully.")
		return nil
	},
}

func init() {
	cmd2.RootCmd.AddCommand(MigrateCmd)
}
