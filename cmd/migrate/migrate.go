// Package migrate implements the migrate command.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/database"
)

const (
	directionUp   = "up"
	directionDown = "down"
)

// Command applies or reverts the embedded migrations.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply (default) or revert the database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{directionUp, directionDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := directionUp
			if len(args) == 1 {
				direction = args[0]
			}

			deps, err := bootstrap.NewCommandDeps(viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = deps.Logger.Sync() }()

			dbURL := deps.Config.Database.URL()
			if direction == directionDown {
				err = database.MigrateDown(dbURL)
			} else {
				err = database.Migrate(dbURL)
			}
			if err != nil {
				return err
			}

			deps.Logger.Info("Migration finished", "direction", direction, "database", deps.Config.Database.DBName)
			fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
			return nil
		},
	}
}
