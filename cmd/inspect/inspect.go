// Package inspect implements the read-only sessions and changes commands.
package inspect

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/cmd/common"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

const (
	defaultSessionLimit = 20
	defaultChangeLimit  = 50
)

// SessionsCommand lists recent crawl sessions.
func SessionsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent crawl sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := bootstrap.NewCommandDeps(viper.GetViper())
			if err != nil {
				return err
			}
			db, err := bootstrap.SetupDatabase(deps.Config, false)
			if err != nil {
				return err
			}
			defer db.Close()

			sessions, err := db.Store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No crawl sessions yet")
				return nil
			}
			common.RenderSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultSessionLimit, "maximum number of sessions to show")
	return cmd
}

// ChangesCommand lists recent change log entries.
func ChangesCommand() *cobra.Command {
	var (
		limit int
		kind  string
	)

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "List recent record changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := bootstrap.NewCommandDeps(viper.GetViper())
			if err != nil {
				return err
			}
			db, err := bootstrap.SetupDatabase(deps.Config, false)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.Store.ListRecentChanges(cmd.Context(), domain.ChangeFilter{Kind: kind, Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to list changes: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes recorded")
				return nil
			}
			common.RenderChanges(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultChangeLimit, "maximum number of entries to show")
	cmd.Flags().StringVar(&kind, "kind", "", `filter by kind, e.g. "updated" or "price_changed"`)
	return cmd
}
