// Package httpd implements the httpd command: the admin API plus the scheduler.
package httpd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/bootstrap"
)

// Command starts the HTTP server.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Start the admin API and the crawl scheduler",
		Long: `Serve the admin API (start, resume and inspect crawls), /health and /metrics.
When scheduler.enabled is set, a crawl also runs every scheduler.interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.StartHTTPD(cmd.Context(), viper.GetViper())
		},
	}
}
