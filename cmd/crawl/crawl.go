// Package crawl implements the crawl and resume commands.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/cmd/common"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

const cliInitiator = "cli"

// errRunFailed makes the process exit non-zero after the summary was printed.
var errRunFailed = errors.New("crawl did not complete")

// crawler is the part of the ingest service these commands drive.
type crawler interface {
	StartScraping(ctx context.Context, initiator string) domain.Summary
	ResumeFailedCrawl(ctx context.Context, sessionID, initiator string) domain.Summary
}

// openFunc builds a crawler from the loaded configuration. The returned
// function releases its resources.
type openFunc func(v *viper.Viper) (crawler, func(), error)

func openRuntime(v *viper.Viper) (crawler, func(), error) {
	rt, err := bootstrap.NewRuntime(v)
	if err != nil {
		return nil, nil, err
	}
	return rt.Services.Ingest, rt.Close, nil
}

// Command runs one full crawl in the foreground.
func Command() *cobra.Command {
	return newCommand(openRuntime)
}

// ResumeCommand continues a failed session.
func ResumeCommand() *cobra.Command {
	return newResumeCommand(openRuntime)
}

func newCommand(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl of the whole catalog",
		Long: `Discover the number of listing pages, crawl all of them, and print a summary.
Interrupting the crawl marks the session failed so it can be resumed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, open, func(ctx context.Context, c crawler) domain.Summary {
				return c.StartScraping(ctx, cliInitiator)
			})
		},
	}
}

func newResumeCommand(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Resume a failed crawl session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, open, func(ctx context.Context, c crawler) domain.Summary {
				return c.ResumeFailedCrawl(ctx, args[0], cliInitiator)
			})
		},
	}
}

func run(cmd *cobra.Command, open openFunc, do func(context.Context, crawler) domain.Summary) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, closeFn, err := open(viper.GetViper())
	if err != nil {
		return err
	}
	defer closeFn()

	sum := do(ctx, c)
	common.RenderSummary(cmd.OutOrStdout(), sum)
	if sum.Status != domain.SummaryCompleted {
		return fmt.Errorf("%w: %s", errRunFailed, sum.Message)
	}
	return nil
}
