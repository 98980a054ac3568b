package bootstrap

import (
	"context"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/api"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/scheduler"
)

// SetupHTTPServer builds the admin API. Crawls started over HTTP run under runCtx.
func SetupHTTPServer(runCtx context.Context, deps *CommandDeps, db *DatabaseComponents, services *ServiceComponents) *api.Server {
	return api.NewServer(deps.Config.Server, api.Dependencies{
		Crawls:     services.Ingest,
		Sessions:   db.Store,
		Changes:    db.Store,
		RunContext: runCtx,
	}, deps.Logger,
		api.WithHealthCheck("database", api.DatabaseHealthChecker(db.Store.Ping)),
		api.WithMetricsHandler(services.Metrics.Handler()),
	)
}

// SetupScheduler returns nil when the scheduler is disabled.
func SetupScheduler(deps *CommandDeps, services *ServiceComponents) (*scheduler.Scheduler, error) {
	if !deps.Config.Scheduler.Enabled {
		deps.Logger.Info("Scheduler disabled")
		return nil, nil
	}
	return scheduler.New(deps.Config.Scheduler, services.Ingest, deps.Logger)
}
