// Package bootstrap wires the catalog ingestor together.
//
// The bootstrap process follows these phases:
//   - Phase 1: Config & Logger - Decode configuration and create the logger
//   - Phase 2: Database - Apply migrations, connect to PostgreSQL, build the store
//   - Phase 3: Services - Metrics, fetcher, extractor, orchestrator, ingest service
//   - Phase 4: Server & Scheduler - HTTP API and the periodic trigger (httpd only)
//   - Phase 5: Run - Wait for interrupt signal or error
package bootstrap

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
)

// StartHTTPD runs the API server and, when enabled, the scheduler until ctx
// is cancelled or the process receives SIGINT/SIGTERM.
func StartHTTPD(ctx context.Context, v *viper.Viper) error {
	// Phase 1
	deps, err := NewCommandDeps(v)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() { _ = deps.Logger.Sync() }()

	// Phase 2
	db, err := SetupDatabase(deps.Config, true)
	if err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}
	defer db.Close()

	runCtx, cancelRuns := context.WithCancel(ctx)
	defer cancelRuns()

	// Phase 3
	services := SetupServices(deps, db)

	// Phase 4
	server := SetupHTTPServer(runCtx, deps, db, services)
	sched, err := SetupScheduler(deps, services)
	if err != nil {
		return err
	}

	errCh := server.StartAsync()
	if sched != nil {
		if startErr := sched.Start(runCtx); startErr != nil {
			return fmt.Errorf("failed to start scheduler: %w", startErr)
		}
	}

	// Phase 5
	return RunUntilInterrupt(ctx, deps.Logger, server, sched, cancelRuns, errCh)
}

// Runtime bundles the components one-shot commands need.
type Runtime struct {
	Deps     *CommandDeps
	DB       *DatabaseComponents
	Services *ServiceComponents
}

// NewRuntime runs phases 1-3. Callers must Close the result.
func NewRuntime(v *viper.Viper) (*Runtime, error) {
	deps, err := NewCommandDeps(v)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	db, err := SetupDatabase(deps.Config, true)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	return &Runtime{
		Deps:     deps,
		DB:       db,
		Services: SetupServices(deps, db),
	}, nil
}

// Close releases the database connection and flushes the logger.
func (r *Runtime) Close() {
	r.DB.Close()
	_ = r.Deps.Logger.Sync()
}
