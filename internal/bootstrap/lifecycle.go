package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/api"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/scheduler"
)

const signalChannelBufferSize = 1

// RunUntilInterrupt blocks until a signal, ctx cancellation, or a server error,
// then shuts everything down.
func RunUntilInterrupt(
	ctx context.Context,
	log logger.Interface,
	server *api.Server,
	sched *scheduler.Scheduler,
	cancelRuns context.CancelFunc,
	errCh <-chan error,
) error {
	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case serverErr := <-errCh:
		if serverErr != nil {
			log.Error("Server error", "error", serverErr)
			cancelRuns()
			if sched != nil {
				_ = sched.Stop()
			}
			return fmt.Errorf("server error: %w", serverErr)
		}
		return nil
	case sig := <-sigChan:
		log.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		log.Info("Context cancelled, shutting down")
	}

	return Shutdown(log, server, sched, cancelRuns)
}

// Shutdown stops the scheduler, cancels running crawls so they are marked
// failed and stay resumable, then stops the HTTP server.
func Shutdown(log logger.Interface, server *api.Server, sched *scheduler.Scheduler, cancelRuns context.CancelFunc) error {
	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Error("Failed to stop scheduler", "error", err)
		}
	}

	cancelRuns()

	//nolint:contextcheck // the parent context is already cancelled here
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error("Failed to stop server", "error", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	log.Info("Server stopped successfully")
	return nil
}
