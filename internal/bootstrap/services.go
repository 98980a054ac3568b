package bootstrap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/extractor"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/fetcher"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/ingest"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/metrics"
)

// ServiceComponents holds the crawl pipeline.
type ServiceComponents struct {
	Metrics      *metrics.Metrics
	Orchestrator *ingest.Orchestrator
	Ingest       *ingest.Service
}

// SetupServices builds the pipeline on top of the store.
func SetupServices(deps *CommandDeps, db *DatabaseComponents) *ServiceComponents {
	cfg := deps.Config

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	fetch := fetcher.New(cfg.Fetcher, deps.Logger.WithComponent("fetcher"), fetcher.WithObserver(m))
	extract := extractor.New(cfg.Extractor())

	orch := ingest.NewOrchestrator(cfg.Ingest(), ingest.Dependencies{
		Fetcher:   fetch,
		Extractor: extract,
		Listings:  extract,
		Records:   db.Store,
		Observer:  m,
	}, deps.Logger)

	return &ServiceComponents{
		Metrics:      m,
		Orchestrator: orch,
		Ingest:       ingest.NewService(orch, db.Store, deps.Logger, m),
	}
}
