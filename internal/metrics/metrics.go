// Package metrics exposes Prometheus metrics for crawl runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

// Namespace prefixes every metric name.
const Namespace = "catalog_ingestor"

// Metrics holds the crawl metrics. It satisfies both the ingest and the
// fetcher observer interfaces.
type Metrics struct {
	RecordsTotal          *prometheus.CounterVec
	FetchAttemptsTotal    *prometheus.CounterVec
	PagesTotal            *prometheus.CounterVec
	SessionsTotal         *prometheus.CounterVec
	SessionProcessedPages prometheus.Gauge
	CrawlRunning          prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates and registers the metrics. A nil registry selects a fresh one,
// which keeps repeated construction in tests free of duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_total",
			Help:      "Record URLs processed, by outcome",
		}, []string{"outcome"}),
		FetchAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_attempts_total",
			Help:      "HTTP fetch attempts, by result",
		}, []string{"result"}),
		PagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pages_total",
			Help:      "Listing pages processed, by result",
		}, []string{"result"}),
		SessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_total",
			Help:      "Crawl session status transitions",
		}, []string{"status"}),
		SessionProcessedPages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "session_processed_pages",
			Help:      "Last checkpointed page of the current session",
		}),
		CrawlRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "crawl_running",
			Help:      "1 while a crawl is in progress",
		}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRecord counts one record outcome.
func (m *Metrics) ObserveRecord(outcome domain.Outcome) {
	m.RecordsTotal.WithLabelValues(outcome.String()).Inc()
}

// ObservePage counts one listing page result.
func (m *Metrics) ObservePage(result string) {
	m.PagesTotal.WithLabelValues(result).Inc()
}

// ObserveSession counts a session status change and tracks whether a crawl is running.
func (m *Metrics) ObserveSession(status string) {
	m.SessionsTotal.WithLabelValues(status).Inc()
	if status == string(domain.SessionRunning) {
		m.CrawlRunning.Set(1)
		return
	}
	m.CrawlRunning.Set(0)
}

// ObserveProgress records the checkpointed page cursor.
func (m *Metrics) ObserveProgress(processedPages int) {
	m.SessionProcessedPages.Set(float64(processedPages))
}

// ObserveFetch counts one fetch attempt.
func (m *Metrics) ObserveFetch(result string) {
	m.FetchAttemptsTotal.WithLabelValues(result).Inc()
}
