package ingest

import (
	"context"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/fetcher"
)

//go:generate mockgen -destination=mocks/mock_page_fetcher.go -package=mocks . PageFetcher

// PageFetcher retrieves a page and its post-redirect URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Page, error)
}

// RecordExtractor turns a detail page into a candidate record.
type RecordExtractor interface {
	ExtractRecord(body []byte, pageURL string) (*domain.Record, error)
}

// ListingParser reads listing pages.
type ListingParser interface {
	ExtractRecordURLs(body []byte, pageURL string) ([]string, error)
	ExtractTotalPages(body []byte) int
}

// RecordStore persists records and their change log. Lookups return
// domain.ErrRecordNotFound when nothing matches.
type RecordStore interface {
	FindRecordByRemoteID(ctx context.Context, remoteID string) (*domain.Record, error)
	FindRecordBySourceURL(ctx context.Context, sourceURL string) (*domain.Record, error)
	InsertRecord(ctx context.Context, rec *domain.Record) error
	SaveRecord(ctx context.Context, rec *domain.Record) error
	InsertChangeEntry(ctx context.Context, entry *domain.ChangeEntry) error
}

// Observer receives pipeline events, typically to update metrics.
type Observer interface {
	ObserveRecord(outcome domain.Outcome)
	ObservePage(result string)
	ObserveSession(status string)
	ObserveProgress(processedPages int)
}

// Page results reported to Observer.
const (
	PageOK     = "ok"
	PageEmpty  = "empty"
	PageFailed = "failed"
)

type noopObserver struct{}

func (noopObserver) ObserveRecord(domain.Outcome) {}
func (noopObserver) ObservePage(string)           {}
func (noopObserver) ObserveSession(string)        {}
func (noopObserver) ObserveProgress(int)          {}
