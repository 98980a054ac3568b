package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/change"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/fetcher"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/ingest"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/ingest/mocks"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
)

const (
	baseURL = "https://books.test"
	urlA    = "https://books.test/catalogue/book-a_1/index.html"
	urlB    = "https://books.test/catalogue/book-b_2/index.html"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	fetch     *mocks.MockPageFetcher
	extractor *fakeExtractor
	listings  *fakeListings
	records   *memRecords
	sessions  *memSessions
	observer  *countingObserver
	cfg       ingest.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	return &harness{
		fetch: mocks.NewMockPageFetcher(ctrl),
		extractor: &fakeExtractor{records: map[string]domain.Record{
			"A": {RemoteID: "book-a-1", Title: "Book A", Category: "Poetry", Price: 10, InStock: true, Rating: 3},
			"B": {RemoteID: "book-b-2", Title: "Book B", Category: "Travel", Price: 20, InStock: true, Rating: 4},
		}},
		listings: &fakeListings{links: map[string][]string{}, total: 1},
		records:  newMemRecords(),
		sessions: newMemSessions(),
		observer: newCountingObserver(),
		cfg: ingest.Config{
			BaseURL:            baseURL,
			ListingPathPattern: "/catalogue/page-%d.html",
			BatchSize:          3,
			PageFailurePenalty: 20,
		},
	}
}

func (h *harness) service(opts ...ingest.Option) *ingest.Service {
	opts = append([]ingest.Option{ingest.WithClock(func() time.Time { return fixedNow })}, opts...)
	orch := ingest.NewOrchestrator(h.cfg, ingest.Dependencies{
		Fetcher:   h.fetch,
		Extractor: h.extractor,
		Listings:  h.listings,
		Records:   h.records,
		Observer:  h.observer,
	}, logger.NewNoOp(), opts...)
	return ingest.NewService(orch, h.sessions, logger.NewNoOp(), h.observer)
}

func (h *harness) serve(url, body string) {
	h.fetch.EXPECT().Fetch(gomock.Any(), url).Return(&fetcher.Page{
		URL:        url,
		FinalURL:   url,
		StatusCode: 200,
		Body:       []byte(body),
	}, nil).AnyTimes()
}

func (h *harness) serveListing(page int, links ...string) {
	body := fmt.Sprintf("listing-%d", page)
	h.listings.links[body] = links
	h.serve(listingURL(page), body)
}

// storedCopy returns the template for key as if it had been crawled before.
func (h *harness) storedCopy(key, sourceURL string) domain.Record {
	rec := h.extractor.records[key]
	rec.SourceURL = sourceURL
	rec.ContentHash = change.Fingerprint(&rec)
	rec.FirstSeenAt = fixedNow.Add(-24 * time.Hour)
	rec.LastCrawledAt = rec.FirstSeenAt
	return rec
}

func listingURL(page int) string {
	return fmt.Sprintf("%s/catalogue/page-%d.html", baseURL, page)
}

func TestStartScraping_NewAndUnchanged(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.serve(baseURL, "root")
	h.serveListing(1, urlA, urlB)
	h.serve(urlA, "A")
	h.serve(urlB, "B")
	h.records.seed(h.storedCopy("B", urlB))

	sum := h.service().StartScraping(t.Context(), "test")

	assert.Equal(t, domain.SummaryCompleted, sum.Status)
	assert.Equal(t, "Scraping completed successfully", sum.Message)
	assert.Equal(t, 2, sum.TotalBooksFound)
	assert.Equal(t, 1, sum.NewBooksAdded)
	assert.Equal(t, 0, sum.BooksUpdated)
	assert.Equal(t, 0, sum.FailedOps)
	assert.Equal(t, 1, sum.TotalPages)
	require.NotNil(t, sum.CompletedAt)

	stored := h.sessions.get(sum.SessionID)
	assert.Equal(t, domain.SessionCompleted, stored.Status)
	assert.Equal(t, 1, stored.ProcessedPages)
	assert.Equal(t, 2, stored.ProcessedRecords)
	assert.Equal(t, 1, stored.NewRecords)
	require.NotNil(t, stored.Initiator)
	assert.Equal(t, "test", *stored.Initiator)

	assert.Equal(t, 2, h.records.count())
	assert.Empty(t, h.records.changeLog())

	inserted, err := h.records.FindRecordByRemoteID(t.Context(), "book-a-1")
	require.NoError(t, err)
	assert.Equal(t, change.Fingerprint(inserted), inserted.ContentHash)
	assert.Equal(t, fixedNow, inserted.FirstSeenAt)
	assert.Equal(t, urlA, inserted.SourceURL)

	assert.Equal(t, 1, h.observer.records[domain.OutcomeNew])
	assert.Equal(t, 1, h.observer.records[domain.OutcomeUnchanged])
	assert.Equal(t, []string{"running", "completed"}, h.observer.sessions)
}

func TestStartScraping_RepeatRunIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.serve(baseURL, "root")
	h.serveListing(1, urlA, urlB)
	h.serve(urlA, "A")
	h.serve(urlB, "B")

	var detectCalls atomic.Int32
	svc := h.service(ingest.WithChangeDetector(func(stored, candidate *domain.Record) change.Diff {
		detectCalls.Add(1)
		return change.Detect(stored, candidate)
	}))

	first := svc.StartScraping(t.Context(), "test")
	require.Equal(t, domain.SummaryCompleted, first.Status)
	assert.Equal(t, 2, first.NewBooksAdded)

	second := svc.StartScraping(t.Context(), "test")
	require.Equal(t, domain.SummaryCompleted, second.Status)
	assert.Equal(t, 2, second.TotalBooksFound)
	assert.Equal(t, 0, second.NewBooksAdded)
	assert.Equal(t, 0, second.BooksUpdated)
	assert.Equal(t, 0, second.FailedOps)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	assert.Equal(t, 2, h.records.count())
	assert.Empty(t, h.records.changeLog())
	assert.Zero(t, detectCalls.Load(), "matching fingerprints must skip field comparison")
}

func TestStartScraping_UpdatedRecordWritesChangeLog(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.serve(baseURL, "root")
	h.serveListing(1, urlB)
	h.serve(urlB, "B")

	old := h.storedCopy("B", urlB)
	old.Price = 18
	old.Title = "Book B (old edition)"
	old.ContentHash = change.Fingerprint(&old)
	h.records.seed(old)

	sum := h.service().StartScraping(t.Context(), "test")

	require.Equal(t, domain.SummaryCompleted, sum.Status)
	assert.Equal(t, 1, sum.BooksUpdated)
	assert.Equal(t, 0, sum.NewBooksAdded)

	rec, err := h.records.FindRecordByRemoteID(t.Context(), "book-b-2")
	require.NoError(t, err)
	assert.InDelta(t, 20.0, rec.Price, 0.001)
	assert.Equal(t, "Book B", rec.Title)
	assert.Equal(t, fixedNow, rec.LastCrawledAt)
	assert.Equal(t, old.FirstSeenAt, rec.FirstSeenAt)
	assert.Equal(t, change.Fingerprint(rec), rec.ContentHash)

	entries := h.records.changeLog()
	require.Len(t, entries, 2)

	aggregate := entries[0]
	assert.Equal(t, domain.ChangeKindUpdated, aggregate.Kind)
	assert.Equal(t, rec.ID, aggregate.RecordID)
	assert.Equal(t, "Updated 2 field(s) during crawl", aggregate.Description)
	assert.Contains(t, aggregate.Changes, "price")
	assert.Contains(t, aggregate.Changes, "title")
	require.NotNil(t, aggregate.CrawlSessionID)
	assert.Equal(t, sum.SessionID, *aggregate.CrawlSessionID)

	priceEntry := entries[1]
	assert.Equal(t, "price_changed", priceEntry.Kind)
	require.NotNil(t, priceEntry.FieldChanged)
	assert.Equal(t, "price", *priceEntry.FieldChanged)
	require.NotNil(t, priceEntry.OldValue)
	require.NotNil(t, priceEntry.NewValue)
	assert.Equal(t, "18", *priceEntry.OldValue)
	assert.Equal(t, "20", *priceEntry.NewValue)
	assert.Equal(t, "Price changed from 18 to 20", priceEntry.Description)
}

func TestStartScraping_FingerprintDriftWithoutFieldChange(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.serve(baseURL, "root")
	h.serveListing(1, urlA)
	h.serve(urlA, "A")

	stale := h.storedCopy("A", urlA)
	stale.ContentHash = "stale-hash"
	h.records.seed(stale)

	sum := h.service().StartScraping(t.Context(), "test")

	require.Equal(t, domain.SummaryCompleted, sum.Status)
	assert.Equal(t, 0, sum.BooksUpdated)
	assert.Equal(t, 1, sum.TotalBooksFound)
	assert.Empty(t, h.records.changeLog())

	rec, err := h.records.FindRecordByRemoteID(t.Context(), "book-a-1")
	require.NoError(t, err)
	assert.Equal(t, change.Fingerprint(rec), rec.ContentHash)
}

func TestStartScraping_RecordFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.serve(baseURL, "root")
	h.serveListing(1, urlA, urlB, "https://books.test/catalogue/garbled_3/index.html")
	h.serve(urlA, "A")
	h.fetch.EXPECT().Fetch(gomock.Any(), urlB).
		Return(nil, &fetcher.StatusError{Code: 404, URL: urlB}).AnyTimes()
	h.serve("https://books.test/catalogue/garbled_3/index.html", "<html>")

	sum := h.service().StartScraping(t.Context(), "test")

	require.Equal(t, domain.SummaryCompleted, sum.Status)
	assert.Equal(t, 3, sum.TotalBooksFound)
	assert.Equal(t, 1, sum.NewBooksAdded)
	assert.Equal(t, 2, sum.FailedOps)
	assert.Equal(t, 2, h.observer.records[domain.OutcomeFailed])
}

func TestStartScraping_PageFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{
			name: "listing fetch fails",
			setup: func(h *harness) {
				h.fetch.EXPECT().Fetch(gomock.Any(), listingURL(2)).
					Return(nil, &fetcher.StatusError{Code: 503, URL: listingURL(2)}).AnyTimes()
			},
		},
		{
			name: "listing cannot be parsed",
			setup: func(h *harness) {
				h.serve(listingURL(2), "broken-2")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.listings.total = 3
			h.serve(baseURL, "root")
			h.serveListing(1, urlA)
			tt.setup(h)
			h.serveListing(3, urlB)
			h.serve(urlA, "A")
			h.serve(urlB, "B")

			sum := h.service().StartScraping(t.Context(), "test")

			require.Equal(t, domain.SummaryCompleted, sum.Status)
			assert.Equal(t, 3, sum.TotalPages)
			assert.Equal(t, 2, sum.TotalBooksFound)
			assert.Equal(t, 2, sum.NewBooksAdded)
			assert.Equal(t, 20, sum.FailedOps)
			assert.Equal(t, 1, h.observer.pages[ingest.PageFailed])
			assert.Equal(t, 2, h.observer.pages[ingest.PageOK])

			stored := h.sessions.get(sum.SessionID)
			assert.Equal(t, 3, stored.ProcessedPages)
			assert.Equal(t, 20, stored.FailedRecords)
		})
	}
}

func TestStartScraping_EmptyListingCountsNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.serve(baseURL, "root")
	h.serveListing(1)

	sum := h.service().StartScraping(t.Context(), "test")

	require.Equal(t, domain.SummaryCompleted, sum.Status)
	assert.Zero(t, sum.TotalBooksFound)
	assert.Zero(t, sum.FailedOps)
	assert.Equal(t, 1, h.observer.pages[ingest.PageEmpty])
}

func TestStartScraping_PageCountDiscoveryFailureFallsBackToOnePage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.listings.total = 50
	h.fetch.EXPECT().Fetch(gomock.Any(), baseURL).Return(nil, errors.New("dial tcp: connection refused"))
	h.serveListing(1, urlA)
	h.serve(urlA, "A")

	sum := h.service().StartScraping(t.Context(), "test")

	require.Equal(t, domain.SummaryCompleted, sum.Status)
	assert.Equal(t, 1, sum.TotalPages)
	assert.Equal(t, 1, sum.NewBooksAdded)
}

func TestStartScraping_BatchesCheckpointInOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.listings.total = 7
	h.cfg.BatchSize = 3
	h.serve(baseURL, "root")
	for page := 1; page <= 7; page++ {
		key := fmt.Sprintf("P%d", page)
		h.extractor.records[key] = domain.Record{RemoteID: "page-record-" + key, Title: key, Price: float64(page)}
		u := fmt.Sprintf("%s/catalogue/%s/index.html", baseURL, key)
		h.serveListing(page, u)
		h.serve(u, key)
	}

	sum := h.service().StartScraping(t.Context(), "test")

	require.Equal(t, domain.SummaryCompleted, sum.Status)
	assert.Equal(t, 7, sum.NewBooksAdded)

	stored := h.sessions.get(sum.SessionID)
	assert.Equal(t, 7, stored.ProcessedPages)
	require.NotNil(t, stored.LastProcessedURL)
	assert.Equal(t, listingURL(7), *stored.LastProcessedURL)
	// three checkpoints (pages 3, 6, 7) and the completion write
	assert.Equal(t, 4, h.sessions.saveCalls)
	assert.Equal(t, []int{3, 6, 7}, h.observer.progress)
}

func TestStartScraping_RunFailureMarksSessionFailed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.serve(baseURL, "root")
	h.serveListing(1, urlA)
	h.serve(urlA, "A")
	h.sessions.failSaveAt = 1

	sum := h.service().StartScraping(t.Context(), "test")

	assert.Equal(t, domain.SummaryFailed, sum.Status)
	assert.Contains(t, sum.Message, "Scraping failed:")
	assert.Contains(t, sum.Message, "connection reset by peer")

	stored := h.sessions.get(sum.SessionID)
	assert.Equal(t, domain.SessionFailed, stored.Status)
	assert.Zero(t, stored.ProcessedPages)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "connection reset by peer")
	require.NotNil(t, stored.CompletedAt)

	// partial progress stays in place
	assert.Equal(t, 1, h.records.count())
	assert.Equal(t, []string{"running", "failed"}, h.observer.sessions)
}

func TestStartScraping_CancelledRunSkipsCheckpoint(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	h.serve(baseURL, "root")
	h.serveListing(1, urlA)
	h.fetch.EXPECT().Fetch(gomock.Any(), urlA).DoAndReturn(
		func(ctx context.Context, _ string) (*fetcher.Page, error) {
			cancel()
			return nil, ctx.Err()
		})

	sum := h.service().StartScraping(ctx, "test")

	assert.Equal(t, domain.SummaryFailed, sum.Status)
	stored := h.sessions.get(sum.SessionID)
	assert.Equal(t, domain.SessionFailed, stored.Status)
	assert.Zero(t, stored.ProcessedPages)
}

func TestStartScraping_InterruptedPageIsReportedFailed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cfg.RecordDelay = time.Second
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	h.serve(baseURL, "root")
	h.serveListing(1, urlA, urlB)
	h.serve(urlA, "A")

	interrupt := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	sum := h.service(ingest.WithSleep(interrupt)).StartScraping(ctx, "test")

	assert.Equal(t, domain.SummaryFailed, sum.Status)
	assert.Equal(t, 1, h.observer.records[domain.OutcomeNew])
	assert.Equal(t, 1, h.observer.pages[ingest.PageFailed])
	assert.Zero(t, h.observer.pages[ingest.PageOK])
	assert.Zero(t, h.sessions.get(sum.SessionID).ProcessedPages)
}

func TestResumeFailedCrawl_ContinuesAfterLastCheckpoint(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cfg.BatchSize = 2

	msg := "upstream outage"
	h.sessions.sessions["sess-1"] = domain.CrawlSession{
		ID:             "sess-1",
		Status:         domain.SessionFailed,
		TotalPages:     10,
		ProcessedPages: 6,
		NewRecords:     100,
		FailedRecords:  3,
		ErrorMessage:   &msg,
		StartedAt:      fixedNow.Add(-time.Hour),
	}

	// Pages 1-6 are not served: fetching them fails the test.
	for page := 7; page <= 10; page++ {
		key := fmt.Sprintf("R%d", page)
		h.extractor.records[key] = domain.Record{RemoteID: "resume-" + key, Title: key, Price: float64(page)}
		u := fmt.Sprintf("%s/catalogue/%s/index.html", baseURL, key)
		h.serveListing(page, u)
		h.serve(u, key)
	}

	sum := h.service().ResumeFailedCrawl(t.Context(), "sess-1", "operator")

	assert.Equal(t, "sess-1", sum.SessionID)
	assert.Equal(t, domain.SummaryCompleted, sum.Status)
	assert.Equal(t, "Resume completed successfully", sum.Message)
	assert.Equal(t, 4, sum.NewBooksAdded)

	stored := h.sessions.get("sess-1")
	assert.Equal(t, domain.SessionCompleted, stored.Status)
	assert.Equal(t, 10, stored.ProcessedPages)
	assert.Equal(t, 104, stored.NewRecords)
	assert.Equal(t, 3, stored.FailedRecords)
	assert.Nil(t, stored.ErrorMessage)
	require.NotNil(t, stored.CompletedAt)
}

func TestResumeFailedCrawl_RejectsNonResumableSessions(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.sessions.sessions["done"] = domain.CrawlSession{ID: "done", Status: domain.SessionCompleted, TotalPages: 2, ProcessedPages: 2}
	h.sessions.sessions["live"] = domain.CrawlSession{ID: "live", Status: domain.SessionRunning, TotalPages: 2}
	svc := h.service()

	for _, id := range []string{"missing", "done", "live"} {
		sum := svc.ResumeFailedCrawl(t.Context(), id, "operator")
		assert.Equal(t, domain.SummaryError, sum.Status, id)
		assert.Equal(t, "Cannot resume: session not found or not in failed state", sum.Message, id)
		assert.Equal(t, id, sum.SessionID)
	}
	assert.Equal(t, domain.SessionCompleted, h.sessions.get("done").Status)
}

func TestService_RejectsConcurrentRuns(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	h.fetch.EXPECT().Fetch(gomock.Any(), baseURL).DoAndReturn(
		func(context.Context, string) (*fetcher.Page, error) {
			close(entered)
			<-release
			return &fetcher.Page{URL: baseURL, FinalURL: baseURL, StatusCode: 200, Body: []byte("root")}, nil
		})
	h.serveListing(1)

	svc := h.service()

	var wg sync.WaitGroup
	var first domain.Summary
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = svc.StartScraping(context.Background(), "first")
	}()

	<-entered
	assert.True(t, svc.Running())

	second := svc.StartScraping(t.Context(), "second")
	assert.Equal(t, domain.SummaryError, second.Status)
	assert.Equal(t, "a crawl is already running", second.Message)

	resumed := svc.ResumeFailedCrawl(t.Context(), "any", "second")
	assert.Equal(t, domain.SummaryError, resumed.Status)

	close(release)
	wg.Wait()

	assert.Equal(t, domain.SummaryCompleted, first.Status)
	assert.False(t, svc.Running())
}
