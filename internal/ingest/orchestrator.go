// Package ingest drives a crawl: it walks listing pages in concurrent batches,
// processes each record, and checkpoints session progress after every batch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/change"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/retry"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/session"
)

// Dependencies are the collaborators an Orchestrator calls.
type Dependencies struct {
	Fetcher   PageFetcher
	Extractor RecordExtractor
	Listings  ListingParser
	Records   RecordStore
	Observer  Observer
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSleep replaces the politeness delay wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// WithChangeDetector replaces the field-level comparison.
func WithChangeDetector(detect func(stored, candidate *domain.Record) change.Diff) Option {
	return func(o *Orchestrator) { o.detect = detect }
}

// Orchestrator runs the page and record pipeline. It keeps no per-run state;
// everything a run needs travels in a runContext.
type Orchestrator struct {
	cfg       Config
	fetcher   PageFetcher
	extractor RecordExtractor
	listings  ListingParser
	records   RecordStore
	observer  Observer
	log       logger.Interface
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	detect    func(stored, candidate *domain.Record) change.Diff
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg Config, deps Dependencies, log logger.Interface, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		listings:  deps.Listings,
		records:   deps.Records,
		observer:  deps.Observer,
		log:       log.WithComponent("ingest"),
		now:       func() time.Time { return time.Now().UTC() },
		sleep:     retry.SleepContext,
		detect:    change.Detect,
	}
	if o.observer == nil {
		o.observer = noopObserver{}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// runContext carries the per-run handles through every pipeline step.
type runContext struct {
	sessionID string
	tracker   *session.Tracker
	log       logger.Interface
}

func (o *Orchestrator) newRunContext(tracker *session.Tracker) *runContext {
	id := tracker.Session().ID
	return &runContext{
		sessionID: id,
		tracker:   tracker,
		log:       o.log.WithSessionID(id),
	}
}

// ListingURL returns the listing page URL for page n.
func (o *Orchestrator) ListingURL(n int) string {
	return strings.TrimRight(o.cfg.BaseURL, "/") + fmt.Sprintf(o.cfg.ListingPathPattern, n)
}

// DiscoverTotalPages reads the page count from the source root. Any failure yields 1.
func (o *Orchestrator) DiscoverTotalPages(ctx context.Context) int {
	page, err := o.fetcher.Fetch(ctx, o.cfg.BaseURL)
	if err != nil {
		o.log.Warn("Page count discovery failed, assuming a single page", "error", err)
		return 1
	}
	total := o.listings.ExtractTotalPages(page.Body)
	if total < 1 {
		return 1
	}
	return total
}

// run processes pages from..to inclusive in batches, checkpointing after each
// batch. It returns the tally of this run only.
func (o *Orchestrator) run(ctx context.Context, rc *runContext, from, to int) (domain.Tally, error) {
	var total domain.Tally

	for start := from; start <= to; start += o.cfg.BatchSize {
		end := min(start+o.cfg.BatchSize-1, to)

		batch := o.processBatch(ctx, rc, start, end)
		if ctx.Err() != nil {
			return total, fmt.Errorf("run interrupted before checkpointing pages %d-%d: %w", start, end, ctx.Err())
		}
		total.Add(batch)

		if err := rc.tracker.Checkpoint(ctx, end, batch, o.ListingURL(end)); err != nil {
			return total, err
		}
		o.observer.ObserveProgress(end)
		rc.log.Info("Batch complete",
			"pages", fmt.Sprintf("%d-%d", start, end),
			"total_pages", to,
			"new", batch.New,
			"updated", batch.Updated,
			"failed", batch.Failed,
		)

		if end < to && o.cfg.BatchDelay > 0 {
			if err := o.sleep(ctx, o.cfg.BatchDelay); err != nil {
				return total, fmt.Errorf("batch delay: %w", err)
			}
		}
	}

	return total, nil
}

// processBatch runs pages start..end concurrently and sums their tallies.
// A page that panics is charged the page failure penalty; its siblings are unaffected.
func (o *Orchestrator) processBatch(ctx context.Context, rc *runContext, start, end int) domain.Tally {
	results := make([]domain.Tally, end-start+1)

	var g errgroup.Group
	for page := start; page <= end; page++ {
		idx := page - start
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					rc.log.Error("Page processing panicked", "page", page, "panic", fmt.Sprint(r))
					o.observer.ObservePage(PageFailed)
					results[idx] = domain.Tally{Failed: o.cfg.PageFailurePenalty}
				}
			}()
			results[idx] = o.processPage(ctx, rc, page)
			return nil
		})
	}
	_ = g.Wait()

	var batch domain.Tally
	for _, t := range results {
		batch.Add(t)
	}
	return batch
}

// processPage reads one listing page and processes its records sequentially.
func (o *Orchestrator) processPage(ctx context.Context, rc *runContext, page int) domain.Tally {
	var tally domain.Tally
	listingURL := o.ListingURL(page)
	log := rc.log.With("page", page)

	listing, err := o.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		log.Error("Failed to fetch listing page", "url", listingURL, "error", err)
		o.observer.ObservePage(PageFailed)
		tally.Failed = o.cfg.PageFailurePenalty
		return tally
	}

	urls, err := o.listings.ExtractRecordURLs(listing.Body, listing.FinalURL)
	if err != nil {
		log.Error("Failed to parse listing page", "url", listingURL, "error", err)
		o.observer.ObservePage(PageFailed)
		tally.Failed = o.cfg.PageFailurePenalty
		return tally
	}

	if len(urls) == 0 {
		log.Warn("No record links found on listing page", "url", listingURL)
		o.observer.ObservePage(PageEmpty)
		return tally
	}

	for i, recordURL := range urls {
		if i > 0 && o.cfg.RecordDelay > 0 {
			if sleepErr := o.sleep(ctx, o.cfg.RecordDelay); sleepErr != nil {
				log.Warn("Page interrupted", "url", listingURL, "attempted", i, "records", len(urls), "error", sleepErr)
				o.observer.ObservePage(PageFailed)
				return tally
			}
		}
		outcome := o.processRecord(ctx, rc, recordURL)
		o.observer.ObserveRecord(outcome)
		tally.Record(outcome)
	}

	o.observer.ObservePage(PageOK)
	log.Debug("Page processed", "records", len(urls), "new", tally.New, "updated", tally.Updated, "failed", tally.Failed)
	return tally
}

// processRecord fetches, extracts, and reconciles one record with storage.
func (o *Orchestrator) processRecord(ctx context.Context, rc *runContext, recordURL string) domain.Outcome {
	log := rc.log.WithURL(recordURL)

	page, err := o.fetcher.Fetch(ctx, recordURL)
	if err != nil {
		log.Warn("Failed to fetch record page", "error", err)
		return domain.OutcomeFailed
	}

	candidate, err := o.extractor.ExtractRecord(page.Body, page.FinalURL)
	if err != nil {
		log.Warn("Failed to extract record", "error", err)
		return domain.OutcomeFailed
	}
	candidate.ContentHash = change.Fingerprint(candidate)

	outcome, err := o.reconcile(ctx, rc, candidate)
	if err != nil {
		log.Warn("Failed to persist record", "remote_id", candidate.RemoteID, "error", err)
		return domain.OutcomeFailed
	}
	return outcome
}

// reconcile decides between new, unchanged, and updated, and writes the result.
func (o *Orchestrator) reconcile(ctx context.Context, rc *runContext, candidate *domain.Record) (domain.Outcome, error) {
	now := o.now()

	stored, err := o.findExisting(ctx, candidate)
	if err != nil {
		return domain.OutcomeFailed, err
	}

	if stored == nil {
		candidate.FirstSeenAt = now
		candidate.LastCrawledAt = now
		if insertErr := o.records.InsertRecord(ctx, candidate); insertErr != nil {
			return domain.OutcomeFailed, insertErr
		}
		return domain.OutcomeNew, nil
	}

	if stored.ContentHash == candidate.ContentHash {
		stored.LastCrawledAt = now
		if saveErr := o.records.SaveRecord(ctx, stored); saveErr != nil {
			return domain.OutcomeFailed, saveErr
		}
		return domain.OutcomeUnchanged, nil
	}

	diff := o.detect(stored, candidate)
	stored.ContentHash = candidate.ContentHash
	stored.LastCrawledAt = now

	if diff.Empty() {
		if saveErr := o.records.SaveRecord(ctx, stored); saveErr != nil {
			return domain.OutcomeFailed, saveErr
		}
		return domain.OutcomeUnchanged, nil
	}

	change.Apply(stored, candidate, diff)
	stored.RawSnapshot = candidate.RawSnapshot
	if saveErr := o.records.SaveRecord(ctx, stored); saveErr != nil {
		return domain.OutcomeFailed, saveErr
	}

	rc.log.Info("Record changed", "remote_id", stored.RemoteID, "fields", diff.Fields())

	if logErr := o.writeChangeLog(ctx, rc, stored, diff); logErr != nil {
		return domain.OutcomeFailed, logErr
	}
	return domain.OutcomeUpdated, nil
}

// findExisting looks a candidate up by remote ID, then by source URL.
// It returns nil without error when neither matches.
func (o *Orchestrator) findExisting(ctx context.Context, candidate *domain.Record) (*domain.Record, error) {
	if candidate.RemoteID != "" {
		rec, err := o.records.FindRecordByRemoteID(ctx, candidate.RemoteID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, fmt.Errorf("find by remote id: %w", err)
		}
	}

	if candidate.SourceURL != "" {
		rec, err := o.records.FindRecordBySourceURL(ctx, candidate.SourceURL)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, fmt.Errorf("find by source url: %w", err)
		}
	}

	return nil, nil
}

// writeChangeLog appends one aggregate entry plus one entry per important field.
func (o *Orchestrator) writeChangeLog(ctx context.Context, rc *runContext, rec *domain.Record, diff change.Diff) error {
	sessionID := rc.sessionID
	now := o.now()

	aggregate := &domain.ChangeEntry{
		RecordID:       rec.ID,
		Kind:           domain.ChangeKindUpdated,
		Changes:        diff.JSONB(),
		Description:    fmt.Sprintf("Updated %d field(s) during crawl", len(diff)),
		CrawlSessionID: &sessionID,
		CreatedAt:      now,
	}
	if err := o.records.InsertChangeEntry(ctx, aggregate); err != nil {
		return fmt.Errorf("insert change entry: %w", err)
	}

	for _, field := range diff.Fields() {
		if !change.ImportantFields[field] {
			continue
		}
		fc := diff[field]
		name := field
		entry := &domain.ChangeEntry{
			RecordID:     rec.ID,
			Kind:         domain.FieldChangedKind(field),
			FieldChanged: &name,
			OldValue:     optionalValue(fc.Old),
			NewValue:     optionalValue(fc.New),
			Description: fmt.Sprintf("%s changed from %s to %s",
				change.HumanizeField(field), displayValue(fc.Old), displayValue(fc.New)),
			CrawlSessionID: &sessionID,
			CreatedAt:      now,
		}
		if err := o.records.InsertChangeEntry(ctx, entry); err != nil {
			return fmt.Errorf("insert %s change entry: %w", field, err)
		}
	}

	return nil
}

func optionalValue(v any) *string {
	if v == nil {
		return nil
	}
	s := change.FormatValue(v)
	return &s
}

func displayValue(v any) string {
	if v == nil {
		return "none"
	}
	return change.FormatValue(v)
}
