package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/session"
)

// ErrAlreadyRunning is reported when a crawl is requested while another is in progress.
var ErrAlreadyRunning = errors.New("a crawl is already running")

const (
	msgStartCompleted  = "Scraping completed successfully"
	msgResumeCompleted = "Resume completed successfully"
	msgNotResumable    = "Cannot resume: session not found or not in failed state"
)

// Service is the caller-facing entry point for starting and resuming crawls.
// At most one run is active per Service.
type Service struct {
	orch     *Orchestrator
	sessions session.Store
	log      logger.Interface
	observer Observer
	trackers []session.TrackerOption
	running  atomic.Bool
}

// NewService creates a Service. observer may be nil.
func NewService(orch *Orchestrator, sessions session.Store, log logger.Interface, observer Observer, opts ...session.TrackerOption) *Service {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Service{
		orch:     orch,
		sessions: sessions,
		log:      log.WithComponent("ingest_service"),
		observer: observer,
		trackers: opts,
	}
}

// Running reports whether a crawl is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

// StartScraping discovers the page count, opens a session, and crawls every page.
// It never returns an error; the outcome is carried in the summary.
func (s *Service) StartScraping(ctx context.Context, initiator string) domain.Summary {
	if !s.running.CompareAndSwap(false, true) {
		return domain.Summary{Status: domain.SummaryError, Message: ErrAlreadyRunning.Error()}
	}
	defer s.running.Store(false)

	totalPages := s.orch.DiscoverTotalPages(ctx)

	tracker := session.NewTracker(s.sessions, s.log, s.trackers...)
	if err := tracker.Start(ctx, initiator, totalPages); err != nil {
		s.log.Error("Failed to start crawl session", "error", err)
		return domain.Summary{
			Status:     domain.SummaryFailed,
			Message:    fmt.Sprintf("Scraping failed: %v", err),
			TotalPages: totalPages,
		}
	}
	s.observer.ObserveSession(string(domain.SessionRunning))

	tally, runErr := s.runSafely(ctx, tracker, 1, totalPages)
	return s.finish(ctx, tracker, tally, runErr, msgStartCompleted)
}

// ResumeFailedCrawl continues a failed session from the page after its last checkpoint.
func (s *Service) ResumeFailedCrawl(ctx context.Context, sessionID, initiator string) domain.Summary {
	if !s.running.CompareAndSwap(false, true) {
		return domain.Summary{SessionID: sessionID, Status: domain.SummaryError, Message: ErrAlreadyRunning.Error()}
	}
	defer s.running.Store(false)

	tracker := session.NewTracker(s.sessions, s.log, s.trackers...)
	if err := tracker.Resume(ctx, sessionID); err != nil {
		if !errors.Is(err, session.ErrNotResumable) {
			s.log.Error("Failed to resume crawl session", "session_id", sessionID, "error", err)
		}
		return domain.Summary{SessionID: sessionID, Status: domain.SummaryError, Message: msgNotResumable}
	}
	s.observer.ObserveSession(string(domain.SessionRunning))

	current := tracker.Session()
	s.log.Info("Resuming crawl",
		"session_id", sessionID,
		"initiator", initiator,
		"from_page", current.ProcessedPages+1,
		"total_pages", current.TotalPages,
	)

	tally, runErr := s.runSafely(ctx, tracker, current.ProcessedPages+1, current.TotalPages)
	return s.finish(ctx, tracker, tally, runErr, msgResumeCompleted)
}

// runSafely converts a panic escaping the pipeline into a run-fatal error.
func (s *Service) runSafely(ctx context.Context, tracker *session.Tracker, from, to int) (tally domain.Tally, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crawl panicked: %v", r)
		}
	}()
	rc := s.orch.newRunContext(tracker)
	return s.orch.run(ctx, rc, from, to)
}

// finish closes the session and builds the caller summary.
func (s *Service) finish(ctx context.Context, tracker *session.Tracker, tally domain.Tally, runErr error, okMsg string) domain.Summary {
	if runErr == nil {
		if err := tracker.Complete(ctx); err != nil {
			runErr = err
		}
	}

	if runErr != nil {
		if failErr := tracker.Fail(context.WithoutCancel(ctx), runErr); failErr != nil {
			s.log.Error("Failed to mark session failed", "error", failErr)
		}
		s.observer.ObserveSession(string(domain.SessionFailed))
		current := tracker.Session()
		s.log.Error("Crawl failed", "session_id", current.ID, "error", runErr)
		return summarize(current, tally, domain.SummaryFailed, fmt.Sprintf("Scraping failed: %v", runErr))
	}

	s.observer.ObserveSession(string(domain.SessionCompleted))
	current := tracker.Session()
	s.log.Info("Crawl completed",
		"session_id", current.ID,
		"processed", tally.Processed,
		"new", tally.New,
		"updated", tally.Updated,
		"failed", tally.Failed,
	)
	return summarize(current, tally, domain.SummaryCompleted, okMsg)
}

func summarize(cs domain.CrawlSession, tally domain.Tally, status, msg string) domain.Summary {
	started := cs.StartedAt
	return domain.Summary{
		SessionID:       cs.ID,
		Status:          status,
		Message:         msg,
		TotalBooksFound: tally.Processed,
		NewBooksAdded:   tally.New,
		BooksUpdated:    tally.Updated,
		FailedOps:       tally.Failed,
		TotalPages:      cs.TotalPages,
		StartedAt:       &started,
		CompletedAt:     cs.CompletedAt,
	}
}
