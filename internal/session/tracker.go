package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
)

// Tracker owns the in-memory copy of one crawl session and writes every change
// through to the Store. A Tracker serves a single run and is not safe for
// concurrent use; the orchestrator calls it between batches only.
type Tracker struct {
	store   Store
	log     logger.Interface
	now     func() time.Time
	session *domain.CrawlSession
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a Tracker bound to store.
func NewTracker(store Store, log logger.Interface, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start creates and persists a new running session.
func (t *Tracker) Start(ctx context.Context, initiator string, totalPages int) error {
	now := t.now()
	s := &domain.CrawlSession{
		ID:         uuid.NewString(),
		Status:     domain.SessionRunning,
		TotalPages: totalPages,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	if initiator != "" {
		s.Initiator = &initiator
	}

	if err := t.store.CreateSession(ctx, s); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	t.session = s
	t.log.Info("Crawl session started",
		"session_id", s.ID,
		"total_pages", totalPages,
		"initiator", initiator,
	)
	return nil
}

// Resume loads a failed session, clears its error, and moves it back to running.
// Counters are kept so the resumed run accumulates into them.
func (t *Tracker) Resume(ctx context.Context, id string) error {
	s, err := t.store.FindSession(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return ErrNotResumable
		}
		return fmt.Errorf("find session: %w", err)
	}
	if !CanResume(s) {
		return ErrNotResumable
	}

	if transErr := ValidateTransition(s.Status, domain.SessionRunning); transErr != nil {
		return transErr
	}
	s.Status = domain.SessionRunning
	s.ErrorMessage = nil
	s.CompletedAt = nil
	s.UpdatedAt = t.now()

	if saveErr := t.store.SaveSession(ctx, s); saveErr != nil {
		return fmt.Errorf("save session: %w", saveErr)
	}

	t.session = s
	t.log.Info("Crawl session resumed",
		"session_id", s.ID,
		"from_page", s.ProcessedPages+1,
		"total_pages", s.TotalPages,
	)
	return nil
}

// Checkpoint records a finished batch: the processed-page cursor advances to
// processedPages and the batch tally is added to the session counters.
// The in-memory session only changes once the store accepts the write.
func (t *Tracker) Checkpoint(ctx context.Context, processedPages int, batch domain.Tally, lastURL string) error {
	next := *t.mustSession()
	s := &next

	s.ProcessedPages = processedPages
	s.ProcessedRecords += batch.Processed
	s.NewRecords += batch.New
	s.UpdatedRecords += batch.Updated
	s.FailedRecords += batch.Failed
	if lastURL != "" {
		s.LastProcessedURL = &lastURL
	}
	s.UpdatedAt = t.now()

	if err := t.store.SaveSession(ctx, s); err != nil {
		return fmt.Errorf("checkpoint session: %w", err)
	}
	t.session = s

	t.log.Debug("Checkpoint saved",
		"session_id", s.ID,
		"processed_pages", s.ProcessedPages,
		"new", s.NewRecords,
		"updated", s.UpdatedRecords,
		"failed", s.FailedRecords,
	)
	return nil
}

// Complete marks the session completed.
func (t *Tracker) Complete(ctx context.Context) error {
	next := *t.mustSession()
	s := &next
	if err := ValidateTransition(s.Status, domain.SessionCompleted); err != nil {
		return err
	}

	now := t.now()
	s.Status = domain.SessionCompleted
	s.ProcessedPages = s.TotalPages
	s.CompletedAt = &now
	s.UpdatedAt = now

	if err := t.store.SaveSession(ctx, s); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	t.session = s
	return nil
}

// Fail marks the session failed with cause as the error message.
func (t *Tracker) Fail(ctx context.Context, cause error) error {
	next := *t.mustSession()
	s := &next
	if err := ValidateTransition(s.Status, domain.SessionFailed); err != nil {
		return err
	}

	now := t.now()
	msg := cause.Error()
	s.Status = domain.SessionFailed
	s.ErrorMessage = &msg
	s.CompletedAt = &now
	s.UpdatedAt = now

	if err := t.store.SaveSession(ctx, s); err != nil {
		return fmt.Errorf("fail session: %w", err)
	}
	t.session = s
	return nil
}

// Active reports whether a session has been started or resumed.
func (t *Tracker) Active() bool {
	return t.session != nil
}

// Session returns a copy of the tracked session.
func (t *Tracker) Session() domain.CrawlSession {
	return *t.mustSession()
}

// NextPage is the first page not yet covered by a checkpoint.
func (t *Tracker) NextPage() int {
	return t.mustSession().ProcessedPages + 1
}

func (t *Tracker) mustSession() *domain.CrawlSession {
	if t.session == nil {
		panic("session: tracker used before Start or Resume")
	}
	return t.session
}
