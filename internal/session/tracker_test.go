package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/session"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory session.Store.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]domain.CrawlSession
	saves    int
	saveErr  error
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]domain.CrawlSession)}
}

func (m *memStore) CreateSession(_ context.Context, s *domain.CrawlSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) FindSession(_ context.Context, id string) (*domain.CrawlSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memStore) SaveSession(_ context.Context, s *domain.CrawlSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.sessions[s.ID] = *s
	return nil
}

func newTracker(store session.Store) *session.Tracker {
	return session.NewTracker(store, logger.NewNoOp(), session.WithClock(func() time.Time { return fixedNow }))
}

func TestValidateTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to domain.SessionStatus
		valid    bool
	}{
		{domain.SessionRunning, domain.SessionCompleted, true},
		{domain.SessionRunning, domain.SessionFailed, true},
		{domain.SessionRunning, domain.SessionPaused, true},
		{domain.SessionFailed, domain.SessionRunning, true},
		{domain.SessionCompleted, domain.SessionRunning, false},
		{domain.SessionFailed, domain.SessionCompleted, false},
		{domain.SessionPaused, domain.SessionRunning, false},
		{"bogus", domain.SessionRunning, false},
	}

	for _, tt := range tests {
		err := session.ValidateTransition(tt.from, tt.to)
		if tt.valid {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.ErrorIs(t, err, session.ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
		}
	}

	assert.True(t, session.IsTerminal(domain.SessionCompleted))
	assert.False(t, session.IsTerminal(domain.SessionFailed))
}

func TestTracker_StartCheckpointComplete(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	tr := newTracker(store)
	ctx := t.Context()

	require.NoError(t, tr.Start(ctx, "alice", 5))
	s := tr.Session()
	assert.Equal(t, domain.SessionRunning, s.Status)
	assert.Equal(t, 5, s.TotalPages)
	require.NotNil(t, s.Initiator)
	assert.Equal(t, "alice", *s.Initiator)
	assert.Equal(t, 1, tr.NextPage())

	require.NoError(t, tr.Checkpoint(ctx, 3, domain.Tally{Processed: 60, New: 10, Updated: 2, Failed: 1}, "https://x/page-3.html"))
	require.NoError(t, tr.Checkpoint(ctx, 5, domain.Tally{Processed: 40, New: 5, Failed: 20}, ""))
	assert.Equal(t, 6, tr.NextPage())

	require.NoError(t, tr.Complete(ctx))

	stored, err := store.FindSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, stored.Status)
	assert.Equal(t, 5, stored.ProcessedPages)
	assert.Equal(t, 100, stored.ProcessedRecords)
	assert.Equal(t, 15, stored.NewRecords)
	assert.Equal(t, 2, stored.UpdatedRecords)
	assert.Equal(t, 21, stored.FailedRecords)
	require.NotNil(t, stored.LastProcessedURL)
	assert.Equal(t, "https://x/page-3.html", *stored.LastProcessedURL)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, fixedNow, *stored.CompletedAt)
}

func TestTracker_FailThenResume(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	tr := newTracker(store)
	ctx := t.Context()

	require.NoError(t, tr.Start(ctx, "", 10))
	id := tr.Session().ID
	assert.Nil(t, tr.Session().Initiator)

	require.NoError(t, tr.Checkpoint(ctx, 6, domain.Tally{New: 3}, ""))
	require.NoError(t, tr.Fail(ctx, errors.New("database went away")))

	failed, err := store.FindSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "database went away", *failed.ErrorMessage)

	resumed := newTracker(store)
	require.NoError(t, resumed.Resume(ctx, id))
	s := resumed.Session()
	assert.Equal(t, domain.SessionRunning, s.Status)
	assert.Nil(t, s.ErrorMessage)
	assert.Nil(t, s.CompletedAt)
	assert.Equal(t, 7, resumed.NextPage())
	assert.Equal(t, 3, s.NewRecords)
}

func TestTracker_ResumeRejectsNonFailed(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	tr := newTracker(store)
	ctx := t.Context()

	require.NoError(t, tr.Start(ctx, "", 1))
	require.NoError(t, tr.Complete(ctx))

	err := newTracker(store).Resume(ctx, tr.Session().ID)
	require.ErrorIs(t, err, session.ErrNotResumable)

	err = newTracker(store).Resume(ctx, "missing")
	require.ErrorIs(t, err, session.ErrNotResumable)
}

func TestTracker_CompleteTwiceIsInvalid(t *testing.T) {
	t.Parallel()

	tr := newTracker(newMemStore())
	ctx := t.Context()

	require.NoError(t, tr.Start(ctx, "", 1))
	require.NoError(t, tr.Complete(ctx))
	assert.ErrorIs(t, tr.Complete(ctx), session.ErrInvalidTransition)
	assert.ErrorIs(t, tr.Fail(ctx, errors.New("late")), session.ErrInvalidTransition)
}

func TestTracker_CheckpointPropagatesStoreError(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	tr := newTracker(store)
	ctx := t.Context()

	require.NoError(t, tr.Start(ctx, "", 2))
	store.saveErr = errors.New("disk full")
	assert.Error(t, tr.Checkpoint(ctx, 1, domain.Tally{New: 4}, ""))

	// The rejected checkpoint leaves the cursor where it was.
	assert.Equal(t, 1, tr.NextPage())
	assert.Zero(t, tr.Session().NewRecords)
}
