package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 100
)

const sessionColumns = `
	id, status, initiator, total_pages, processed_pages, processed_records,
	new_records, updated_records, failed_records, last_processed_url,
	error_message, started_at, completed_at, updated_at`

// SessionRepository handles database operations for crawl sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession inserts a new session.
func (r *SessionRepository) CreateSession(ctx context.Context, s *domain.CrawlSession) error {
	query := `
		INSERT INTO crawl_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Status,
		s.Initiator,
		s.TotalPages,
		s.ProcessedPages,
		s.ProcessedRecords,
		s.NewRecords,
		s.UpdatedRecords,
		s.FailedRecords,
		s.LastProcessedURL,
		s.ErrorMessage,
		s.StartedAt,
		s.CompletedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create crawl session: %w", err)
	}

	return nil
}

// FindSession retrieves a session by ID.
func (r *SessionRepository) FindSession(ctx context.Context, id string) (*domain.CrawlSession, error) {
	var s domain.CrawlSession
	query := `SELECT ` + sessionColumns + ` FROM crawl_sessions WHERE id = $1`

	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get crawl session: %w", err)
	}

	return &s, nil
}

// SaveSession writes the session's status and progress.
func (r *SessionRepository) SaveSession(ctx context.Context, s *domain.CrawlSession) error {
	query := `
		UPDATE crawl_sessions
		SET status = $1,
		    total_pages = $2,
		    processed_pages = $3,
		    processed_records = $4,
		    new_records = $5,
		    updated_records = $6,
		    failed_records = $7,
		    last_processed_url = $8,
		    error_message = $9,
		    completed_at = $10,
		    updated_at = $11
		WHERE id = $12
	`

	result, err := r.db.ExecContext(ctx, query,
		s.Status,
		s.TotalPages,
		s.ProcessedPages,
		s.ProcessedRecords,
		s.NewRecords,
		s.UpdatedRecords,
		s.FailedRecords,
		s.LastProcessedURL,
		s.ErrorMessage,
		s.CompletedAt,
		s.UpdatedAt,
		s.ID,
	)
	if reqErr := execRequireRows(result, err, domain.ErrSessionNotFound); reqErr != nil {
		return fmt.Errorf("failed to save crawl session %s: %w", s.ID, reqErr)
	}

	return nil
}

// ListSessions returns the most recently started sessions first.
func (r *SessionRepository) ListSessions(ctx context.Context, limit int) ([]domain.CrawlSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM crawl_sessions ORDER BY started_at DESC LIMIT $1`

	sessions := []domain.CrawlSession{}
	if err := r.db.SelectContext(ctx, &sessions, query, clampLimit(limit, defaultSessionLimit, maxSessionLimit)); err != nil {
		return nil, fmt.Errorf("failed to list crawl sessions: %w", err)
	}

	return sessions, nil
}
