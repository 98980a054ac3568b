package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

const (
	defaultChangeLimit = 50
	maxChangeLimit     = 500
)

// ChangeRepository appends to and reads the record change log.
type ChangeRepository struct {
	db *sqlx.DB
}

// NewChangeRepository creates a new change repository.
func NewChangeRepository(db *sqlx.DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

// InsertChangeEntry appends an entry. ID and CreatedAt are filled in when empty.
func (r *ChangeRepository) InsertChangeEntry(ctx context.Context, entry *domain.ChangeEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO change_entries (
			id, record_id, kind, field_changed, old_value, new_value,
			changes, description, crawl_session_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.RecordID,
		entry.Kind,
		entry.FieldChanged,
		entry.OldValue,
		entry.NewValue,
		entry.Changes,
		entry.Description,
		entry.CrawlSessionID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert change entry: %w", err)
	}

	return nil
}

// ListRecentChanges returns the newest change entries first.
func (r *ChangeRepository) ListRecentChanges(ctx context.Context, filter domain.ChangeFilter) ([]domain.ChangeEntry, error) {
	limit := clampLimit(filter.Limit, defaultChangeLimit, maxChangeLimit)

	query := `
		SELECT id, record_id, kind, field_changed, old_value, new_value,
		       changes, description, crawl_session_id, created_at
		FROM change_entries
		WHERE ($1 = '' OR kind = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	entries := []domain.ChangeEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, filter.Kind, limit); err != nil {
		return nil, fmt.Errorf("failed to list change entries: %w", err)
	}

	return entries, nil
}
