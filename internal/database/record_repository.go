package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

const recordColumns = `
	id, remote_id, source_url, title, description, category,
	price, price_including_tax, price_excluding_tax, in_stock,
	rating, reviews_count, cover_image_url, content_hash, raw_snapshot,
	first_seen_at, last_crawled_at, updated_at`

// RecordRepository handles database operations for catalog records.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// FindRecordByRemoteID returns the record with the given remote identifier.
func (r *RecordRepository) FindRecordByRemoteID(ctx context.Context, remoteID string) (*domain.Record, error) {
	return r.findOne(ctx, `SELECT `+recordColumns+` FROM records WHERE remote_id = $1 ORDER BY first_seen_at LIMIT 1`, remoteID)
}

// FindRecordBySourceURL returns the record crawled from sourceURL.
func (r *RecordRepository) FindRecordBySourceURL(ctx context.Context, sourceURL string) (*domain.Record, error) {
	return r.findOne(ctx, `SELECT `+recordColumns+` FROM records WHERE source_url = $1 ORDER BY first_seen_at LIMIT 1`, sourceURL)
}

func (r *RecordRepository) findOne(ctx context.Context, query string, arg any) (*domain.Record, error) {
	var rec domain.Record
	if err := r.db.GetContext(ctx, &rec, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &rec, nil
}

// InsertRecord stores a new record. ID and timestamps are filled in when empty.
func (r *RecordRepository) InsertRecord(ctx context.Context, rec *domain.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.FirstSeenAt.IsZero() {
		rec.FirstSeenAt = now
	}
	if rec.LastCrawledAt.IsZero() {
		rec.LastCrawledAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.RemoteID,
		rec.SourceURL,
		rec.Title,
		rec.Description,
		rec.Category,
		rec.Price,
		rec.PriceIncludingTax,
		rec.PriceExcludingTax,
		rec.InStock,
		rec.Rating,
		rec.ReviewsCount,
		rec.CoverImageURL,
		rec.ContentHash,
		rec.RawSnapshot,
		rec.FirstSeenAt,
		rec.LastCrawledAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// SaveRecord updates every mutable column of an existing record.
func (r *RecordRepository) SaveRecord(ctx context.Context, rec *domain.Record) error {
	rec.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE records
		SET title = $1,
		    description = $2,
		    category = $3,
		    price = $4,
		    price_including_tax = $5,
		    price_excluding_tax = $6,
		    in_stock = $7,
		    rating = $8,
		    reviews_count = $9,
		    cover_image_url = $10,
		    content_hash = $11,
		    raw_snapshot = $12,
		    last_crawled_at = $13,
		    updated_at = $14
		WHERE id = $15
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.Title,
		rec.Description,
		rec.Category,
		rec.Price,
		rec.PriceIncludingTax,
		rec.PriceExcludingTax,
		rec.InStock,
		rec.Rating,
		rec.ReviewsCount,
		rec.CoverImageURL,
		rec.ContentHash,
		rec.RawSnapshot,
		rec.LastCrawledAt,
		rec.UpdatedAt,
		rec.ID,
	)
	if reqErr := execRequireRows(result, err, domain.ErrRecordNotFound); reqErr != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.ID, reqErr)
	}

	return nil
}
