// Package domain holds the entities persisted and exchanged by the ingestion pipeline.
package domain

import "time"

// Record is one catalog entry (a book on the default source).
// A Record is addressed by RemoteID, falling back to SourceURL.
type Record struct {
	ID                string    `db:"id"                  json:"id"`
	RemoteID          string    `db:"remote_id"           json:"remote_id"`
	SourceURL         string    `db:"source_url"          json:"source_url"`
	Title             string    `db:"title"               json:"title"`
	Description       string    `db:"description"         json:"description"`
	Category          string    `db:"category"            json:"category"`
	Price             float64   `db:"price"               json:"price"`
	PriceIncludingTax *float64  `db:"price_including_tax" json:"price_including_tax,omitempty"`
	PriceExcludingTax *float64  `db:"price_excluding_tax" json:"price_excluding_tax,omitempty"`
	InStock           bool      `db:"in_stock"            json:"in_stock"`
	Rating            float64   `db:"rating"              json:"rating"`
	ReviewsCount      int       `db:"reviews_count"       json:"reviews_count"`
	CoverImageURL     *string   `db:"cover_image_url"     json:"cover_image_url,omitempty"`
	ContentHash       string    `db:"content_hash"        json:"content_hash"`
	RawSnapshot       JSONBMap  `db:"raw_snapshot"        json:"raw_snapshot,omitempty"`
	FirstSeenAt       time.Time `db:"first_seen_at"       json:"first_seen_at"`
	LastCrawledAt     time.Time `db:"last_crawled_at"     json:"last_crawled_at"`
	UpdatedAt         time.Time `db:"updated_at"          json:"updated_at"`
}

// Snapshot returns the extracted fields as a JSONB document.
func (r *Record) Snapshot() JSONBMap {
	snap := JSONBMap{
		"remote_id":     r.RemoteID,
		"source_url":    r.SourceURL,
		"title":         r.Title,
		"description":   r.Description,
		"category":      r.Category,
		"price":         r.Price,
		"in_stock":      r.InStock,
		"rating":        r.Rating,
		"reviews_count": r.ReviewsCount,
	}
	if r.PriceIncludingTax != nil {
		snap["price_including_tax"] = *r.PriceIncludingTax
	}
	if r.PriceExcludingTax != nil {
		snap["price_excluding_tax"] = *r.PriceExcludingTax
	}
	if r.CoverImageURL != nil {
		snap["cover_image_url"] = *r.CoverImageURL
	}
	return snap
}
