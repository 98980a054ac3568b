package domain

import "time"

// Change kinds written to the change log.
const (
	ChangeKindCreated = "created"
	ChangeKindUpdated = "updated"
	ChangeKindDeleted = "deleted"
)

// FieldChangedKind returns the change kind for a single monitored field, e.g. "price_changed".
func FieldChangedKind(field string) string {
	return field + "_changed"
}

// ChangeEntry is an append-only log entry describing a change to a Record.
type ChangeEntry struct {
	ID             string    `db:"id"               json:"id"`
	RecordID       string    `db:"record_id"        json:"record_id"`
	Kind           string    `db:"kind"             json:"kind"`
	FieldChanged   *string   `db:"field_changed"    json:"field_changed,omitempty"`
	OldValue       *string   `db:"old_value"        json:"old_value,omitempty"`
	NewValue       *string   `db:"new_value"        json:"new_value,omitempty"`
	Changes        JSONBMap  `db:"changes"          json:"changes,omitempty"`
	Description    string    `db:"description"      json:"description"`
	CrawlSessionID *string   `db:"crawl_session_id" json:"crawl_session_id,omitempty"`
	CreatedAt      time.Time `db:"created_at"       json:"created_at"`
}

// ChangeFilter narrows a change log listing.
type ChangeFilter struct {
	Kind  string
	Limit int
}
