package domain

import "time"

// SessionStatus is the lifecycle state of a crawl session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionPaused    SessionStatus = "paused"
)

// CrawlSession tracks the progress of one ingestion run.
type CrawlSession struct {
	ID               string        `db:"id"                 json:"session_id"`
	Status           SessionStatus `db:"status"             json:"status"`
	Initiator        *string       `db:"initiator"          json:"initiator,omitempty"`
	TotalPages       int           `db:"total_pages"        json:"total_pages"`
	ProcessedPages   int           `db:"processed_pages"    json:"processed_pages"`
	ProcessedRecords int           `db:"processed_records"  json:"processed_records"`
	NewRecords       int           `db:"new_records"        json:"new_records"`
	UpdatedRecords   int           `db:"updated_records"    json:"updated_records"`
	FailedRecords    int           `db:"failed_records"     json:"failed_records"`
	LastProcessedURL *string       `db:"last_processed_url" json:"last_processed_url,omitempty"`
	ErrorMessage     *string       `db:"error_message"      json:"error_message,omitempty"`
	StartedAt        time.Time     `db:"started_at"         json:"started_at"`
	CompletedAt      *time.Time    `db:"completed_at"       json:"completed_at,omitempty"`
	UpdatedAt        time.Time     `db:"updated_at"         json:"updated_at"`
}
