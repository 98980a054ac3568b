package domain

import "time"

// Outcome is the result of processing one record URL.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeNew
	OutcomeUpdated
	OutcomeUnchanged
)

// String returns the lowercase outcome name used in logs and metric labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeNew:
		return "new"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Tally aggregates record outcomes for a page, a batch, or a whole run.
type Tally struct {
	Processed int `json:"total_processed"`
	New       int `json:"new_books"`
	Updated   int `json:"updated_books"`
	Unchanged int `json:"unchanged_books"`
	Failed    int `json:"failed_books"`
}

// Record adds one outcome to the tally.
func (t *Tally) Record(o Outcome) {
	t.Processed++
	switch o {
	case OutcomeNew:
		t.New++
	case OutcomeUpdated:
		t.Updated++
	case OutcomeUnchanged:
		t.Unchanged++
	case OutcomeFailed:
		t.Failed++
	}
}

// Add merges another tally into t.
func (t *Tally) Add(other Tally) {
	t.Processed += other.Processed
	t.New += other.New
	t.Updated += other.Updated
	t.Unchanged += other.Unchanged
	t.Failed += other.Failed
}

// Summary statuses.
const (
	SummaryCompleted = "completed"
	SummaryFailed    = "failed"
	SummaryError     = "error"
)

// Summary is returned to callers that start or resume a crawl.
type Summary struct {
	SessionID       string     `json:"session_id"`
	Status          string     `json:"status"`
	Message         string     `json:"message"`
	TotalBooksFound int        `json:"total_books_found"`
	NewBooksAdded   int        `json:"new_books_added"`
	BooksUpdated    int        `json:"books_updated"`
	FailedOps       int        `json:"failed_operations"`
	TotalPages      int        `json:"total_pages"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}
