// Package common holds helpers shared by the CLI commands.
package common

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// RenderSummary prints a crawl summary as a two-column table.
func RenderSummary(w io.Writer, sum domain.Summary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Session", sum.SessionID},
		{"Status", sum.Status},
		{"Message", sum.Message},
		{"Records processed", sum.TotalBooksFound},
		{"New", sum.NewBooksAdded},
		{"Updated", sum.BooksUpdated},
		{"Failed", sum.FailedOps},
		{"Total pages", sum.TotalPages},
		{"Started", formatTime(sum.StartedAt)},
		{"Completed", formatTime(sum.CompletedAt)},
	})
	t.Render()
}

// RenderSessions prints crawl sessions, newest first as given.
func RenderSessions(w io.Writer, sessions []domain.CrawlSession) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Session", "Status", "Initiator", "Pages", "Processed", "New", "Updated", "Failed", "Started", "Error"})
	for _, s := range sessions {
		t.AppendRow(table.Row{
			s.ID,
			s.Status,
			deref(s.Initiator),
			s.TotalPages,
			s.ProcessedPages,
			s.NewRecords,
			s.UpdatedRecords,
			s.FailedRecords,
			s.StartedAt.Format(timeLayout),
			deref(s.ErrorMessage),
		})
	}
	t.Render()
}

// RenderChanges prints change log entries.
func RenderChanges(w io.Writer, entries []domain.ChangeEntry) {
	t := newTable(w)
	t.AppendHeader(table.Row{"When", "Kind", "Record", "Description"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.CreatedAt.Format(timeLayout),
			e.Kind,
			e.RecordID,
			e.Description,
		})
	}
	t.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
