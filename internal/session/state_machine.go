// Package session tracks the lifecycle and progress of crawl sessions.
package session

import (
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

var (
	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrNotResumable is returned when resuming a session that is not failed.
	ErrNotResumable = errors.New("session not found or not in failed state")
)

// validTransitions lists the allowed target states for each state.
var validTransitions = map[domain.SessionStatus][]domain.SessionStatus{
	domain.SessionRunning: {
		domain.SessionCompleted, // All pages processed
		domain.SessionFailed,    // Run-fatal error
		domain.SessionPaused,    // Reserved
	},
	domain.SessionFailed: {
		domain.SessionRunning, // Resume
	},
	domain.SessionPaused:    {},
	domain.SessionCompleted: {},
}

// ValidateTransition checks if a state transition is valid.
func ValidateTransition(from, to domain.SessionStatus) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("%w: unknown source state %q", ErrInvalidTransition, from)
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}

// CanResume reports whether a session may be resumed.
func CanResume(s *domain.CrawlSession) bool {
	return s != nil && s.Status == domain.SessionFailed
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(status domain.SessionStatus) bool {
	return status == domain.SessionCompleted
}
