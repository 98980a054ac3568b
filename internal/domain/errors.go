package domain

import "errors"

var (
	// ErrRecordNotFound is returned when no stored record matches a lookup.
	ErrRecordNotFound = errors.New("record not found")
	// ErrSessionNotFound is returned when a crawl session does not exist.
	ErrSessionNotFound = errors.New("crawl session not found")
)
