package session

import (
	"context"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

// Store persists crawl sessions. FindSession returns domain.ErrSessionNotFound
// when the ID is unknown.
type Store interface {
	CreateSession(ctx context.Context, s *domain.CrawlSession) error
	FindSession(ctx context.Context, id string) (*domain.CrawlSession, error)
	SaveSession(ctx context.Context, s *domain.CrawlSession) error
}
