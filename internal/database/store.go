package database

import "github.com/jmoiron/sqlx"

// Store bundles the repositories behind a single connection.
type Store struct {
	*RecordRepository
	*ChangeRepository
	*SessionRepository

	db *sqlx.DB
}

// NewStore creates a Store on db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		RecordRepository:  NewRecordRepository(db),
		ChangeRepository:  NewChangeRepository(db),
		SessionRepository: NewSessionRepository(db),
		db:                db,
	}
}

// Ping checks the connection.
func (s *Store) Ping() error {
	return s.db.Ping()
}
