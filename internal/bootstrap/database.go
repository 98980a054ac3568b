package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/config"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/database"
)

// DatabaseComponents holds the connection and the store built on it.
type DatabaseComponents struct {
	DB    *sqlx.DB
	Store *database.Store
}

// Close closes the connection.
func (d *DatabaseComponents) Close() {
	_ = d.DB.Close()
}

// SetupDatabase optionally applies pending migrations, then connects to PostgreSQL.
func SetupDatabase(cfg *config.Config, migrate bool) (*DatabaseComponents, error) {
	if migrate {
		if err := database.Migrate(cfg.Database.URL()); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DatabaseComponents{DB: db, Store: database.NewStore(db)}, nil
}
