// Package postgresql provides the PostgreSQL-backed implementation of the
// persistence layer.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/tapestry-ai/tapestry/pkg/persistence/sqlbase"
)

// Store implements persistence.Persistence on PostgreSQL. Cascading deletes
// are delegated to foreign keys (workflow -> runs -> node runs).
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens the database and applies pending schema migrations.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger.With("module", "postgresql"),
	}

	manager := sqlbase.NewMigrationManager(store.logger, db, migrations)
	if err := manager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database pool.
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}
