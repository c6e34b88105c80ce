package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tapestry-ai/tapestry/pkg/persistence"
	"github.com/tapestry-ai/tapestry/pkg/persistence/file"
	"github.com/tapestry-ai/tapestry/pkg/persistence/postgresql"
)

// NewPersistence builds the store selected by the database URL scheme.
// postgres:// URLs get the PostgreSQL store; anything else is treated as a
// directory path for the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgresql.NewStore(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return store
	default:
		store, err := file.NewStore(strings.TrimPrefix(databaseURL, "file://"))
		if err != nil {
			panic(err)
		}

		return store
	}
}
