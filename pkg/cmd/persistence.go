// Package cmd provides common initialization for the fluxa binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fluxa-crm/fluxa/pkg/persistence"
	"github.com/fluxa-crm/fluxa/pkg/persistence/file"
	"github.com/fluxa-crm/fluxa/pkg/persistence/postgresql"
)

// NewPersistence builds the persistence layer from the database URL scheme.
// postgres:// URLs get the PostgreSQL backend with migrations applied;
// anything else is treated as a file path for local development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize PostgreSQL persistence", "error", err)
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}
