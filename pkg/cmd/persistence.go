// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence/memory"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence/postgres"
)

// NewPersistence builds the persistence layer from the database URL. A
// memory:// URL selects the in-memory store used in development and tests;
// anything else is treated as a PostgreSQL connection string.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	if memory.ParseScheme(databaseURL) {
		return memory.NewPersistence()
	}

	p, err := postgres.NewPersistence(ctx, logger, databaseURL)
	if err != nil {
		panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
	}

	return p
}
