// Package cmd provides common initialization for the command-line
// binaries: persistence, event bus, and dispatcher registry wiring.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hookline/hookline/pkg/persistence"
	"github.com/hookline/hookline/pkg/persistence/file"
	"github.com/hookline/hookline/pkg/persistence/mongodb"
	"github.com/hookline/hookline/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence adapter from the database URL
// scheme: file://<dir>, postgres://..., or mongodb://....
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "file://"):
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case strings.HasPrefix(databaseURL, "mongodb://"), strings.HasPrefix(databaseURL, "mongodb+srv://"):
		return mongodb.NewPersistence(ctx, logger, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database URL %q", databaseURL)
	}
}
