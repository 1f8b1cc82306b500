// Package migration applies the embedded database schema with golang-migrate.
package migration

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers the "pgx5" scheme.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var files embed.FS

// RunUp applies all pending up migrations against dsn.
func RunUp(dsn string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	source, err := iofs.New(files, "sql")
	if err != nil {
		return fmt.Errorf("migration: open embedded source: %w", err)
	}
	migrator, err := migrate.NewWithSourceInstance("iofs", source, Pgx5DSN(dsn))
	if err != nil {
		return fmt.Errorf("migration: init: %w", err)
	}
	defer func() {
		sourceErr, dbErr := migrator.Close()
		if sourceErr != nil {
			logger.Error("migration source close", slog.Any("error", sourceErr))
		}
		if dbErr != nil {
			logger.Error("migration db close", slog.Any("error", dbErr))
		}
	}()
	migrator.Log = &migrateLogger{logger: logger}

	current, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: read version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration: database is dirty at version %d", current)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migrations up to date", slog.Uint64("version", uint64(current)))
			return nil
		}
		return fmt.Errorf("migration: up: %w", err)
	}
	next, _, _ := migrator.Version()
	logger.Info("migrations applied", slog.Uint64("from", uint64(current)), slog.Uint64("to", uint64(next)))
	return nil
}

// Pgx5DSN rewrites postgres:// and postgresql:// URLs to the pgx5:// scheme the driver expects.
func Pgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
