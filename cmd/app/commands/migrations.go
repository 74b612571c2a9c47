package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/keyguard/internal/database"
)

// RunMigrations applies all pending migrations for the given driver.
// Returns nil if there is nothing to apply.
func RunMigrations(logger *slog.Logger, driver, connectionString string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	sourceURL, databaseURL := migrationURLs(driver, connectionString)

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// migrationURLs maps a driver and its connection string to the migration
// source directory and the URL golang-migrate expects.
func migrationURLs(driver, connectionString string) (string, string) {
	switch driver {
	case database.DriverMySQL:
		return "file://migrations/mysql", withScheme("mysql://", connectionString)
	case database.DriverSQLite:
		return "file://migrations/sqlite", withScheme("sqlite://", connectionString)
	default:
		return "file://migrations/postgresql", connectionString
	}
}

func withScheme(scheme, connectionString string) string {
	if strings.HasPrefix(connectionString, scheme) {
		return connectionString
	}
	return scheme + connectionString
}
