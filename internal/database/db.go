// Package database provides database setup, models, and data access layer (Store).
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/zmanimbot/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// pragmas are applied to every connection opened from a plain file path.
var pragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

// NewDB opens the SQLite file at dbPath, migrates it to the latest schema and
// returns a single-connection pool. A dbPath carrying its own query string is
// used as given.
func NewDB(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One writer at a time; a single connection also keeps pragmas in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	version, err := ApplyMigrations(db.DB)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database ready", "path", ExtractDBNameFromPath(dbPath), "schema_version", version)
	return db, nil
}

// CloseDB closes the database connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
		return
	}
	slog.Info("Database connection closed")
}

// ApplyMigrations brings db up to the newest embedded migration and returns
// the resulting schema version.
func ApplyMigrations(db *sql.DB) (uint, error) {
	if db == nil {
		return 0, errors.New("database connection is nil, cannot apply migrations")
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	target, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Debug("Database schema is up to date")
	case err != nil:
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	q := url.Values{"_time_format": {"sqlite"}}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return dbPath + "?" + q.Encode()
}

// ExtractDBNameFromPath returns the file path of a plain or URL-style DSN.
func ExtractDBNameFromPath(path string) string {
	path = strings.TrimPrefix(path, "file:")
	if before, _, ok := strings.Cut(path, "?"); ok {
		path = before
	}
	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}
	return path
}
