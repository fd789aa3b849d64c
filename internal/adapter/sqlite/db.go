// Package sqlite holds the embedded SQLite store: connection setup,
// schema migrations, the transaction manager and error mapping shared by
// the repositories in its subpackages.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/heartmarshall/qrfactory/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// TimeLayout is the fixed-width UTC layout used for every stored timestamp,
// so lexical order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Open creates the database directory if needed, opens the database file,
// pings it for fail-fast validation and applies pending migrations.
//
// The pool is limited to a single connection: SQLite allows one writer and
// serializing in-process avoids SQLITE_BUSY under concurrent requests.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	return OpenPath(ctx, cfg.Path(), cfg.BusyTimeout)
}

// OpenPath opens the database at path. See Open.
func OpenPath(ctx context.Context, path string, busyTimeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate applies all embedded migrations that have not been applied yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Builder returns a squirrel statement builder with SQLite placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a timestamp written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// dsn builds a file: URI for path. The path is percent-escaped so '?', '#'
// and '%' in directory names do not leak into the pragma query.
func dsn(path string, busyTimeout time.Duration) string {
	query := url.Values{"_pragma": {
		"journal_mode(WAL)",
		fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()),
		"foreign_keys(1)",
	}}
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + query.Encode()
}
