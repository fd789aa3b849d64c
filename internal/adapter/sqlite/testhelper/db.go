// Package testhelper provides a migrated SQLite database for repository
// and service tests.
package testhelper

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/heartmarshall/qrfactory/internal/adapter/sqlite"
)

// SetupTestDB opens a fresh, fully migrated database in a per-test temp
// directory. The handle is closed via t.Cleanup.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sqlite.OpenPath(ctx, filepath.Join(t.TempDir(), "test.sqlite"), 5*time.Second)
	if err != nil {
		t.Fatalf("testhelper: open test DB: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}
