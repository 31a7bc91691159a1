// Package sqlitetest opens throwaway SQLite databases with the service
// schema for package tests.
package sqlitetest

import (
	"context"
	"database/sql"
	_ "embed"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/madhatv/payment-recovery/internal/database"
)

//go:embed schema.sql
var schemaSQL string

// Open returns a migrated database stored under t.TempDir().  It is
// closed when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Exec(context.Background(), db, schemaSQL); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}
