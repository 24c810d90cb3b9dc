package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dbdoc/internal/bootstrap/config"
)

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "ledger.sqlite")

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })

	if err := db.Exec("CREATE TABLE ping (id INTEGER)").Error; err != nil {
		t.Fatalf("exec: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(dsn)); err != nil {
		t.Fatalf("sqlite directory not created: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("Open() expected error for unknown driver")
	}
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "postgres"}); err == nil {
		t.Fatalf("Open() expected error without dsn")
	}
}

func TestEnsureSQLiteDirectoryHandlesFileURIs(t *testing.T) {
	base := t.TempDir()
	dsn := "file:" + filepath.Join(base, "a", "b.sqlite") + "?_pragma=busy_timeout(5000)"

	if err := ensureSQLiteDirectory(context.Background(), dsn); err != nil {
		t.Fatalf("ensureSQLiteDirectory() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "a")); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if err := ensureSQLiteDirectory(context.Background(), ":memory:"); err != nil {
		t.Fatalf("ensureSQLiteDirectory(:memory:) error = %v", err)
	}
}
