// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/binpoints/apiserver/config"
	"github.com/binpoints/apiserver/internal/db"
	"github.com/binpoints/apiserver/internal/store"
)

// SQLiteConfig returns a database config pointing at a fresh file in t's temp dir.
func SQLiteConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}
}

// NewStore opens a migrated SQLite store that is closed when the test ends.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	cfg := SQLiteConfig(t)

	if err := db.MigrateUp(ctx, cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	s := store.New(conn)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
