package db

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/binpoints/apiserver/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrator wraps golang-migrate for the embedded schema of one dialect.
// It owns its connection; Close releases it.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens a dedicated connection and prepares the migrations
// matching cfg.Driver.
func NewMigrator(ctx context.Context, cfg config.DatabaseConfig) (*Migrator, error) {
	conn, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m, err := newMigrate(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return &Migrator{m: m}, nil
}

func newMigrate(conn *sqlx.DB) (*migrate.Migrate, error) {
	var (
		dir    string
		driver database.Driver
		err    error
	)
	switch conn.DriverName() {
	case DriverPostgres, DriverPgx:
		dir = "migrations/postgres"
		driver, err = migratepostgres.WithInstance(conn.DB, &migratepostgres.Config{})
	case DriverMySQL:
		dir = "migrations/mysql"
		driver, err = migratemysql.WithInstance(conn.DB, &migratemysql.Config{})
	case DriverSQLite:
		dir = "migrations/sqlite"
		driver, err = migratesqlite.WithInstance(conn.DB, &migratesqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conn.DriverName())
	}
	if err != nil {
		return nil, err
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, conn.DriverName(), driver)
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}

// Down rolls back the given number of migrations. steps <= 0 rolls back everything.
func (m *Migrator) Down(steps int) error {
	var err error
	if steps > 0 {
		err = m.m.Steps(-steps)
	} else {
		err = m.m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}

// Version reports the applied schema version. A database without
// migrations reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the migrator and its connection.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// MigrateUp is a convenience wrapper applying every pending migration.
func MigrateUp(ctx context.Context, cfg config.DatabaseConfig) error {
	m, err := NewMigrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = m.Close()
	}()
	return m.Up()
}
