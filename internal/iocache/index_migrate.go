package iocache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/huangsam/repolens/schema"
)

// migrationsTable is where golang-migrate records the applied version.
const migrationsTable = "repolens_schema_migrations"

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// migrateDriver wraps an open handle in the golang-migrate driver for backend.
func migrateDriver(db *sql.DB, backend schema.DatabaseBackend) (database.Driver, error) {
	switch backend {
	case schema.SQLiteBackend:
		return sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: migrationsTable})
	case schema.MySQLBackend:
		return mysql.WithInstance(db, &mysql.Config{MigrationsTable: migrationsTable})
	case schema.PostgreSQLBackend:
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// MigrateIndex moves the index schema to targetVersion and reports what happened to w.
// A negative target means latest and zero rolls everything back.
func MigrateIndex(w io.Writer, backend schema.DatabaseBackend, connStr string, targetVersion int) error {
	if backend == schema.NoneBackend {
		return errors.New("the none backend has no schema to migrate")
	}

	db, _, err := openIndexDB(backend, connStr)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	driver, err := migrateDriver(db, backend)
	if err != nil {
		return fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}
	dialect, err := fs.Sub(migrationsFS, "migrations/"+string(backend))
	if err != nil {
		return fmt.Errorf("failed to access %s migrations: %w", backend, err)
	}
	source, err := iofs.New(dialect, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "repolens", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("index schema is dirty at version %d. Fix it by hand or force a version", from)
	}

	var label string
	switch {
	case targetVersion < 0:
		label, err = "the latest version", m.Up()
	case targetVersion == 0:
		label, err = "version 0", m.Down()
	default:
		label, err = fmt.Sprintf("version %d", targetVersion), m.Migrate(uint(targetVersion))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		_, _ = fmt.Fprintf(w, "Index schema already at %s.\n", label)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to migrate index to %s: %w", label, err)
	}

	to, _, _ := m.Version()
	_, _ = fmt.Fprintf(w, "Migrated index schema from version %d to version %d.\n", from, to)
	return nil
}
