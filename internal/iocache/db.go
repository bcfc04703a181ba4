package iocache

import (
	"database/sql"
	"fmt"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// sqlDrivers maps SQL backends to their database/sql driver names.
var sqlDrivers = map[schema.DatabaseBackend]string{
	schema.SQLiteBackend:     "sqlite",
	schema.MySQLBackend:      "mysql",
	schema.PostgreSQLBackend: "pgx",
}

// connHints tells users what a valid connection string looks like.
var connHints = map[schema.DatabaseBackend]string{
	schema.SQLiteBackend:     "Check that the directory is writable",
	schema.MySQLBackend:      "Expected format: user:password@tcp(host:port)/dbname?parseTime=true",
	schema.PostgreSQLBackend: "Expected format: host=localhost port=5432 user=postgres dbname=mydb",
}

// resolveConn fills in the default SQLite file when no path is given.
func resolveConn(backend schema.DatabaseBackend, connStr string) string {
	if backend == schema.SQLiteBackend && connStr == "" {
		return contract.GetIndexDBFilePath()
	}
	return connStr
}

// openIndexDB opens and pings the database behind a SQL backend.
// It returns the resolved connection string alongside the handle.
func openIndexDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, string, error) {
	driverName, ok := sqlDrivers[backend]
	if !ok {
		return nil, "", fmt.Errorf("unsupported index backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}
	connStr = resolveConn(backend, connStr)

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s index: %w. %s", backend, err, connHints[backend])
	}
	if backend == schema.SQLiteBackend {
		// One writer at a time avoids "database is locked".
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to connect to %s index: %w. %s", backend, err, connHints[backend])
	}
	return db, connStr, nil
}
