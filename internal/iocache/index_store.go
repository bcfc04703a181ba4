// Package iocache persists the repository index to a SQL database.
package iocache

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// Table names for the durable index.
const (
	repositoriesTable = "repolens_repositories"
	fingerprintsTable = "repolens_fingerprints"
)

// sqliteTimeLayout keeps stored timestamps fixed-width so they sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// IndexStoreImpl implements contract.IndexStore on top of database/sql.
// A nil db means the none backend: writes are dropped and reads come back empty.
type IndexStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.IndexStore = &IndexStoreImpl{} // Compile-time check

// NewIndexStore opens the index database for backend and creates its tables.
func NewIndexStore(backend schema.DatabaseBackend, connStr string) (contract.IndexStore, error) {
	if backend == schema.NoneBackend {
		return &IndexStoreImpl{backend: backend}, nil
	}

	db, resolved, err := openIndexDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if err := createIndexTables(db, backend); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &IndexStoreImpl{db: db, backend: backend, connStr: resolved}, nil
}

// createIndexTables creates the repository and fingerprint tables.
func createIndexTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{repositoriesTable, getCreateRepositoriesQuery(backend)},
		{fingerprintsTable, getCreateFingerprintsQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateRepositoriesQuery returns the CREATE TABLE query for repolens_repositories.
func getCreateRepositoriesQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(repositoriesTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				repo_id VARCHAR(64) PRIMARY KEY,
				repo_name VARCHAR(255) NOT NULL,
				repo_path TEXT NOT NULL,
				fingerprint VARCHAR(128) NOT NULL,
				payload LONGBLOB NOT NULL,
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				repo_id TEXT PRIMARY KEY,
				repo_name TEXT NOT NULL,
				repo_path TEXT NOT NULL,
				fingerprint TEXT NOT NULL,
				payload BYTEA NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				repo_id TEXT PRIMARY KEY,
				repo_name TEXT NOT NULL,
				repo_path TEXT NOT NULL,
				fingerprint TEXT NOT NULL,
				payload BLOB NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
		`, quotedTableName)
	}
}

// getCreateFingerprintsQuery returns the CREATE TABLE query for repolens_fingerprints.
func getCreateFingerprintsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(fingerprintsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				fingerprint VARCHAR(128) PRIMARY KEY,
				repo_id VARCHAR(64) NOT NULL,
				committed_at DATETIME(6) NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				fingerprint TEXT PRIMARY KEY,
				repo_id TEXT NOT NULL,
				committed_at TIMESTAMPTZ NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				fingerprint TEXT PRIMARY KEY,
				repo_id TEXT NOT NULL,
				committed_at TEXT NOT NULL
			);
		`, quotedTableName)
	}
}

// Save writes the repository row and its fingerprint row in one transaction.
// Older fingerprints of the same repository are removed.
func (s *IndexStoreImpl) Save(record schema.RepositoryRecord) error {
	if s.backend == schema.NoneBackend || s.db == nil {
		return nil
	}
	if record.RepoID == "" {
		return fmt.Errorf("cannot save repository without an id")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(s.getRepositoryUpsertQuery(),
		record.RepoID, record.RepoName, record.RepoPath, record.Fingerprint, record.Payload,
		formatTime(record.CreatedAt, s.backend), formatTime(record.UpdatedAt, s.backend))
	if err != nil {
		return fmt.Errorf("failed to upsert repository %s: %w", record.RepoID, err)
	}

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE repo_id = %s",
		quoteTableName(fingerprintsTable, s.backend), placeholder(s.backend, 1))
	if _, err := tx.Exec(deleteQuery, record.RepoID); err != nil {
		return fmt.Errorf("failed to drop stale fingerprints for %s: %w", record.RepoID, err)
	}

	if record.Fingerprint != "" {
		_, err = tx.Exec(s.getFingerprintUpsertQuery(),
			record.Fingerprint, record.RepoID, formatTime(record.UpdatedAt, s.backend))
		if err != nil {
			return fmt.Errorf("failed to record fingerprint for %s: %w", record.RepoID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index transaction: %w", err)
	}
	return nil
}

// getRepositoryUpsertQuery returns the UPSERT query for repositories. created_at is kept on conflict.
func (s *IndexStoreImpl) getRepositoryUpsertQuery() string {
	quotedTableName := quoteTableName(repositoriesTable, s.backend)
	columns := "repo_id, repo_name, repo_path, fingerprint, payload, created_at, updated_at"
	switch s.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) AS new
			ON DUPLICATE KEY UPDATE repo_name = new.repo_name, repo_path = new.repo_path, fingerprint = new.fingerprint,
			payload = new.payload, updated_at = new.updated_at`, quotedTableName, columns, placeholders(s.backend, 7))

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
			ON CONFLICT (repo_id) DO UPDATE SET repo_name = EXCLUDED.repo_name, repo_path = EXCLUDED.repo_path,
			fingerprint = EXCLUDED.fingerprint, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
			quotedTableName, columns, placeholders(s.backend, 7))

	default: // SQLite
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
			ON CONFLICT (repo_id) DO UPDATE SET repo_name = excluded.repo_name, repo_path = excluded.repo_path,
			fingerprint = excluded.fingerprint, payload = excluded.payload, updated_at = excluded.updated_at`,
			quotedTableName, columns, placeholders(s.backend, 7))
	}
}

// getFingerprintUpsertQuery returns the UPSERT query for fingerprints.
func (s *IndexStoreImpl) getFingerprintUpsertQuery() string {
	quotedTableName := quoteTableName(fingerprintsTable, s.backend)
	switch s.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (fingerprint, repo_id, committed_at) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE repo_id = new.repo_id, committed_at = new.committed_at`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (fingerprint, repo_id, committed_at) VALUES ($1, $2, $3)
			ON CONFLICT (fingerprint) DO UPDATE SET repo_id = EXCLUDED.repo_id, committed_at = EXCLUDED.committed_at`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (fingerprint, repo_id, committed_at) VALUES (?, ?, ?)`, quotedTableName)
	}
}

// Delete removes a repository and its fingerprints. Unknown ids are not an error.
func (s *IndexStoreImpl) Delete(repoID string) error {
	if s.backend == schema.NoneBackend || s.db == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{fingerprintsTable, repositoriesTable} {
		query := fmt.Sprintf("DELETE FROM %s WHERE repo_id = %s", quoteTableName(table, s.backend), placeholder(s.backend, 1))
		if _, err := tx.Exec(query, repoID); err != nil {
			return fmt.Errorf("failed to delete %s from %s: %w", repoID, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index transaction: %w", err)
	}
	return nil
}

// LoadAll returns every stored repository ordered by id.
func (s *IndexStoreImpl) LoadAll() ([]schema.RepositoryRecord, error) {
	if s.backend == schema.NoneBackend || s.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT repo_id, repo_name, repo_path, fingerprint, payload, created_at, updated_at
		FROM %s ORDER BY repo_id`, quoteTableName(repositoriesTable, s.backend))

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RepositoryRecord
	for rows.Next() {
		var record schema.RepositoryRecord

		switch s.backend {
		case schema.SQLiteBackend:
			var createdStr, updatedStr string
			if err := rows.Scan(&record.RepoID, &record.RepoName, &record.RepoPath, &record.Fingerprint,
				&record.Payload, &createdStr, &updatedStr); err != nil {
				return nil, fmt.Errorf("failed to scan repository: %w", err)
			}
			if record.CreatedAt, err = parseTime(createdStr); err != nil {
				return nil, fmt.Errorf("failed to parse created_at: %w", err)
			}
			if record.UpdatedAt, err = parseTime(updatedStr); err != nil {
				return nil, fmt.Errorf("failed to parse updated_at: %w", err)
			}
		default: // MySQL and PostgreSQL store as native datetime
			if err := rows.Scan(&record.RepoID, &record.RepoName, &record.RepoPath, &record.Fingerprint,
				&record.Payload, &record.CreatedAt, &record.UpdatedAt); err != nil {
				return nil, fmt.Errorf("failed to scan repository: %w", err)
			}
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repositories: %w", err)
	}
	return results, nil
}

// LoadFingerprints returns every stored fingerprint ordered by commit time.
func (s *IndexStoreImpl) LoadFingerprints() ([]schema.FingerprintRecord, error) {
	if s.backend == schema.NoneBackend || s.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT fingerprint, repo_id, committed_at FROM %s ORDER BY committed_at, fingerprint",
		quoteTableName(fingerprintsTable, s.backend))

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FingerprintRecord
	for rows.Next() {
		var record schema.FingerprintRecord

		switch s.backend {
		case schema.SQLiteBackend:
			var committedStr string
			if err := rows.Scan(&record.Fingerprint, &record.RepoID, &committedStr); err != nil {
				return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
			}
			if record.CommittedAt, err = parseTime(committedStr); err != nil {
				return nil, fmt.Errorf("failed to parse committed_at: %w", err)
			}
		default:
			if err := rows.Scan(&record.Fingerprint, &record.RepoID, &record.CommittedAt); err != nil {
				return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
			}
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fingerprints: %w", err)
	}
	return results, nil
}

// Clear removes every row but keeps the tables.
func (s *IndexStoreImpl) Clear() error {
	if s.backend == schema.NoneBackend || s.db == nil {
		return nil
	}
	for _, table := range []string{fingerprintsTable, repositoriesTable} {
		if _, err := s.db.Exec("DELETE FROM " + quoteTableName(table, s.backend)); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// GetStatus returns status information about the index store.
func (s *IndexStoreImpl) GetStatus() (schema.IndexStatus, error) {
	status := schema.IndexStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}

	if s.backend == schema.NoneBackend || s.db == nil {
		return status, nil
	}

	for _, table := range []string{repositoriesTable, fingerprintsTable} {
		row := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, s.backend)))
		var count int64
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalRepositories = int(status.TableSizes[repositoriesTable])
	status.TotalFingerprints = int(status.TableSizes[fingerprintsTable])

	if status.TotalRepositories > 0 {
		quotedTableName := quoteTableName(repositoriesTable, s.backend)
		var err error
		if status.LastUpdateTime, err = s.queryTime(fmt.Sprintf("SELECT MAX(updated_at) FROM %s", quotedTableName)); err != nil {
			return status, fmt.Errorf("failed to get last update time: %w", err)
		}
		if status.OldestCreateTime, err = s.queryTime(fmt.Sprintf("SELECT MIN(created_at) FROM %s", quotedTableName)); err != nil {
			return status, fmt.Errorf("failed to get oldest create time: %w", err)
		}
	}

	status.DatabaseSizeBytes = s.estimateSize(status.TotalRepositories)
	return status, nil
}

// queryTime scans a single timestamp, honoring the SQLite text layout.
func (s *IndexStoreImpl) queryTime(query string) (time.Time, error) {
	row := s.db.QueryRow(query)
	if s.backend == schema.SQLiteBackend {
		var raw string
		if err := row.Scan(&raw); err != nil {
			return time.Time{}, err
		}
		return parseTime(raw)
	}
	var t time.Time
	err := row.Scan(&t)
	return t, err
}

// estimateSize reports the on-disk size of the index, falling back to a rough estimate.
func (s *IndexStoreImpl) estimateSize(totalRepositories int) int64 {
	fallback := int64(totalRepositories) * 4096
	var size int64

	switch s.backend {
	case schema.SQLiteBackend:
		row := s.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return 0
		}
		return size

	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(s.connStr)
		if err != nil || cfg.DBName == "" {
			return fallback
		}
		row := s.db.QueryRow(`SELECT COALESCE(SUM(data_length + index_length), 0) FROM information_schema.tables
			WHERE table_schema = ? AND table_name IN (?, ?)`, cfg.DBName, repositoriesTable, fingerprintsTable)
		if err := row.Scan(&size); err != nil {
			return fallback
		}
		return size

	case schema.PostgreSQLBackend:
		row := s.db.QueryRow("SELECT pg_total_relation_size($1) + pg_total_relation_size($2)", repositoriesTable, fingerprintsTable)
		if err := row.Scan(&size); err != nil {
			return fallback
		}
		return size

	default:
		return fallback
	}
}

// Close closes the underlying connection.
func (s *IndexStoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// placeholder returns the i-th bind parameter (1-based) for the backend.
func placeholder(backend schema.DatabaseBackend, i int) string {
	if backend == schema.PostgreSQLBackend {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// placeholders returns n comma separated bind parameters.
func placeholders(backend schema.DatabaseBackend, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = placeholder(backend, i+1)
	}
	return strings.Join(parts, ", ")
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(sqliteTimeLayout)
	default:
		return t
	}
}

// parseTime reads a timestamp written by formatTime.
func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}
