package iocache

import (
	"fmt"
	"io"
	"os"

	"github.com/huangsam/repolens/schema"
)

// ClearIndex wipes the durable index. SQLite removes the database file,
// the server backends drop the index and migration tables.
func ClearIndex(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.NoneBackend:
		return nil
	case schema.SQLiteBackend:
		path := resolveConn(backend, connStr)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite index %s: %w", path, err)
		}
		return nil
	}

	db, _, err := openIndexDB(backend, connStr)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	for _, table := range []string{fingerprintsTable, repositoriesTable, migrationsTable} {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + quoteTableName(table, backend)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

// PrintIndexStatus prints index status information.
func PrintIndexStatus(w io.Writer, status schema.IndexStatus) {
	_, _ = fmt.Fprintf(w, "Index Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Repositories: %d\n", status.TotalRepositories)
	_, _ = fmt.Fprintf(w, "Total Fingerprints: %d\n", status.TotalFingerprints)
	if status.TotalRepositories > 0 {
		_, _ = fmt.Fprintf(w, "Last Update: %s\n", status.LastUpdateTime.Local().Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s\n", status.OldestCreateTime.Local().Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintf(w, "Database Size: %d bytes\n", status.DatabaseSizeBytes)
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	for _, table := range []string{repositoriesTable, fingerprintsTable} {
		if size, ok := status.TableSizes[table]; ok {
			_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, size)
		}
	}
}
