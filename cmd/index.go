package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/internal/iocache"
)

// indexCmd focused on durable index management.
//
// Note: Index subcommands use minimal initialization (indexSetup) instead of
// the full sharedSetup. They never start the orchestrator or load the index into memory.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the durable repository index",
	Long: `Manage the database that stores every committed analysis.

On startup repolens loads the index into memory and reuses analyses whose
fingerprints are younger than --cache-ttl, so repeated runs skip unchanged
repositories.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (in-memory only)

Subcommands:
  status  - Show index statistics and connection info
  export  - Export the index to Parquet for analytics
  clear   - Remove all indexed data
  migrate - Run database schema migrations

Examples:
  # Check index status
  repolens index status

  # Export for analysis in pandas/DuckDB
  repolens index export --output-file repolens-index`,
}

// indexStatusCmd shows index status.
var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display index statistics and connection details",
	Long: `Show detailed information about the durable index.

Displays:
- Backend type and connection status
- Number of indexed repositories and fingerprints
- Oldest and newest analysis timestamps
- Database size where the backend reports it

Examples:
  repolens index status
  REPOLENS_INDEX_BACKEND=postgresql REPOLENS_INDEX_DB_CONNECT="host=localhost dbname=repolens" repolens index status`,
	PreRunE: indexSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := indexStore.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get index status", err)
		}
		iocache.PrintIndexStatus(os.Stdout, status)
	},
}

// indexClearCmd clears the index.
var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all indexed repositories",
	Long: `Delete every stored analysis and fingerprint from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the index tables

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  repolens index export --output-file backup
  repolens index clear`,
	PreRunE: indexConfigWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearIndex(cfg.IndexBackend, cfg.IndexDBConnect); err != nil {
			contract.LogFatal("Failed to clear index", err)
		}
		fmt.Println("Index cleared successfully.")
	},
}

// indexExportCmd exports the index to Parquet files.
var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index to Parquet for BI tools and analytics",
	Long: `Export the durable index to Parquet format for use with analytics tools.

Exports two datasets:
- <output-file>.repositories.parquet - one row per indexed repository
- <output-file>.fingerprints.parquet - committed fingerprints with timestamps

Requires: --output-file parameter

Examples:
  repolens index export --output-file repolens
  duckdb -c "SELECT repo_name, file_count FROM read_parquet('repolens.repositories.parquet')"`,
	PreRunE: indexSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteIndexExport(os.Stdout, indexStore, cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export index", err)
		}
	},
}

// indexMigrateCmd runs database migrations for the index store.
var indexMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the index store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  repolens index migrate

  # Rollback everything
  repolens index migrate --target-version 0`,
	PreRunE: indexConfigWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateIndex(os.Stdout, cfg.IndexBackend, cfg.IndexDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
