package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/huangsam/repolens/internal/outwriter"
)

// cacheCmd focused on the in-memory result cache.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the in-memory result cache",
	Long: `Inspect the result cache that deduplicates concurrent analyses and reuses
completed ones by fingerprint.

The cache lives in memory for the lifetime of the process. On startup it is
seeded from index fingerprints younger than --cache-ttl (the warm start).

Subcommands:
  status - Show cache and queue statistics

Examples:
  repolens cache status
  repolens cache status --cache-ttl 1h`,
}

// cacheStatusCmd shows cache status after the warm start.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache and task queue statistics",
	Long: `Load the index, run the warm start and print cache and queue statistics.

Displays:
- Cached entries, capacity and TTL
- Hits, joined waiters and misses
- Evictions and warm-start seeded entries
- Queue concurrency and processed jobs

Examples:
  repolens cache status`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		outwriter.PrintCacheStatus(os.Stdout, orchestrator.CacheStatus(), orchestrator.QueueStatus())
	},
}
