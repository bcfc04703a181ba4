// Package cmd defines the command-line interface for repolens.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(combosCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the index subcommands to the parent index command
	indexCmd.AddCommand(indexStatusCmd)
	indexCmd.AddCommand(indexClearCmd)
	indexCmd.AddCommand(indexExportCmd)
	indexCmd.AddCommand(indexMigrateCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheStatusCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Maximum number of concurrent repository scans")
	rootCmd.PersistentFlags().String("scan-timeout", contract.DefaultScanTimeout.String(), "Deadline for a single scan (Go duration or 'N [units]')")
	rootCmd.PersistentFlags().String("cache-ttl", contract.DefaultCacheTTL.String(), "How long a completed analysis is reused (0 = forever)")
	rootCmd.PersistentFlags().Int("cache-capacity", contract.DefaultCacheCapacity, "Maximum cached analyses (0 = unbounded)")
	rootCmd.PersistentFlags().String("mode", string(schema.StandardMode), "Analysis depth: quick or standard or comprehensive")
	rootCmd.PersistentFlags().Int("max-files", 0, "Maximum files scanned per repository (0 = mode default)")
	rootCmd.PersistentFlags().Int("max-lines", 0, "Maximum lines read per file (0 = mode default)")
	rootCmd.PersistentFlags().Bool("llm", false, "Attach a narrative from an insight provider")
	rootCmd.PersistentFlags().String("llm-provider", "", "Insight provider: summary or http")
	rootCmd.PersistentFlags().String("formats", "", "Comma-separated export formats: json, markdown, html")
	rootCmd.PersistentFlags().String("tree", "", "Include the directory tree (yes/no, empty = mode default)")
	rootCmd.PersistentFlags().String("index-backend", string(schema.SQLiteBackend), "Index backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("index-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname?parseTime=true)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or json or csv or markdown or html or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Float64("threshold", contract.DefaultGraphThreshold, "Minimum similarity for a relationship graph edge (0-1)")
	rootCmd.PersistentFlags().String("allowed-roots", "", "Comma-separated directories that repository paths must live under")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address in mcp mode (e.g., :9090)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of analyzeCmd to Viper
	analyzeCmd.Flags().String("export-dir", "", "Write every requested export format into this directory")
	if err := viper.BindPFlags(analyzeCmd.Flags()); err != nil {
		contract.LogFatal("Error binding analyze flags", err)
	}

	// Bind all flags of batchCmd to Viper
	batchCmd.Flags().Int("concurrency", 0, "Maximum concurrent scans for this batch (0 = --workers)")
	batchCmd.Flags().Bool("quiet", false, "Suppress the live progress line")
	if err := viper.BindPFlags(batchCmd.Flags()); err != nil {
		contract.LogFatal("Error binding batch flags", err)
	}

	// Bind all flags of searchCmd to Viper
	searchCmd.Flags().StringSlice("lang", nil, "Languages to match (any of)")
	searchCmd.Flags().StringSlice("framework", nil, "Frameworks to match (any of)")
	searchCmd.Flags().StringSlice("keyword", nil, "Keywords to match (any of)")
	searchCmd.Flags().StringSlice("file-type", nil, "File extensions to match (any of)")
	searchCmd.Flags().String("since", "", "Analyzed at or after this time (ISO8601, YYYY-MM-DD or time ago)")
	searchCmd.Flags().String("until", "", "Analyzed at or before this time (ISO8601, YYYY-MM-DD or time ago)")
	if err := viper.BindPFlags(searchCmd.Flags()); err != nil {
		contract.LogFatal("Error binding search flags", err)
	}

	// Bind all flags of similarCmd to Viper
	similarCmd.Flags().Float64("min-score", 0, "Drop matches scoring below this value (0-1)")
	if err := viper.BindPFlags(similarCmd.Flags()); err != nil {
		contract.LogFatal("Error binding similar flags", err)
	}

	// Bind all flags of combosCmd to Viper
	combosCmd.Flags().Int("max-group-size", 0, "Largest group to consider (0 = synergy.max_group_size)")
	if err := viper.BindPFlags(combosCmd.Flags()); err != nil {
		contract.LogFatal("Error binding combos flags", err)
	}

	// Bind all flags of indexMigrateCmd to Viper
	indexMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(indexMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding index migrate flags", err)
	}
}
