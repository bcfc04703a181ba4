package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/huangsam/repolens/core"
	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/internal/insight"
	"github.com/huangsam/repolens/internal/iocache"
	"github.com/huangsam/repolens/internal/pathcheck"
	"github.com/huangsam/repolens/internal/scanner"
	"github.com/huangsam/repolens/schema"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations. Execute cancels it on SIGINT and SIGTERM.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// profilePrefix enables CPU and memory profiling when non-empty.
var profilePrefix string

// Runtime components built by sharedSetup and released by Shutdown.
var (
	logger       = zap.NewNop()
	indexStore   contract.IndexStore
	registry     *prometheus.Registry
	orchestrator *core.Orchestrator
)

// startProfiling starts CPU profiling if enabled.
func startProfiling() error {
	if profilePrefix == "" {
		return nil
	}

	cpuFile, err := os.Create(profilePrefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", profilePrefix, profilePrefix)
	return err
}

// stopProfiling stops profiling and writes memory profile.
func stopProfiling() error {
	if profilePrefix == "" {
		return nil
	}

	pprof.StopCPUProfile()

	memFile, err := os.Create(profilePrefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profilePrefix)
	return err
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "repolens",
	Short:              "Analyze local repositories and relate them to each other.",
	Long:               `Repolens fingerprints, scans and indexes repositories, then searches, compares and groups them.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configureConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("REPOLENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("scan-timeout", contract.DefaultScanTimeout.String())
	viper.SetDefault("cache-ttl", contract.DefaultCacheTTL.String())
	viper.SetDefault("cache-capacity", contract.DefaultCacheCapacity)
	viper.SetDefault("mode", schema.StandardMode)
	viper.SetDefault("limit", contract.DefaultResultLimit)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("index-backend", schema.SQLiteBackend)
	viper.SetDefault("index-db-connect", "")
	viper.SetDefault("threshold", contract.DefaultGraphThreshold)
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("color", "yes")

	bindInsightEnv()
}

// insightEnvKeys lists every key of the insight block.
var insightEnvKeys = []string{
	"insight.base_url",
	"insight.model",
	"insight.api_key",
	"insight.rate_per_second",
	"insight.timeout",
	"insight.max_retries",
}

// bindInsightEnv binds the insight block explicitly: AutomaticEnv only reaches
// nested keys viper already knows about.
func bindInsightEnv() {
	for _, key := range insightEnvKeys {
		_ = viper.BindEnv(key)
	}
}

// configureConfigFile points viper at --config or the default .repolens.yaml locations.
func configureConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".repolens") // Name of config file (without extension)
	viper.SetConfigType("yaml")      // We'll use YAML format
	viper.AddConfigPath(".")         // Look in the current directory
	viper.AddConfigPath("$HOME")     // Look in the home directory
}

// loadConfig merges defaults, file, env and flags, then validates into cfg.
func loadConfig() error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	return contract.ProcessAndValidate(cfg, input)
}

// sharedSetup validates config, opens the index and starts the orchestrator.
func sharedSetup(ctx context.Context, _ *cobra.Command, _ []string) error {
	profilePrefix = strings.TrimSpace(viper.GetString("profile"))
	if err := startProfiling(); err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}

	if err := loadConfig(); err != nil {
		return err
	}

	l, err := contract.NewLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	logger = l

	// Initialize persistence layer with validated config
	store, err := iocache.NewIndexStore(cfg.IndexBackend, cfg.IndexDBConnect)
	if err != nil {
		return fmt.Errorf("failed to initialize index: %w", err)
	}
	indexStore = store

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	o, err := core.New(cfg,
		scanner.New(scanner.WithLogger(logger.Named("scanner"))),
		core.WithStore(store),
		core.WithValidator(pathcheck.New(cfg.AllowedRoots)),
		core.WithLogger(logger),
		core.WithRegisterer(registry),
		core.WithInsightProviders(insight.Providers(cfg.Insight, logger.Named("insight"))...),
	)
	if err != nil {
		return err
	}
	orchestrator = o

	if err := orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// indexSetup loads minimal configuration needed for index maintenance.
// This is used by commands that need store access without starting the orchestrator.
func indexSetup(open bool) error {
	if err := loadConfig(); err != nil {
		return err
	}
	// For SQLite backend with empty connection string, use default path
	if cfg.IndexBackend == schema.SQLiteBackend && cfg.IndexDBConnect == "" {
		cfg.IndexDBConnect = contract.GetIndexDBFilePath()
	}
	if !open {
		return nil
	}
	store, err := iocache.NewIndexStore(cfg.IndexBackend, cfg.IndexDBConnect)
	if err != nil {
		return fmt.Errorf("failed to initialize index: %w", err)
	}
	indexStore = store
	return nil
}

// indexSetupWrapper opens the store for index commands.
func indexSetupWrapper(_ *cobra.Command, _ []string) error {
	return indexSetup(true)
}

// indexConfigWrapper validates config only; migrations and clear must run on any schema state.
func indexConfigWrapper(_ *cobra.Command, _ []string) error {
	return indexSetup(false)
}

// Execute runs the root command. SIGINT and SIGTERM cancel in-flight analyses.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx
	return rootCmd.Execute()
}

// Shutdown stops the orchestrator, closes the index and flushes profiles.
func Shutdown() error {
	if orchestrator != nil {
		orchestrator.Close()
	}
	if indexStore != nil {
		if err := indexStore.Close(); err != nil {
			contract.LogWarn("Failed to close index", err)
		}
	}
	_ = logger.Sync()
	return stopProfiling()
}
