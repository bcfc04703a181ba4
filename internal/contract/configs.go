package contract

import (
	"fmt"
	"maps"
	"math"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/repolens/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit     = 25
	MaxResultLimit         = 1000
	DefaultPrecision       = 2
	DefaultScanTimeout     = 10 * time.Minute
	DefaultCacheTTL        = 24 * time.Hour
	DefaultCacheCapacity   = 512
	DefaultGraphThreshold  = 0.3
	DefaultMaxGroupSize    = 3
	MaxGroupSizeLimit      = 5
	DefaultMaxCombinations = 5000
	DefaultInsightRate     = 1.0
	DefaultInsightRetries  = 2
	DefaultInsightTimeout  = 60 * time.Second
	DefaultLogLevel        = "warn"
)

// DefaultWorkers is the default number of concurrent scans.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// SimilarityWeightsRaw holds optional similarity weight overrides from the config file.
// Pointer fields distinguish "unset" from an explicit zero.
type SimilarityWeightsRaw struct {
	Languages    *float64 `mapstructure:"languages"`
	Frameworks   *float64 `mapstructure:"frameworks"`
	Dependencies *float64 `mapstructure:"dependencies"`
	Size         *float64 `mapstructure:"size"`
	Complexity   *float64 `mapstructure:"complexity"`
}

// SynergyRaw holds optional synergy overrides from the config file.
type SynergyRaw struct {
	DependencyOverlap   *float64 `mapstructure:"dependency_overlap"`
	FrameworkComplement *float64 `mapstructure:"framework_complement"`
	LanguageOverlap     *float64 `mapstructure:"language_overlap"`
	MaxGroupSize        *int     `mapstructure:"max_group_size"`
	MaxCombinations     *int     `mapstructure:"max_combinations"`
}

// InsightRawInput holds the settings of the HTTP insight provider.
type InsightRawInput struct {
	BaseURL       string  `mapstructure:"base_url"`
	Model         string  `mapstructure:"model"`
	APIKey        string  `mapstructure:"api_key"` // Please use env var as this is plaintext
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Timeout       string  `mapstructure:"timeout"`
	MaxRetries    *int    `mapstructure:"max_retries"`
}

// InsightConfig is the validated form of InsightRawInput.
type InsightConfig struct {
	BaseURL       string
	Model         string
	APIKey        string
	RatePerSecond float64
	Timeout       time.Duration
	MaxRetries    int
}

// Config holds the runtime configuration.
// This struct is the "final, validated" config.
type Config struct {
	Workers       int
	ScanTimeout   time.Duration
	CacheTTL      time.Duration
	CacheCapacity int // 0 = unbounded

	// Options are the default analysis options for every request.
	Options schema.AnalysisOptions

	IndexBackend   schema.DatabaseBackend
	IndexDBConnect string // Please use env var as this is plaintext

	Output      schema.OutputMode
	OutputFile  string
	Precision   int
	ResultLimit int
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool

	GraphThreshold float64
	AllowedRoots   []string
	LogLevel       string
	MetricsAddr    string

	SimilarityWeights map[schema.WeightKey]float64
	SynergyWeights    map[schema.WeightKey]float64
	MaxGroupSize      int
	MaxCombinations   int

	Insight InsightConfig
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Scheduling ---
	Workers       int    `mapstructure:"workers"`
	ScanTimeout   string `mapstructure:"scan-timeout"`
	CacheTTL      string `mapstructure:"cache-ttl"`
	CacheCapacity int    `mapstructure:"cache-capacity"`

	// --- Analysis options ---
	Mode        string `mapstructure:"mode"`
	MaxFiles    int    `mapstructure:"max-files"`
	MaxLines    int    `mapstructure:"max-lines"`
	LLM         bool   `mapstructure:"llm"`
	LLMProvider string `mapstructure:"llm-provider"`
	Formats     string `mapstructure:"formats"`
	Tree        string `mapstructure:"tree"` // Empty means the mode default

	// --- Index ---
	IndexBackend   string `mapstructure:"index-backend"`
	IndexDBConnect string `mapstructure:"index-db-connect"`

	// --- Output ---
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Precision  int    `mapstructure:"precision"`
	Limit      int    `mapstructure:"limit"`
	Width      int    `mapstructure:"width"`
	Color      string `mapstructure:"color"`

	// --- Queries and runtime ---
	Threshold    float64 `mapstructure:"threshold"`
	AllowedRoots string  `mapstructure:"allowed-roots"`
	LogLevel     string  `mapstructure:"log-level"`
	MetricsAddr  string  `mapstructure:"metrics-addr"`

	// --- Config file blocks ---
	Similarity SimilarityWeightsRaw `mapstructure:"similarity"`
	Synergy    SynergyRaw           `mapstructure:"synergy"`
	Insight    InsightRawInput      `mapstructure:"insight"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Options = c.Options.Clone()
	clone.AllowedRoots = slices.Clone(c.AllowedRoots)
	clone.SimilarityWeights = maps.Clone(c.SimilarityWeights)
	clone.SynergyWeights = maps.Clone(c.SynergyWeights)
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processDurations(cfg, input); err != nil {
		return err
	}
	if err := processAnalysisOptions(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfig(cfg, input); err != nil {
		return err
	}
	if err := processWeights(cfg, input); err != nil {
		return err
	}
	return processInsight(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("index-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("index-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// NormalizeOptions fills defaults and validates a set of analysis options.
// Failures are *AnalysisError of kind InvalidInput.
func NormalizeOptions(opts schema.AnalysisOptions) (schema.AnalysisOptions, error) {
	out := opts.WithDefaults()
	if _, ok := schema.ValidAnalysisModes[out.Mode]; !ok {
		return out, NewError(schema.InvalidInput, "", fmt.Sprintf("invalid mode '%s'. must be quick, standard, comprehensive", opts.Mode))
	}
	if out.MaxFiles < 1 || out.MaxFiles > schema.MaxFilesLimit {
		return out, NewError(schema.InvalidInput, "", fmt.Sprintf("max files must be between 1 and %d (received %d)", schema.MaxFilesLimit, out.MaxFiles))
	}
	if out.MaxLinesPerFile < 1 || out.MaxLinesPerFile > schema.MaxLinesPerFileLimit {
		return out, NewError(schema.InvalidInput, "", fmt.Sprintf("max lines per file must be between 1 and %d (received %d)", schema.MaxLinesPerFileLimit, out.MaxLinesPerFile))
	}
	for _, f := range out.OutputFormats {
		if _, ok := schema.ValidExportFormats[f]; !ok {
			return out, NewError(schema.InvalidInput, "", fmt.Sprintf("invalid export format '%s'. must be json, markdown, html", f))
		}
	}
	return out, nil
}

// ParseFormats splits a comma-separated list of export formats.
func ParseFormats(s string) []schema.ExportFormat {
	var formats []schema.ExportFormat
	for part := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			formats = append(formats, schema.ExportFormat(strings.ToLower(trimmed)))
		}
	}
	return formats
}

// ProcessSimilarityWeights merges overrides onto the default similarity weights.
func ProcessSimilarityWeights(raw SimilarityWeightsRaw) (map[schema.WeightKey]float64, error) {
	weights := schema.GetDefaultSimilarityWeights()
	overrides := map[schema.WeightKey]*float64{
		schema.WeightLanguages:    raw.Languages,
		schema.WeightFrameworks:   raw.Frameworks,
		schema.WeightDependencies: raw.Dependencies,
		schema.WeightSize:         raw.Size,
		schema.WeightComplexity:   raw.Complexity,
	}
	return applyWeightOverrides("similarity", weights, overrides)
}

// ProcessSynergyWeights merges overrides onto the default synergy weights.
func ProcessSynergyWeights(raw SynergyRaw) (map[schema.WeightKey]float64, error) {
	weights := schema.GetDefaultSynergyWeights()
	overrides := map[schema.WeightKey]*float64{
		schema.WeightDependencyOverlap:   raw.DependencyOverlap,
		schema.WeightFrameworkComplement: raw.FrameworkComplement,
		schema.WeightLanguageOverlap:     raw.LanguageOverlap,
	}
	return applyWeightOverrides("synergy", weights, overrides)
}

// ValidateWeights checks that weights are finite, non-negative and have a positive sum.
func ValidateWeights(name string, weights map[schema.WeightKey]float64) error {
	sum := 0.0
	for key, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%s weight %s must be a non-negative number (received %v)", name, key, w)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("%s weights must have a positive sum", name)
	}
	return nil
}

func applyWeightOverrides(name string, weights map[schema.WeightKey]float64, overrides map[schema.WeightKey]*float64) (map[schema.WeightKey]float64, error) {
	for key, v := range overrides {
		if v != nil {
			weights[key] = *v
		}
	}
	if err := ValidateWeights(name, weights); err != nil {
		return nil, err
	}
	return weights, nil
}

// validateSimpleInputs processes and validates the scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.MetricsAddr = strings.TrimSpace(input.MetricsAddr)

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.CacheCapacity < 0 {
		return fmt.Errorf("cache capacity cannot be negative (received %d)", input.CacheCapacity)
	}
	cfg.CacheCapacity = input.CacheCapacity

	if input.Precision < 1 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 1 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, json, csv, markdown, html, parquet", input.Output)
	}

	if input.Threshold < 0 || input.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0.0 and 1.0 (received %.2f)", input.Threshold)
	}
	cfg.GraphThreshold = input.Threshold

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(input.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	cfg.AllowedRoots = nil
	for part := range strings.SplitSeq(input.AllowedRoots, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		abs, err := filepath.Abs(trimmed)
		if err != nil {
			return fmt.Errorf("invalid allowed root %q: %w", trimmed, err)
		}
		cfg.AllowedRoots = append(cfg.AllowedRoots, filepath.Clean(abs))
	}
	return nil
}

// processDurations parses the scan timeout and cache TTL.
func processDurations(cfg *Config, input *ConfigRawInput) error {
	cfg.ScanTimeout = DefaultScanTimeout
	if input.ScanTimeout != "" {
		d, err := ParseDuration(input.ScanTimeout)
		if err != nil {
			return fmt.Errorf("invalid --scan-timeout: %w", err)
		}
		if d == 0 {
			return fmt.Errorf("scan timeout must be greater than 0")
		}
		cfg.ScanTimeout = d
	}

	cfg.CacheTTL = DefaultCacheTTL
	if input.CacheTTL != "" {
		d, err := ParseDuration(input.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid --cache-ttl: %w", err)
		}
		cfg.CacheTTL = d
	}
	return nil
}

// processAnalysisOptions builds the default analysis options for requests.
func processAnalysisOptions(cfg *Config, input *ConfigRawInput) error {
	mode := schema.AnalysisMode(strings.ToLower(strings.TrimSpace(input.Mode)))
	if mode == "" {
		mode = schema.StandardMode
	}
	opts := schema.DefaultAnalysisOptions(mode)
	opts.Mode = mode
	if input.MaxFiles != 0 {
		opts.MaxFiles = input.MaxFiles
	}
	if input.MaxLines != 0 {
		opts.MaxLinesPerFile = input.MaxLines
	}
	opts.IncludeLLMAnalysis = input.LLM
	if input.LLMProvider != "" {
		opts.LLMProvider = input.LLMProvider
	}
	if formats := ParseFormats(input.Formats); len(formats) > 0 {
		opts.OutputFormats = formats
	}
	if input.Tree != "" {
		tree, err := ParseBoolString(input.Tree)
		if err != nil {
			return fmt.Errorf("invalid --tree value: %w", err)
		}
		opts.IncludeTree = tree
	}

	normalized, err := NormalizeOptions(opts)
	if err != nil {
		return err
	}
	cfg.Options = normalized
	return nil
}

// validateBackendConfig validates the index backend configuration.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.IndexBackend = schema.DatabaseBackend(strings.ToLower(input.IndexBackend))
	if cfg.IndexBackend == "" {
		cfg.IndexBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.IndexBackend]; !ok {
		return fmt.Errorf("invalid index backend '%s'. must be sqlite, mysql, postgresql, none", input.IndexBackend)
	}
	cfg.IndexDBConnect = input.IndexDBConnect
	return ValidateDatabaseConnectionString(cfg.IndexBackend, cfg.IndexDBConnect)
}

// processWeights computes the similarity and synergy weights from defaults plus overrides.
func processWeights(cfg *Config, input *ConfigRawInput) error {
	sim, err := ProcessSimilarityWeights(input.Similarity)
	if err != nil {
		return err
	}
	cfg.SimilarityWeights = sim

	syn, err := ProcessSynergyWeights(input.Synergy)
	if err != nil {
		return err
	}
	cfg.SynergyWeights = syn

	cfg.MaxGroupSize = DefaultMaxGroupSize
	if input.Synergy.MaxGroupSize != nil {
		cfg.MaxGroupSize = *input.Synergy.MaxGroupSize
	}
	if cfg.MaxGroupSize < 2 || cfg.MaxGroupSize > MaxGroupSizeLimit {
		return fmt.Errorf("synergy max_group_size must be between 2 and %d (received %d)", MaxGroupSizeLimit, cfg.MaxGroupSize)
	}

	cfg.MaxCombinations = DefaultMaxCombinations
	if input.Synergy.MaxCombinations != nil {
		cfg.MaxCombinations = *input.Synergy.MaxCombinations
	}
	if cfg.MaxCombinations < 1 {
		return fmt.Errorf("synergy max_combinations must be greater than 0 (received %d)", cfg.MaxCombinations)
	}
	return nil
}

// processInsight validates the HTTP insight provider settings.
func processInsight(cfg *Config, input *ConfigRawInput) error {
	raw := input.Insight
	cfg.Insight = InsightConfig{
		BaseURL:       strings.TrimRight(strings.TrimSpace(raw.BaseURL), "/"),
		Model:         strings.TrimSpace(raw.Model),
		APIKey:        raw.APIKey,
		RatePerSecond: raw.RatePerSecond,
		Timeout:       DefaultInsightTimeout,
		MaxRetries:    DefaultInsightRetries,
	}
	if cfg.Insight.RatePerSecond == 0 {
		cfg.Insight.RatePerSecond = DefaultInsightRate
	}
	if cfg.Insight.RatePerSecond < 0 {
		return fmt.Errorf("insight rate_per_second cannot be negative (received %.2f)", raw.RatePerSecond)
	}
	if raw.Timeout != "" {
		d, err := ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid insight timeout: %w", err)
		}
		cfg.Insight.Timeout = d
	}
	if raw.MaxRetries != nil {
		if *raw.MaxRetries < 0 {
			return fmt.Errorf("insight max_retries cannot be negative (received %d)", *raw.MaxRetries)
		}
		cfg.Insight.MaxRetries = *raw.MaxRetries
	}
	if cfg.Options.IncludeLLMAnalysis && cfg.Options.LLMProvider == "http" && cfg.Insight.BaseURL == "" {
		return fmt.Errorf("insight base_url is required when using the http provider")
	}
	return nil
}
