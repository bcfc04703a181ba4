package contract

import (
	"testing"
	"time"

	"github.com/huangsam/repolens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// validRawInput returns the raw input the CLI produces with default flags.
func validRawInput() *ConfigRawInput {
	return &ConfigRawInput{
		Workers:       4,
		ScanTimeout:   "10m",
		CacheTTL:      "24h",
		CacheCapacity: 512,
		Mode:          "standard",
		IndexBackend:  "sqlite",
		Output:        "text",
		Precision:     2,
		Limit:         25,
		Color:         "yes",
		Threshold:     0.3,
		LogLevel:      "warn",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(in *ConfigRawInput)
		expectError bool
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "invalid mode", mutate: func(in *ConfigRawInput) { in.Mode = "deep" }, expectError: true},
		{name: "invalid limit (zero)", mutate: func(in *ConfigRawInput) { in.Limit = 0 }, expectError: true},
		{name: "invalid limit (too large)", mutate: func(in *ConfigRawInput) { in.Limit = MaxResultLimit + 1 }, expectError: true},
		{name: "invalid workers (zero)", mutate: func(in *ConfigRawInput) { in.Workers = 0 }, expectError: true},
		{name: "invalid precision", mutate: func(in *ConfigRawInput) { in.Precision = 5 }, expectError: true},
		{name: "invalid output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: true},
		{name: "invalid color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: true},
		{name: "negative cache capacity", mutate: func(in *ConfigRawInput) { in.CacheCapacity = -1 }, expectError: true},
		{name: "threshold above one", mutate: func(in *ConfigRawInput) { in.Threshold = 1.5 }, expectError: true},
		{name: "invalid log level", mutate: func(in *ConfigRawInput) { in.LogLevel = "loud" }, expectError: true},
		{name: "zero scan timeout", mutate: func(in *ConfigRawInput) { in.ScanTimeout = "0s" }, expectError: true},
		{name: "bad cache ttl", mutate: func(in *ConfigRawInput) { in.CacheTTL = "forever" }, expectError: true},
		{name: "invalid format", mutate: func(in *ConfigRawInput) { in.Formats = "json,pdf" }, expectError: true},
		{name: "invalid tree", mutate: func(in *ConfigRawInput) { in.Tree = "sometimes" }, expectError: true},
		{name: "max files over limit", mutate: func(in *ConfigRawInput) { in.MaxFiles = schema.MaxFilesLimit + 1 }, expectError: true},
		{name: "invalid backend", mutate: func(in *ConfigRawInput) { in.IndexBackend = "redis" }, expectError: true},
		{name: "mysql without dsn", mutate: func(in *ConfigRawInput) { in.IndexBackend = "mysql" }, expectError: true},
		{
			name: "postgres with dsn",
			mutate: func(in *ConfigRawInput) {
				in.IndexBackend = "postgresql"
				in.IndexDBConnect = "host=localhost port=5432 dbname=repolens"
			},
		},
		{name: "negative weight", mutate: func(in *ConfigRawInput) { in.Similarity.Size = ptr(-0.1) }, expectError: true},
		{
			name: "all synergy weights zero",
			mutate: func(in *ConfigRawInput) {
				in.Synergy = SynergyRaw{DependencyOverlap: ptr(0.0), FrameworkComplement: ptr(0.0), LanguageOverlap: ptr(0.0)}
			},
			expectError: true,
		},
		{name: "group size too small", mutate: func(in *ConfigRawInput) { in.Synergy.MaxGroupSize = ptr(1) }, expectError: true},
		{
			name: "http provider without base url",
			mutate: func(in *ConfigRawInput) {
				in.LLM = true
				in.LLMProvider = "http"
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validRawInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidateResolvesValues(t *testing.T) {
	input := validRawInput()
	input.Mode = "QUICK"
	input.ScanTimeout = "2 hours"
	input.Formats = "html, JSON"
	input.Tree = "yes"
	input.AllowedRoots = "/srv/repos, ,/tmp"
	input.Similarity.Languages = ptr(0.5)
	input.Insight = InsightRawInput{BaseURL: "http://localhost:11434/v1/", RatePerSecond: 2, MaxRetries: ptr(0)}

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, schema.QuickMode, cfg.Options.Mode)
	assert.Equal(t, schema.DefaultAnalysisOptions(schema.QuickMode).MaxFiles, cfg.Options.MaxFiles)
	assert.True(t, cfg.Options.IncludeTree)
	assert.Equal(t, []schema.ExportFormat{schema.HTMLFormat, schema.JSONFormat}, cfg.Options.OutputFormats)
	assert.Equal(t, 2*time.Hour, cfg.ScanTimeout)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, []string{"/srv/repos", "/tmp"}, cfg.AllowedRoots)
	assert.InDelta(t, 0.5, cfg.SimilarityWeights[schema.WeightLanguages], 1e-9)
	assert.InDelta(t, 0.25, cfg.SimilarityWeights[schema.WeightFrameworks], 1e-9)
	assert.Equal(t, schema.GetDefaultSynergyWeights(), cfg.SynergyWeights)
	assert.Equal(t, DefaultMaxGroupSize, cfg.MaxGroupSize)
	assert.Equal(t, DefaultMaxCombinations, cfg.MaxCombinations)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Insight.BaseURL)
	assert.Equal(t, 0, cfg.Insight.MaxRetries)
	assert.Equal(t, DefaultInsightTimeout, cfg.Insight.Timeout)
	assert.True(t, cfg.UseColors)
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{
		Options:           schema.DefaultAnalysisOptions(schema.StandardMode),
		AllowedRoots:      []string{"/a"},
		SimilarityWeights: schema.GetDefaultSimilarityWeights(),
		SynergyWeights:    schema.GetDefaultSynergyWeights(),
	}
	clone := cfg.Clone()
	clone.AllowedRoots[0] = "/b"
	clone.SimilarityWeights[schema.WeightSize] = 0.9
	clone.Options.OutputFormats[0] = schema.HTMLFormat

	assert.Equal(t, "/a", cfg.AllowedRoots[0])
	assert.InDelta(t, 0.10, cfg.SimilarityWeights[schema.WeightSize], 1e-9)
	assert.Equal(t, schema.JSONFormat, cfg.Options.OutputFormats[0])
}

func TestNormalizeOptions(t *testing.T) {
	t.Run("defaults are filled", func(t *testing.T) {
		opts, err := NormalizeOptions(schema.AnalysisOptions{})
		require.NoError(t, err)
		defaults := schema.DefaultAnalysisOptions(schema.StandardMode)
		assert.Equal(t, defaults.Mode, opts.Mode)
		assert.Equal(t, defaults.MaxFiles, opts.MaxFiles)
		assert.Equal(t, defaults.MaxLinesPerFile, opts.MaxLinesPerFile)
		assert.Equal(t, defaults.OutputFormats, opts.OutputFormats)
		assert.Equal(t, schema.NoneProvider, opts.LLMProvider)
	})

	tests := []struct {
		name string
		opts schema.AnalysisOptions
	}{
		{name: "unknown mode", opts: schema.AnalysisOptions{Mode: "turbo"}},
		{name: "negative max files", opts: schema.AnalysisOptions{MaxFiles: -1}},
		{name: "max lines over limit", opts: schema.AnalysisOptions{MaxLinesPerFile: schema.MaxLinesPerFileLimit + 1}},
		{name: "unknown format", opts: schema.AnalysisOptions{OutputFormats: []schema.ExportFormat{"pdf"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeOptions(tt.opts)
			require.Error(t, err)
			assert.True(t, IsKind(err, schema.InvalidInput))
		})
	}
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{"sqlite ignores conn", schema.SQLiteBackend, "", false},
		{"none ignores conn", schema.NoneBackend, "", false},
		{"mysql ok", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/repolens", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/repolens", true},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"postgres ok", schema.PostgreSQLBackend, "host=localhost dbname=repolens", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	assert.Nil(t, ParseFormats(""))
	assert.Equal(t, []schema.ExportFormat{"json", "html"}, ParseFormats(" JSON ,, html"))
}
