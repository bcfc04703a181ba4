package schema

// Custom string types for type safety.
type (
	// AnalysisMode represents how deep a repository scan goes.
	AnalysisMode string

	// ExportFormat represents a rendering format for analysis exports.
	ExportFormat string

	// OutputMode represents the format of CLI output.
	OutputMode string

	// MemberStatus represents the status of a single batch member.
	MemberStatus string

	// JobState represents the lifecycle state of a scheduled analysis job.
	JobState string

	// BatchState represents the lifecycle state of a whole batch.
	BatchState string

	// ErrorKind classifies analysis failures.
	ErrorKind string

	// DatabaseBackend represents the database backend for the durable index.
	DatabaseBackend string

	// WeightKey names one component of a weighted score.
	WeightKey string
)

// All analysis modes supported.
const (
	QuickMode         AnalysisMode = "quick"
	StandardMode      AnalysisMode = "standard" // default
	ComprehensiveMode AnalysisMode = "comprehensive"
)

// All export formats supported.
const (
	JSONFormat     ExportFormat = "json"
	MarkdownFormat ExportFormat = "markdown"
	HTMLFormat     ExportFormat = "html"
)

// All output modes supported.
const (
	TextOut     OutputMode = "text" // default
	JSONOut     OutputMode = "json"
	CSVOut      OutputMode = "csv"
	MarkdownOut OutputMode = "markdown"
	HTMLOut     OutputMode = "html"
	ParquetOut  OutputMode = "parquet"
)

// All batch member statuses.
const (
	PendingStatus    MemberStatus = "pending"
	InProgressStatus MemberStatus = "in-progress"
	CompletedStatus  MemberStatus = "completed"
	FailedStatus     MemberStatus = "failed"
)

// All job states.
const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// All batch states.
const (
	BatchRunning  BatchState = "running"
	BatchFinished BatchState = "finished"
)

// All error kinds.
const (
	InvalidInput             ErrorKind = "InvalidInput"
	PathInvalid              ErrorKind = "PathInvalid"
	PathNotFound             ErrorKind = "PathNotFound"
	PermissionDenied         ErrorKind = "PermissionDenied"
	ScanTimeout              ErrorKind = "ScanTimeout"
	ScanCancelled            ErrorKind = "ScanCancelled"
	ScanFailed               ErrorKind = "ScanFailed"
	CacheReservationConflict ErrorKind = "CacheReservationConflict"
	IndexInconsistency       ErrorKind = "IndexInconsistency"
	StorageFailed            ErrorKind = "StorageFailed"
	RepositoryNotFound       ErrorKind = "RepositoryNotFound"
)

// All index backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Similarity weight keys.
const (
	WeightLanguages    WeightKey = "languages"
	WeightFrameworks   WeightKey = "frameworks"
	WeightDependencies WeightKey = "dependencies"
	WeightSize         WeightKey = "size"
	WeightComplexity   WeightKey = "complexity"
)

// Synergy weight keys.
const (
	WeightDependencyOverlap   WeightKey = "dependency_overlap"
	WeightFrameworkComplement WeightKey = "framework_complement"
	WeightLanguageOverlap     WeightKey = "language_overlap"
)

// NoneProvider disables LLM insight generation.
const NoneProvider = "none"

// ValidAnalysisModes lists all valid analysis modes.
var ValidAnalysisModes = map[AnalysisMode]struct{}{
	QuickMode:         {},
	StandardMode:      {},
	ComprehensiveMode: {},
}

// ValidExportFormats lists all valid export formats.
var ValidExportFormats = map[ExportFormat]struct{}{
	JSONFormat:     {},
	MarkdownFormat: {},
	HTMLFormat:     {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut:     {},
	JSONOut:     {},
	CSVOut:      {},
	MarkdownOut: {},
	HTMLOut:     {},
	ParquetOut:  {},
}

// ValidDatabaseBackends lists all valid index backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// SimilarityWeightKeys is the stable iteration order for similarity weights.
var SimilarityWeightKeys = []WeightKey{
	WeightLanguages, WeightFrameworks, WeightDependencies, WeightSize, WeightComplexity,
}

// SynergyWeightKeys is the stable iteration order for synergy weights.
var SynergyWeightKeys = []WeightKey{
	WeightDependencyOverlap, WeightFrameworkComplement, WeightLanguageOverlap,
}

// GetDefaultSimilarityWeights returns the default weights for pairwise similarity.
func GetDefaultSimilarityWeights() map[WeightKey]float64 {
	return map[WeightKey]float64{
		WeightLanguages:    0.30,
		WeightFrameworks:   0.25,
		WeightDependencies: 0.25,
		WeightSize:         0.10,
		WeightComplexity:   0.10,
	}
}

// GetDefaultSynergyWeights returns the default weights for combination synergy.
func GetDefaultSynergyWeights() map[WeightKey]float64 {
	return map[WeightKey]float64{
		WeightDependencyOverlap:   0.5,
		WeightFrameworkComplement: 0.3,
		WeightLanguageOverlap:     0.2,
	}
}

// modeLimits holds per-mode scan ceilings.
type modeLimits struct {
	maxFiles        int
	maxLinesPerFile int
	includeTree     bool
}

var defaultModeLimits = map[AnalysisMode]modeLimits{
	QuickMode:         {maxFiles: 500, maxLinesPerFile: 500, includeTree: false},
	StandardMode:      {maxFiles: 2000, maxLinesPerFile: 2000, includeTree: true},
	ComprehensiveMode: {maxFiles: 10000, maxLinesPerFile: 10000, includeTree: true},
}

// Upper bounds accepted for scan ceilings.
const (
	MaxFilesLimit        = 100000
	MaxLinesPerFileLimit = 100000
)
