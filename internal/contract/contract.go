// Package contract provides interfaces and shared utilities for repolens' internal architecture.
package contract

import (
	"context"
	"io"
	"time"

	"github.com/huangsam/repolens/schema"
)

// Scanner extracts structural and dependency metadata from a repository.
// Implementations must stop promptly when ctx is cancelled and be safe to retry.
type Scanner interface {
	Scan(ctx context.Context, path string, opts schema.AnalysisOptions) (*schema.RepositoryAnalysis, error)
}

// PathInfo is the normalized result of validating a repository path.
type PathInfo struct {
	Path      string    // Absolute, cleaned, symlinks resolved
	Name      string    // Base name of Path
	IsGitRepo bool      // A .git entry exists at Path
	ModTime   time.Time // Modification time of Path
}

// PathValidator checks that a path can be analyzed before any job is enqueued.
// A non-nil error is always an *AnalysisError of kind PathInvalid, PathNotFound or PermissionDenied.
type PathValidator interface {
	Validate(ctx context.Context, path string) (PathInfo, error)
}

// InsightProvider produces the optional narrative for an analysis.
// Callers degrade to Insights{Available: false} on any error.
type InsightProvider interface {
	Name() string
	Generate(ctx context.Context, analysis *schema.RepositoryAnalysis) (*schema.Insights, error)
}

// ExportRenderer renders an analysis or a batch report into one export format.
type ExportRenderer interface {
	Render(w io.Writer, format schema.ExportFormat, payload any) error
}

// GitClient reads the repository state that feeds content fingerprints.
type GitClient interface {
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)
	HeadRevision(ctx context.Context, repoPath string) (string, error)
	WorktreeStatus(ctx context.Context, repoPath string) ([]byte, error)
}

// IndexStore defines the durable layout of the repository index.
// Save writes the repository row and its fingerprint row atomically.
type IndexStore interface {
	Save(record schema.RepositoryRecord) error
	Delete(repoID string) error
	LoadAll() ([]schema.RepositoryRecord, error)
	LoadFingerprints() ([]schema.FingerprintRecord, error)
	Clear() error
	GetStatus() (schema.IndexStatus, error)
	Close() error
}
