package schema

import "time"

// RepositoryRecord represents a row from the repolens_repositories table.
type RepositoryRecord struct {
	RepoID      string
	RepoName    string
	RepoPath    string
	Fingerprint string
	Payload     []byte // JSON-encoded RepositoryAnalysis
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FingerprintRecord represents a row from the repolens_fingerprints table.
type FingerprintRecord struct {
	Fingerprint string
	RepoID      string
	CommittedAt time.Time
}
