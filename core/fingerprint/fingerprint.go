// Package fingerprint derives stable cache keys for repository analyses.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// UnknownSignal is the content signal used when the probe cannot read the path.
const UnknownSignal = "unknown"

// probeTimeout bounds the git calls made by the content probe.
const probeTimeout = 5 * time.Second

// Fingerprinter computes content-addressed keys from a path, its content state and the options.
type Fingerprinter struct {
	git contract.GitClient
}

// New creates a Fingerprinter. A nil git client disables the git probe.
func New(git contract.GitClient) *Fingerprinter {
	return &Fingerprinter{git: git}
}

// Fingerprint returns the hex digest of (normalized path, content signal, canonical options).
// It never fails: probe failures degrade to UnknownSignal.
func (f *Fingerprinter) Fingerprint(ctx context.Context, path string, opts schema.AnalysisOptions) string {
	normalized := NormalizePath(path)
	return Digest(normalized, f.ContentSignal(ctx, normalized), opts)
}

// Digest hashes the three fingerprint inputs.
func Digest(normalizedPath, signal string, opts schema.AnalysisOptions) string {
	h := sha256.New()
	h.Write([]byte(normalizedPath))
	h.Write([]byte{0})
	h.Write([]byte(signal))
	h.Write([]byte{0})
	h.Write([]byte(opts.Canonical()))
	return hex.EncodeToString(h.Sum(nil))
}

// ContentSignal probes the repository state. Git repositories use HEAD plus the
// working tree status; anything else uses a shallow stat hash of the top level.
func (f *Fingerprinter) ContentSignal(ctx context.Context, path string) string {
	if f.git != nil && isGitRepo(path) {
		if signal, err := f.gitSignal(ctx, path); err == nil {
			return signal
		}
	}
	signal, err := statSignal(path)
	if err != nil {
		return UnknownSignal
	}
	return signal
}

func (f *Fingerprinter) gitSignal(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	head, err := f.git.HeadRevision(ctx, path)
	if err != nil {
		return "", err
	}
	status, err := f.git.WorktreeStatus(ctx, path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(status)
	return "git:" + head + ":" + hex.EncodeToString(sum[:8]), nil
}

// statSignal hashes name, size, mode and mtime of every top-level entry.
func statSignal(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s|%d|%d\n", info.Mode(), info.Size(), info.ModTime().UnixNano())
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return "", err
		}
		for _, entry := range entries {
			entryInfo, err := entry.Info()
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(h, "%s|%s|%d|%d\n", entry.Name(), entryInfo.Mode(), entryInfo.Size(), entryInfo.ModTime().UnixNano())
		}
	}
	return "stat:" + hex.EncodeToString(h.Sum(nil)[:16]), nil
}

func isGitRepo(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// NormalizePath returns the absolute, cleaned form of path.
func NormalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// RepoID derives the stable repository id from its normalized path, so
// re-analyzing a repository updates the same index record.
func RepoID(path string) string {
	sum := sha256.Sum256([]byte(NormalizePath(path)))
	return hex.EncodeToString(sum[:8])
}
