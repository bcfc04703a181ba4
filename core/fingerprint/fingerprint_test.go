package fingerprint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestFingerprintStableForUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "import flask\n")
	fp := New(nil)
	opts := schema.DefaultAnalysisOptions(schema.StandardMode)
	ctx := context.Background()

	first := fp.Fingerprint(ctx, dir, opts)
	second := fp.Fingerprint(ctx, dir, opts)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	t.Run("equivalent paths agree", func(t *testing.T) {
		assert.Equal(t, first, fp.Fingerprint(ctx, filepath.Join(dir, "."), opts))
		assert.Equal(t, first, fp.Fingerprint(ctx, dir+string(filepath.Separator), opts))
	})
}

func TestFingerprintChangesWithOptions(t *testing.T) {
	dir := t.TempDir()
	fp := New(nil)
	ctx := context.Background()
	base := schema.DefaultAnalysisOptions(schema.StandardMode)
	baseFP := fp.Fingerprint(ctx, dir, base)

	changed := base.Clone()
	changed.IncludeLLMAnalysis = true
	assert.NotEqual(t, baseFP, fp.Fingerprint(ctx, dir, changed))

	changed = base.Clone()
	changed.MaxFiles++
	assert.NotEqual(t, baseFP, fp.Fingerprint(ctx, dir, changed))
}

func TestFingerprintChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "print('a')\n")
	fp := New(nil)
	ctx := context.Background()
	opts := schema.DefaultAnalysisOptions(schema.QuickMode)

	before := fp.Fingerprint(ctx, dir, opts)
	writeFile(t, dir, "utils.py", "def helper(): pass\n")
	after := fp.Fingerprint(ctx, dir, opts)
	assert.NotEqual(t, before, after)
}

func TestFingerprintMissingPathDegrades(t *testing.T) {
	fp := New(nil)
	ctx := context.Background()
	missing := filepath.Join(t.TempDir(), "nope")
	opts := schema.DefaultAnalysisOptions(schema.StandardMode)

	assert.Equal(t, UnknownSignal, fp.ContentSignal(ctx, missing))
	assert.Equal(t, fp.Fingerprint(ctx, missing, opts), fp.Fingerprint(ctx, missing, opts))
}

func TestFingerprintUsesGitProbe(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	ctx := context.Background()
	opts := schema.DefaultAnalysisOptions(schema.StandardMode)

	git := new(contract.MockGitClient)
	git.On("HeadRevision", mock.Anything, dir).Return("aaaa", nil).Once()
	git.On("WorktreeStatus", mock.Anything, dir).Return([]byte(""), nil)
	git.On("HeadRevision", mock.Anything, dir).Return("bbbb", nil).Once()

	fp := New(git)
	signal := fp.ContentSignal(ctx, dir)
	assert.Contains(t, signal, "git:aaaa:")
	assert.NotEqual(t, Digest(dir, signal, opts), fp.Fingerprint(ctx, dir, opts), "new HEAD changes the key")
	git.AssertExpectations(t)
}

func TestFingerprintGitFailureFallsBackToStat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	git := new(contract.MockGitClient)
	git.On("HeadRevision", mock.Anything, dir).Return("", errors.New("not a repository"))

	signal := New(git).ContentSignal(context.Background(), dir)
	assert.Contains(t, signal, "stat:")
}

func TestRepoID(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, RepoID(dir), RepoID(filepath.Join(dir, "sub", "..")))
	assert.NotEqual(t, RepoID(dir), RepoID(filepath.Join(dir, "other")))
	assert.Len(t, RepoID(dir), 16)
}

func TestStatSignalSeesMtime(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x")
	before, err := statSignal(dir)
	require.NoError(t, err)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "a.txt"), future, future))
	after, err := statSignal(dir)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}
