package pathcheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	repo := filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0o644))

	v := New(nil)

	t.Run("valid git repository", func(t *testing.T) {
		info, err := v.Validate(context.Background(), repo)
		require.NoError(t, err)
		expected, err := filepath.EvalSymlinks(repo)
		require.NoError(t, err)
		assert.Equal(t, expected, info.Path)
		assert.Equal(t, "repo", info.Name)
		assert.True(t, info.IsGitRepo)
		assert.False(t, info.ModTime.IsZero())
	})

	tests := []struct {
		name string
		path string
		kind schema.ErrorKind
	}{
		{"empty", "  ", schema.PathInvalid},
		{"missing", filepath.Join(dir, "missing"), schema.PathNotFound},
		{"file", file, schema.PathInvalid},
		{"nul byte", "bad\x00path", schema.PathInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tt.path)
			require.Error(t, err)
			assert.True(t, contract.IsKind(err, tt.kind), "got %v", err)
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := v.Validate(ctx, repo)
		assert.True(t, contract.IsKind(err, schema.ScanCancelled))
	})
}

func TestValidateSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	info, err := New(nil).Validate(context.Background(), link)
	require.NoError(t, err)
	expected, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, expected, info.Path)
	assert.False(t, info.IsGitRepo)
}

func TestValidateAllowedRoots(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(inside, 0o755))
	outside := t.TempDir()
	sibling := root + "-sibling"
	require.NoError(t, os.Mkdir(sibling, 0o755))
	t.Cleanup(func() { _ = os.RemoveAll(sibling) })

	v := New([]string{root, ""})

	_, err := v.Validate(context.Background(), root)
	assert.NoError(t, err)
	_, err = v.Validate(context.Background(), inside)
	assert.NoError(t, err)

	_, err = v.Validate(context.Background(), outside)
	assert.True(t, contract.IsKind(err, schema.PathInvalid))
	_, err = v.Validate(context.Background(), sibling)
	assert.True(t, contract.IsKind(err, schema.PathInvalid), "prefix match must not escape the root")
}

func TestValidatePermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(dir, 0o000))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	_, err := New(nil).Validate(context.Background(), dir)
	assert.True(t, contract.IsKind(err, schema.PermissionDenied), "got %v", err)
}
