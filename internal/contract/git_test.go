package contract

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfGitNotAvailable skips the test if git binary is not found in PATH
func skipIfGitNotAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git binary not found in PATH: %v", err)
	}
}

// initGitRepo creates a repository with a single commit in a temp directory.
func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('hi')\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "init")
	return dir
}

// TestMockGitClient_Run ensures the mock records and returns programmed values.
func TestMockGitClient_Run(t *testing.T) {
	mockClient := new(MockGitClient)
	ctx := context.Background()
	expectedOutput := []byte("a1b2c3d commit message")
	expectedError := errors.New("mocked git error")

	mockClient.
		On("Run", ctx, "/path/to/repo", "log", "-1", "--oneline").
		Return(expectedOutput, expectedError).
		Once()

	out, err := mockClient.Run(ctx, "/path/to/repo", "log", "-1", "--oneline")

	assert.Equal(t, expectedOutput, out)
	assert.Equal(t, expectedError, err)
	mockClient.AssertExpectations(t)
}

func TestLocalGitClient_Run(t *testing.T) {
	skipIfGitNotAvailable(t)

	client := NewLocalGitClient()
	ctx := context.Background()
	repo := initGitRepo(t)

	tests := []struct {
		name     string
		repoPath string
		args     []string
	}{
		{name: "invalid repo path", repoPath: "/nonexistent/path", args: []string{"status"}},
		{name: "invalid git command", repoPath: repo, args: []string{"invalid-command"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Run(ctx, tt.repoPath, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestLocalGitClient_HeadRevision(t *testing.T) {
	skipIfGitNotAvailable(t)

	client := NewLocalGitClient()
	ctx := context.Background()

	hash, err := client.HeadRevision(ctx, initGitRepo(t))
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	_, err = client.HeadRevision(ctx, t.TempDir())
	assert.Error(t, err, "a plain directory has no HEAD")
}

func TestLocalGitClient_WorktreeStatus(t *testing.T) {
	skipIfGitNotAvailable(t)

	client := NewLocalGitClient()
	ctx := context.Background()
	repo := initGitRepo(t)

	clean, err := client.WorktreeStatus(ctx, repo)
	require.NoError(t, err)
	assert.Empty(t, clean)

	require.NoError(t, os.WriteFile(filepath.Join(repo, "new.py"), []byte("x = 1\n"), 0o644))
	dirty, err := client.WorktreeStatus(ctx, repo)
	require.NoError(t, err)
	assert.Contains(t, string(dirty), "new.py")
}
