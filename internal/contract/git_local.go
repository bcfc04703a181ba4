package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// LocalGitClient probes repositories with the git binary on PATH.
type LocalGitClient struct {
	binary string
}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient returns a client that shells out to "git".
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{binary: "git"}
}

// Run executes git inside repoPath and returns stdout.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary, append([]string{"-C", repoPath}, args...)...)
	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, fmt.Errorf("git %s in %q: %s", strings.Join(args, " "), repoPath, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return nil, fmt.Errorf("git unavailable: %w", err)
}

// HeadRevision returns the commit hash HEAD points to.
func (c *LocalGitClient) HeadRevision(ctx context.Context, repoPath string) (string, error) {
	out, err := c.Run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// WorktreeStatus returns porcelain status output. Untracked files count, so
// adding a file changes the result.
func (c *LocalGitClient) WorktreeStatus(ctx context.Context, repoPath string) ([]byte, error) {
	return c.Run(ctx, repoPath, "status", "--porcelain", "--untracked-files=normal")
}
