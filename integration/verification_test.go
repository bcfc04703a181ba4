//go:build integration

// Package integration contains integration tests for repolens.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
// Database backends: go test -tags database ./integration
package integration

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRepolensEndToEnd drives the CLI against a SQLite index in a temp dir.
func TestRepolensEndToEnd(t *testing.T) {
	flaskA, flaskB, goSvc := writeFixtureRepos(t)
	env := map[string]string{
		"REPOLENS_INDEX_BACKEND":    "sqlite",
		"REPOLENS_INDEX_DB_CONNECT": filepath.Join(t.TempDir(), "index.db"),
	}

	// Batch with one missing path: the batch finishes and reports the failure.
	out, err := runRepolens(t, env, "batch", flaskA, flaskB, goSvc, filepath.Join(t.TempDir(), "missing"), "--output", "json", "--quiet")
	require.NoError(t, err)
	var report batchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Members, 4)
	assert.NotEmpty(t, report.BatchID)
	for _, m := range report.Members[:3] {
		assert.Equal(t, "completed", m.Status, m.Path)
		assert.NotEmpty(t, m.RepoID)
	}
	assert.Equal(t, "failed", report.Members[3].Status)

	// The index survives the process.
	out, err = runRepolens(t, env, "list", "--output", "json")
	require.NoError(t, err)
	var repos []listedRepo
	require.NoError(t, json.Unmarshal([]byte(out), &repos))
	assert.Len(t, repos, 3)

	// Re-analysis of an unchanged repository keeps its id.
	out, err = runRepolens(t, env, "analyze", flaskA, "--output", "json")
	require.NoError(t, err)
	var analysis struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	assert.Equal(t, report.Members[0].RepoID, analysis.ID)
	assert.Equal(t, "flask-a", analysis.Name)

	// Search by framework.
	out, err = runRepolens(t, env, "search", "--framework", "flask", "--output", "json")
	require.NoError(t, err)
	repos = nil
	require.NoError(t, json.Unmarshal([]byte(out), &repos))
	assert.Len(t, repos, 2)

	// The two flask apps are each other's best match.
	out, err = runRepolens(t, env, "similar", analysis.ID, "--output", "json")
	require.NoError(t, err)
	var similar struct {
		Matches []struct {
			RepoID string  `json:"repo_id"`
			Score  float64 `json:"score"`
		} `json:"matches"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &similar))
	require.NotEmpty(t, similar.Matches)
	assert.Equal(t, report.Members[1].RepoID, similar.Matches[0].RepoID)

	_, err = runRepolens(t, env, "graph", "--output", "json")
	require.NoError(t, err)
	_, err = runRepolens(t, env, "combos", "--output", "json")
	require.NoError(t, err)
	_, err = runRepolens(t, env, "index", "status")
	require.NoError(t, err)

	// Remove drops the repository from the durable index.
	_, err = runRepolens(t, env, "remove", report.Members[2].RepoID)
	require.NoError(t, err)
	out, err = runRepolens(t, env, "list", "--output", "json")
	require.NoError(t, err)
	repos = nil
	require.NoError(t, json.Unmarshal([]byte(out), &repos))
	assert.Len(t, repos, 2)

	// Unknown ids fail with a non-zero exit.
	_, err = runRepolens(t, env, "show", "does-not-exist")
	assert.Error(t, err)
}

// TestRepolensMigrateSQLite runs migrations up and fully down on a fresh file.
func TestRepolensMigrateSQLite(t *testing.T) {
	env := map[string]string{
		"REPOLENS_INDEX_BACKEND":    "sqlite",
		"REPOLENS_INDEX_DB_CONNECT": filepath.Join(t.TempDir(), "migrate.db"),
	}
	_, err := runRepolens(t, env, "index", "migrate")
	require.NoError(t, err)
	_, err = runRepolens(t, env, "index", "migrate", "--target-version", "0")
	require.NoError(t, err)
	_, err = runRepolens(t, env, "index", "clear")
	require.NoError(t, err)
}
