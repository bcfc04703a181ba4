package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/repolens/core"
	"github.com/huangsam/repolens/internal/contract"
	mcp_internal "github.com/huangsam/repolens/internal/mcp"
	"github.com/huangsam/repolens/schema"
)

// fakeAnalyzer records the last call and answers from an in-memory index.
type fakeAnalyzer struct {
	repos       map[string]*schema.RepositoryAnalysis
	lastOpts    schema.AnalysisOptions
	lastQuery   schema.SearchQuery
	lastLimit   int
	lastScore   float64
	lastThresh  float64
	lastGroup   int
	lastConcurr int
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{repos: map[string]*schema.RepositoryAnalysis{
		"r1": {ID: "r1", Name: "alpha", Path: "/src/alpha", Languages: []string{"Go"}},
		"r2": {ID: "r2", Name: "beta", Path: "/src/beta", Languages: []string{"Python"}},
	}}
}

func (f *fakeAnalyzer) AnalyzeOne(_ context.Context, path string, opts schema.AnalysisOptions) (*schema.RepositoryAnalysis, error) {
	f.lastOpts = opts
	if path == "/missing" {
		return nil, contract.NewError(schema.PathNotFound, path, "path does not exist")
	}
	return &schema.RepositoryAnalysis{ID: "new", Name: "new", Path: path}, nil
}

func (f *fakeAnalyzer) AnalyzeBatch(_ context.Context, paths []string, opts schema.AnalysisOptions, concurrency int, _ core.ProgressObserver) (*schema.BatchJob, error) {
	f.lastOpts = opts
	f.lastConcurr = concurrency
	job := &schema.BatchJob{BatchID: "b1"}
	for i, p := range paths {
		job.Members = append(job.Members, schema.BatchMember{Index: i, Path: p, Status: schema.CompletedStatus})
	}
	return job, nil
}

func (f *fakeAnalyzer) SearchRepositories(q schema.SearchQuery) []*schema.RepositoryAnalysis {
	f.lastQuery = q
	return []*schema.RepositoryAnalysis{f.repos["r1"]}
}

func (f *fakeAnalyzer) FindSimilar(id string, limit int, minScore float64) (schema.SimilarityReport, error) {
	f.lastLimit, f.lastScore = limit, minScore
	if _, ok := f.repos[id]; !ok {
		return schema.SimilarityReport{}, contract.NewError(schema.RepositoryNotFound, "", "no repository with id "+id)
	}
	return schema.SimilarityReport{RepoID: id}, nil
}

func (f *fakeAnalyzer) SuggestCombinations(_ []string, maxGroupSize int) schema.CombinationReport {
	f.lastGroup = maxGroupSize
	return schema.CombinationReport{}
}

func (f *fakeAnalyzer) GetRelationshipGraph(_ context.Context, _ []string, threshold float64) (schema.RelationshipGraph, error) {
	f.lastThresh = threshold
	return schema.RelationshipGraph{}, nil
}

func (f *fakeAnalyzer) GetAllIndexed() []*schema.RepositoryAnalysis {
	return []*schema.RepositoryAnalysis{f.repos["r1"], f.repos["r2"]}
}

func (f *fakeAnalyzer) GetByID(id string) (*schema.RepositoryAnalysis, error) {
	if r, ok := f.repos[id]; ok {
		return r, nil
	}
	return nil, contract.NewError(schema.RepositoryNotFound, "", "no repository with id "+id)
}

func newTestServer(t *testing.T) (*fakeAnalyzer, func(name string, args map[string]any) *mcp.CallToolResult) {
	t.Helper()
	baseCfg := &contract.Config{
		Options:      schema.DefaultAnalysisOptions(schema.StandardMode),
		ResultLimit:  25,
		MaxGroupSize: 3,
	}
	fa := newFakeAnalyzer()
	s := mcp_internal.NewMCPServer(baseCfg, fa)

	call := func(name string, args map[string]any) *mcp.CallToolResult {
		tool := s.GetTool(name)
		require.NotNil(t, tool, "Tool %s should exist", name)
		req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
		res, err := tool.Handler(context.Background(), req)
		require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
		require.NotNil(t, res)
		return res
	}
	return fa, call
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestMCPServer_RegistersTools(t *testing.T) {
	s := mcp_internal.NewMCPServer(&contract.Config{}, newFakeAnalyzer())
	for _, name := range []string{
		"analyze_repository", "analyze_batch", "search_repositories", "find_similar",
		"suggest_combinations", "get_relationship_graph", "list_repositories", "get_repository",
	} {
		assert.NotNil(t, s.GetTool(name), "Tool %s should exist", name)
	}
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	_, call := newTestServer(t)

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		contains string
	}{
		{"analyze missing path", "analyze_repository", map[string]any{}, "path"},
		{"batch missing paths", "analyze_batch", map[string]any{}, "paths"},
		{"batch empty paths", "analyze_batch", map[string]any{"paths": []any{}}, "at least one"},
		{"similar missing id", "find_similar", map[string]any{}, "repo_id"},
		{"get missing id", "get_repository", map[string]any{}, "repo_id"},
		{"search invalid since", "search_repositories", map[string]any{"since": "yesterday-ish"}, "invalid search parameters"},
		{"search inverted range", "search_repositories", map[string]any{"since": "2024-02-01", "until": "2024-01-01"}, "until must not be before since"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(t, res), tt.contains)
		})
	}
}

func TestMCPServerHandlers_AnalysisErrors(t *testing.T) {
	_, call := newTestServer(t)

	res := call("analyze_repository", map[string]any{"path": "/missing"})
	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "analysis failed")
	assert.Contains(t, text, "PathNotFound")
	assert.Contains(t, text, "\n- ")

	res = call("get_repository", map[string]any{"repo_id": "nope"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "RepositoryNotFound")

	res = call("find_similar", map[string]any{"repo_id": "nope"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "RepositoryNotFound")
}

func TestMCPServerHandlers_AnalyzeOptions(t *testing.T) {
	fa, call := newTestServer(t)

	res := call("analyze_repository", map[string]any{
		"path":         "/src/new",
		"mode":         "quick",
		"include_llm":  true,
		"llm_provider": "summary",
		"include_tree": true,
	})
	require.False(t, res.IsError)

	var got schema.RepositoryAnalysis
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, "/src/new", got.Path)

	quick := schema.DefaultAnalysisOptions(schema.QuickMode)
	assert.Equal(t, schema.QuickMode, fa.lastOpts.Mode)
	assert.Equal(t, quick.MaxFiles, fa.lastOpts.MaxFiles)
	assert.True(t, fa.lastOpts.IncludeLLMAnalysis)
	assert.Equal(t, "summary", fa.lastOpts.LLMProvider)
	assert.True(t, fa.lastOpts.IncludeTree)
}

func TestMCPServerHandlers_Batch(t *testing.T) {
	fa, call := newTestServer(t)

	res := call("analyze_batch", map[string]any{
		"paths":       []any{"/src/a", "/src/b"},
		"concurrency": 2.0,
	})
	require.False(t, res.IsError)

	var job schema.BatchJob
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &job))
	assert.Equal(t, "b1", job.BatchID)
	assert.Len(t, job.Members, 2)
	assert.Equal(t, 2, fa.lastConcurr)
	assert.Equal(t, schema.StandardMode, fa.lastOpts.Mode)
}

func TestMCPServerHandlers_Search(t *testing.T) {
	fa, call := newTestServer(t)

	res := call("search_repositories", map[string]any{
		"languages": []any{"Go"},
		"keywords":  []any{"alpha"},
		"since":     "2024-01-01",
		"limit":     5.0,
	})
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"repo_id": "r1"`)

	assert.Equal(t, []string{"Go"}, fa.lastQuery.Languages)
	assert.Equal(t, []string{"alpha"}, fa.lastQuery.Keywords)
	assert.Equal(t, 5, fa.lastQuery.Limit)
	require.NotNil(t, fa.lastQuery.DateRange)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), fa.lastQuery.DateRange.From)
	assert.False(t, fa.lastQuery.DateRange.To.IsZero())

	call("search_repositories", map[string]any{})
	assert.Nil(t, fa.lastQuery.DateRange)
	assert.Equal(t, 25, fa.lastQuery.Limit)
}

func TestMCPServerHandlers_Defaults(t *testing.T) {
	fa, call := newTestServer(t)

	res := call("find_similar", map[string]any{"repo_id": "r1", "min_score": 0.4})
	require.False(t, res.IsError)
	assert.Equal(t, 25, fa.lastLimit)
	assert.InDelta(t, 0.4, fa.lastScore, 1e-9)

	call("suggest_combinations", map[string]any{})
	assert.Equal(t, 3, fa.lastGroup)

	call("get_relationship_graph", map[string]any{})
	assert.InDelta(t, -1.0, fa.lastThresh, 1e-9)
	call("get_relationship_graph", map[string]any{"threshold": 0.6})
	assert.InDelta(t, 0.6, fa.lastThresh, 1e-9)
}

func TestMCPServerHandlers_ListAndGet(t *testing.T) {
	_, call := newTestServer(t)

	res := call("list_repositories", map[string]any{"limit": 1.0})
	require.False(t, res.IsError)
	var summaries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "r1", summaries[0]["repo_id"])

	res = call("get_repository", map[string]any{"repo_id": "r2"})
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"beta"`)
}
