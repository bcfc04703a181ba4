package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func sampleAnalysis() *schema.RepositoryAnalysis {
	return &schema.RepositoryAnalysis{
		ID:         "0123456789abcdef0123",
		Name:       "webapp",
		Path:       "/src/webapp",
		Languages:  []string{"Python", "TypeScript"},
		Frameworks: []string{"flask", "react"},
		FileCount:  12,
		Structure: schema.Structure{
			KeyFiles: []schema.KeyFile{{Path: "requirements.txt", Importance: 1, Reason: "dependency manifest"}},
		},
		CodeAnalysis: schema.CodeAnalysis{TotalLines: 400, FunctionCount: 20},
		Dependencies: schema.Dependencies{Production: []string{"flask", "react"}, Development: []string{"pytest"}},
		Insights: &schema.Insights{
			Available:       true,
			Provider:        "summary",
			Summary:         "A <small> Flask app.",
			Recommendations: []string{"Add a README"},
		},
		Metadata:  schema.AnalysisMetadata{AnalysisMode: schema.StandardMode},
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func sampleBatch() *schema.BatchJob {
	members := []schema.BatchMember{
		{Index: 0, Path: "/src/a", Status: schema.CompletedStatus, RepoID: "repo-a"},
		{Index: 1, Path: "/src/missing", Status: schema.FailedStatus, Error: &schema.MemberError{
			Kind: schema.PathNotFound, Message: "path does not exist", Remediation: []string{"Check the path"},
		}},
		{Index: 2, Path: "/src/c", Status: schema.CompletedStatus, RepoID: "repo-c", Cached: true},
	}
	return &schema.BatchJob{
		BatchID:  "batch-1",
		State:    schema.BatchFinished,
		Members:  members,
		Counters: schema.CountMembers(members),
	}
}

func TestCreateFormatters(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		expected  string
	}{
		{name: "precision 2", precision: 2, value: 3.14159, expected: "3.14"},
		{name: "precision 0", precision: 0, value: 3.14159, expected: "3"},
		{name: "precision 4", precision: 4, value: 3.14159, expected: "3.1416"},
		{name: "negative value", precision: 2, value: -42.567, expected: "-42.57"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, createFormatters(tt.precision)(tt.value))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"value": 42}))
	assert.Equal(t, "{\n  \"value\": 42\n}\n", buf.String())

	assert.Error(t, writeJSON(&buf, make(chan int)))
}

func TestWriteCSVWithHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCSVWithHeader(&buf, []string{"a", "b"}, [][]string{{"1", "x,y"}}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "x,y"}}, records)
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, "-", joinOrDash(nil, 0))
	assert.Equal(t, "a, b", joinOrDash([]string{"a", "b"}, 0))
	assert.Equal(t, "a, b (+2)", joinOrDash([]string{"a", "b", "c", "d"}, 2))

	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "abcdefg...", truncateText("abcdefghijklmnop", 10))

	assert.Equal(t, "-", sharedSummary(nil, nil, nil))
	assert.Equal(t, "lang: Go; fw: gin; deps: 2", sharedSummary([]string{"Go"}, []string{"gin"}, []string{"x", "y"}))

	assert.Equal(t, "0123456789ab", shortID("0123456789abcdef"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestGetMaxCellWidth(t *testing.T) {
	tests := []struct {
		width    int
		fixed    int
		expected int
	}{
		{width: 200, fixed: 50, expected: maxCellWidth},
		{width: 120, fixed: 50, expected: 50},
		{width: 60, fixed: 50, expected: minCellWidth},
	}
	for _, tt := range tests {
		cfg := &contract.Config{Width: tt.width}
		assert.Equal(t, tt.expected, getMaxCellWidth(cfg, tt.fixed))
	}
}

func TestRendererFormats(t *testing.T) {
	r := NewRenderer()
	a := sampleAnalysis()

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, schema.JSONFormat, a))
	var decoded schema.RepositoryAnalysis
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, a.ID, decoded.ID)

	buf.Reset()
	require.NoError(t, r.Render(&buf, schema.MarkdownFormat, a))
	md := buf.String()
	assert.True(t, strings.HasPrefix(md, "# webapp\n"))
	assert.Contains(t, md, "| Languages | Python, TypeScript |")
	assert.Contains(t, md, "## Development dependencies\n\n- pytest\n")
	assert.Contains(t, md, "## Insights (summary)")
	assert.Contains(t, md, "- Add a README")

	buf.Reset()
	require.NoError(t, r.Render(&buf, schema.HTMLFormat, a))
	html := buf.String()
	assert.Contains(t, html, "<h1>webapp</h1>")
	assert.Contains(t, html, "A &lt;small&gt; Flask app.", "html output is escaped")

	buf.Reset()
	require.NoError(t, r.Render(&buf, schema.MarkdownFormat, sampleBatch()))
	assert.Contains(t, buf.String(), "| 2 | /src/missing | failed |  | PathNotFound: path does not exist |")

	buf.Reset()
	require.NoError(t, r.Render(&buf, schema.HTMLFormat, sampleBatch()))
	assert.Contains(t, buf.String(), "<td>PathNotFound: path does not exist</td>")
}

func TestRendererErrors(t *testing.T) {
	r := NewRenderer()
	var buf bytes.Buffer

	err := r.Render(&buf, schema.ExportFormat("pdf"), sampleAnalysis())
	assert.True(t, contract.IsKind(err, schema.InvalidInput))

	err = r.Render(&buf, schema.MarkdownFormat, "not an analysis")
	assert.True(t, contract.IsKind(err, schema.InvalidInput))
}

func TestWriteExports(t *testing.T) {
	dir := t.TempDir()
	formats := []schema.ExportFormat{schema.JSONFormat, schema.MarkdownFormat, schema.HTMLFormat}

	paths, err := WriteExports(NewRenderer(), dir, "web/app", formats, sampleAnalysis())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "web_app.json"),
		filepath.Join(dir, "web_app.md"),
		filepath.Join(dir, "web_app.html"),
	}, paths)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	_, err = WriteExports(NewRenderer(), filepath.Join(dir, "missing"), "x", formats, sampleAnalysis())
	assert.Error(t, err)
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "repo.md", ExportFileName("repo", schema.MarkdownFormat))
	assert.Equal(t, "export.json", ExportFileName("..", schema.JSONFormat))
}

func writeToFile(t *testing.T, write func(cfg *contract.Config) error, output schema.OutputMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out")
	cfg := &contract.Config{Output: output, OutputFile: path, Precision: 2, Width: 160}
	require.NoError(t, write(cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestWriteRepositoryList(t *testing.T) {
	repos := []*schema.RepositoryAnalysis{sampleAnalysis()}

	out := writeToFile(t, func(cfg *contract.Config) error {
		return WriteRepositoryList(repos, cfg, time.Second)
	}, schema.TextOut)
	assert.Contains(t, out, "0123456789ab", "ids are shortened")
	assert.Contains(t, out, "Showing 1 repositories")

	out = writeToFile(t, func(cfg *contract.Config) error {
		return WriteRepositoryList(repos, cfg, time.Second)
	}, schema.CSVOut)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Python|TypeScript", records[1][4])

	out = writeToFile(t, func(cfg *contract.Config) error {
		return WriteRepositoryList(repos, cfg, time.Second)
	}, schema.JSONOut)
	var summaries []RepositorySummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Rank)
	assert.Equal(t, 400, summaries[0].TotalLines)
}

func TestWriteAnalysis(t *testing.T) {
	a := sampleAnalysis()
	out := writeToFile(t, func(cfg *contract.Config) error { return WriteAnalysis(a, cfg) }, schema.TextOut)
	assert.Contains(t, out, "flask, react")
	assert.Contains(t, out, "A <small> Flask app.")

	out = writeToFile(t, func(cfg *contract.Config) error { return WriteAnalysis(a, cfg) }, schema.MarkdownOut)
	assert.True(t, strings.HasPrefix(out, "# webapp"))
}

func TestWriteSimilarity(t *testing.T) {
	report := schema.SimilarityReport{
		RepoID: "repo-a",
		Matches: []schema.SimilarityMatch{
			{RepoID: "repo-b", Name: "b", Score: 0.8, SharedLanguages: []string{"go"}},
			{RepoID: "repo-c", Name: "c", Score: 0.3},
		},
		Failures: []schema.ScoringFailure{{RepoID: "repo-d", Reason: "no feature vector"}},
	}

	out := writeToFile(t, func(cfg *contract.Config) error { return WriteSimilarity(report, cfg, 0) }, schema.CSVOut)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "repo-b", "b", "0.80", schema.StrongLabel, "go", "", ""}, records[1])
	assert.Equal(t, schema.WeakLabel, records[2][4])

	out = writeToFile(t, func(cfg *contract.Config) error { return WriteSimilarity(report, cfg, 0) }, schema.TextOut)
	assert.Contains(t, out, "skipped repo-d: no feature vector")
	assert.Contains(t, out, "Showing 2 repositories similar to repo-a")
}

func TestWriteGraph(t *testing.T) {
	graph := schema.RelationshipGraph{
		Threshold: 0.3,
		Nodes:     []schema.GraphNode{{RepoID: "repo-a", Name: "alpha", Degree: 1}, {RepoID: "repo-b", Name: "beta", Degree: 1}},
		Edges:     []schema.RelationshipEdge{{RepoIDA: "repo-a", RepoIDB: "repo-b", SimilarityScore: 0.55}},
	}
	out := writeToFile(t, func(cfg *contract.Config) error { return WriteGraph(graph, cfg, 0) }, schema.TextOut)
	assert.Contains(t, out, "alpha", "node names replace ids")
	assert.Contains(t, out, "Graph has 2 nodes and 1 edges at threshold 0.30")

	out = writeToFile(t, func(cfg *contract.Config) error { return WriteGraph(graph, cfg, 0) }, schema.JSONOut)
	var decoded schema.RelationshipGraph
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, graph.Edges, decoded.Edges)
}

func TestWriteCombinations(t *testing.T) {
	report := schema.CombinationReport{Suggestions: []schema.CombinationSuggestion{
		{RepoIDs: []string{"a", "b"}, Names: []string{"alpha", "beta"}, Synergy: 0.6, ComplementaryFrameworks: []string{"flask", "react"}},
	}}
	out := writeToFile(t, func(cfg *contract.Config) error { return WriteCombinations(report, cfg, 0) }, schema.CSVOut)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a|b", records[1][1])
	assert.Equal(t, schema.RelatedLabel, records[1][4])
	assert.Equal(t, "flask|react", records[1][6])
}

func TestWriteBatch(t *testing.T) {
	job := sampleBatch()
	out := writeToFile(t, func(cfg *contract.Config) error { return WriteBatch(job, cfg, time.Second) }, schema.TextOut)
	assert.Contains(t, out, "Batch batch-1: 2 completed, 1 failed of 3")
	assert.Contains(t, out, "#2 PathNotFound: Check the path")

	out = writeToFile(t, func(cfg *contract.Config) error { return WriteBatch(job, cfg, time.Second) }, schema.CSVOut)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"2", "/src/missing", "failed", "", "false", "PathNotFound", "path does not exist"}, records[2])
	assert.Equal(t, "true", records[3][4])
}

func TestFormatProgress(t *testing.T) {
	ev := schema.ProgressEvent{
		Path:     "/src/a",
		To:       schema.CompletedStatus,
		Counters: schema.BatchCounters{Total: 4, Completed: 1, Failed: 1, InProgress: 1, Pending: 1, ProgressPercent: 50},
	}
	assert.Equal(t, "[ 50.0%] 2/4 done, 1 failed, 1 running, 1 pending | completed /src/a", FormatProgress(ev))
}

func TestPrintCacheStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf,
		schema.CacheStatus{Entries: 3, Capacity: 0, TTL: time.Hour, Hits: 2, Joins: 1, Misses: 1},
		schema.QueueStatus{MaxConcurrency: 4, Processed: 5})
	out := buf.String()
	assert.Contains(t, out, "Entries:     3 (capacity unbounded, ttl 1h0m0s)")
	assert.Contains(t, out, "(75.0% reuse)")
	assert.Contains(t, out, "Concurrency: 4 (0 running, 0 pending)")
}
