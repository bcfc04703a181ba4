// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/huangsam/repolens/core"
	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// Analyzer is the subset of the orchestrator the tools call.
type Analyzer interface {
	AnalyzeOne(ctx context.Context, path string, opts schema.AnalysisOptions) (*schema.RepositoryAnalysis, error)
	AnalyzeBatch(ctx context.Context, paths []string, opts schema.AnalysisOptions, concurrency int, onProgress core.ProgressObserver) (*schema.BatchJob, error)
	SearchRepositories(q schema.SearchQuery) []*schema.RepositoryAnalysis
	FindSimilar(id string, limit int, minScore float64) (schema.SimilarityReport, error)
	SuggestCombinations(ids []string, maxGroupSize int) schema.CombinationReport
	GetRelationshipGraph(ctx context.Context, ids []string, threshold float64) (schema.RelationshipGraph, error)
	GetAllIndexed() []*schema.RepositoryAnalysis
	GetByID(id string) (*schema.RepositoryAnalysis, error)
}

var _ Analyzer = &core.Orchestrator{} // Compile-time check

var stringItems = mcp.Items(map[string]any{"type": "string"})

// NewMCPServer initializes and configures the repolens MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, analyzer Analyzer) *server.MCPServer {
	s := server.NewMCPServer(
		"Repolens Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg:  baseCfg,
		analyzer: analyzer,
	}

	// --- 1. Tool: analyze_repository ---
	s.AddTool(mcp.NewTool("analyze_repository",
		mcp.WithDescription("Analyze a local repository: languages, frameworks, dependencies, structure and code metrics. Results are cached and indexed."),
		mcp.WithString("path", mcp.Description("Path to the repository directory."), mcp.Required()),
		mcp.WithString("mode", mcp.Description("Analysis depth. Defaults to the server configuration."), mcp.Enum("quick", "standard", "comprehensive")),
		mcp.WithBoolean("include_llm", mcp.Description("Attach a narrative from the configured insight provider.")),
		mcp.WithString("llm_provider", mcp.Description("Insight provider name (summary, http).")),
		mcp.WithBoolean("include_tree", mcp.Description("Include the directory tree in the result.")),
	), h.handleAnalyzeRepository)

	// --- 2. Tool: analyze_batch ---
	s.AddTool(mcp.NewTool("analyze_batch",
		mcp.WithDescription("Analyze several repositories concurrently. Failures are reported per member and never abort the batch."),
		mcp.WithArray("paths", mcp.Description("Repository paths to analyze."), mcp.Required(), stringItems),
		mcp.WithString("mode", mcp.Description("Analysis depth."), mcp.Enum("quick", "standard", "comprehensive")),
		mcp.WithNumber("concurrency", mcp.Description("Maximum concurrent scans for this batch (defaults to the worker count).")),
	), h.handleAnalyzeBatch)

	// --- 3. Tool: search_repositories ---
	s.AddTool(mcp.NewTool("search_repositories",
		mcp.WithDescription("Search indexed repositories. Every given filter must match; values inside one filter are alternatives."),
		mcp.WithArray("languages", mcp.Description("Languages, e.g. Go or Python."), stringItems),
		mcp.WithArray("frameworks", mcp.Description("Frameworks, e.g. flask or react."), stringItems),
		mcp.WithArray("keywords", mcp.Description("Keywords matched against names, paths, dependencies and insights."), stringItems),
		mcp.WithArray("file_types", mcp.Description("File extensions, e.g. .go."), stringItems),
		mcp.WithString("since", mcp.Description("Only repositories analyzed after this time (RFC3339, YYYY-MM-DD or relative like '30 days ago').")),
		mcp.WithString("until", mcp.Description("Only repositories analyzed before this time.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
	), h.handleSearchRepositories)

	// --- 4. Tool: find_similar ---
	s.AddTool(mcp.NewTool("find_similar",
		mcp.WithDescription("Rank indexed repositories by similarity to one repository."),
		mcp.WithString("repo_id", mcp.Description("Id of the reference repository."), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Limit the number of matches.")),
		mcp.WithNumber("min_score", mcp.Description("Drop matches scoring below this value (0-1).")),
	), h.handleFindSimilar)

	// --- 5. Tool: suggest_combinations ---
	s.AddTool(mcp.NewTool("suggest_combinations",
		mcp.WithDescription("Suggest groups of repositories that would work well together, ranked by synergy."),
		mcp.WithArray("repo_ids", mcp.Description("Candidate repository ids (defaults to the whole index)."), stringItems),
		mcp.WithNumber("max_group_size", mcp.Description("Largest group to consider.")),
	), h.handleSuggestCombinations)

	// --- 6. Tool: get_relationship_graph ---
	s.AddTool(mcp.NewTool("get_relationship_graph",
		mcp.WithDescription("Build the similarity graph over indexed repositories."),
		mcp.WithArray("repo_ids", mcp.Description("Repository ids to include (defaults to the whole index)."), stringItems),
		mcp.WithNumber("threshold", mcp.Description("Minimum similarity for an edge (0-1).")),
	), h.handleGetRelationshipGraph)

	// --- 7. Tool: list_repositories ---
	s.AddTool(mcp.NewTool("list_repositories",
		mcp.WithDescription("List every indexed repository."),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
	), h.handleListRepositories)

	// --- 8. Tool: get_repository ---
	s.AddTool(mcp.NewTool("get_repository",
		mcp.WithDescription("Return the full stored analysis of one repository."),
		mcp.WithString("repo_id", mcp.Description("Repository id."), mcp.Required()),
	), h.handleGetRepository)

	return s
}

// StartMCPServer starts the repolens MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, analyzer Analyzer) error {
	s := NewMCPServer(baseCfg, analyzer)
	return server.ServeStdio(s)
}
