package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/internal/outwriter"
	"github.com/huangsam/repolens/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg  *contract.Config
	analyzer Analyzer
}

// options starts from the server defaults and applies per-call overrides.
func (h *toolHandler) options(request mcp.CallToolRequest) schema.AnalysisOptions {
	opts := h.baseCfg.Options.Clone()
	if m := request.GetString("mode", ""); m != "" {
		mode := schema.AnalysisMode(m)
		if mode != opts.Mode {
			// Limits follow the requested mode.
			defaults := schema.DefaultAnalysisOptions(mode)
			opts.Mode = mode
			opts.MaxFiles = defaults.MaxFiles
			opts.MaxLinesPerFile = defaults.MaxLinesPerFile
			opts.IncludeTree = defaults.IncludeTree
		}
	}
	opts.IncludeLLMAnalysis = request.GetBool("include_llm", opts.IncludeLLMAnalysis)
	if p := request.GetString("llm_provider", ""); p != "" {
		opts.LLMProvider = p
	}
	opts.IncludeTree = request.GetBool("include_tree", opts.IncludeTree)
	return opts
}

func (h *toolHandler) handleAnalyzeRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	analysis, err := h.analyzer.AnalyzeOne(ctx, path, h.options(request))
	if err != nil {
		return toolError("analysis failed", path, err), nil
	}
	return jsonResult(analysis), nil
}

func (h *toolHandler) handleAnalyzeBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := request.RequireStringSlice("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultError("paths must contain at least one repository"), nil
	}

	job, err := h.analyzer.AnalyzeBatch(ctx, paths, h.options(request), request.GetInt("concurrency", 0), progressNotifier(ctx, request))
	if err != nil {
		return toolError("batch failed", "", err), nil
	}
	return jsonResult(job), nil
}

// progressNotifier forwards batch progress to the client when it asked for it with a progress token.
func progressNotifier(ctx context.Context, request mcp.CallToolRequest) func(schema.ProgressEvent) {
	if request.Params.Meta == nil || request.Params.Meta.ProgressToken == nil {
		return nil
	}
	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return nil
	}
	token := request.Params.Meta.ProgressToken
	return func(ev schema.ProgressEvent) {
		c := ev.Counters
		_ = srv.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
			"progressToken": token,
			"progress":      c.Completed + c.Failed,
			"total":         c.Total,
			"message":       fmt.Sprintf("%s %s", ev.To, ev.Path),
		})
	}
}

func (h *toolHandler) handleSearchRepositories(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := schema.SearchQuery{
		Languages:  request.GetStringSlice("languages", nil),
		Frameworks: request.GetStringSlice("frameworks", nil),
		Keywords:   request.GetStringSlice("keywords", nil),
		FileTypes:  request.GetStringSlice("file_types", nil),
		Limit:      request.GetInt("limit", h.baseCfg.ResultLimit),
	}

	now := time.Now()
	since, err := contract.ParseTimeBound(request.GetString("since", ""), now)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid search parameters: %v", err)), nil
	}
	until, err := contract.ParseTimeBound(request.GetString("until", ""), now)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid search parameters: %v", err)), nil
	}
	if !since.IsZero() || !until.IsZero() {
		if until.IsZero() {
			until = now
		}
		if until.Before(since) {
			return mcp.NewToolResultError("invalid search parameters: until must not be before since"), nil
		}
		q.DateRange = &schema.DateRange{From: since, To: until}
	}

	results := h.analyzer.SearchRepositories(q)
	return jsonResult(outwriter.SummarizeRepositories(results)), nil
}

func (h *toolHandler) handleFindSimilar(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("repo_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := h.analyzer.FindSimilar(id, request.GetInt("limit", h.baseCfg.ResultLimit), request.GetFloat("min_score", 0))
	if err != nil {
		return toolError("similarity search failed", "", err), nil
	}
	return jsonResult(report), nil
}

func (h *toolHandler) handleSuggestCombinations(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := request.GetStringSlice("repo_ids", nil)
	report := h.analyzer.SuggestCombinations(ids, request.GetInt("max_group_size", h.baseCfg.MaxGroupSize))
	return jsonResult(report), nil
}

func (h *toolHandler) handleGetRelationshipGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := request.GetStringSlice("repo_ids", nil)
	graph, err := h.analyzer.GetRelationshipGraph(ctx, ids, request.GetFloat("threshold", -1))
	if err != nil {
		return toolError("graph build failed", "", err), nil
	}
	return jsonResult(graph), nil
}

func (h *toolHandler) handleListRepositories(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries := outwriter.SummarizeRepositories(h.analyzer.GetAllIndexed())
	if l := request.GetInt("limit", 0); l > 0 && l < len(summaries) {
		summaries = summaries[:l]
	}
	return jsonResult(summaries), nil
}

func (h *toolHandler) handleGetRepository(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("repo_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	analysis, err := h.analyzer.GetByID(id)
	if err != nil {
		return toolError("lookup failed", "", err), nil
	}
	return jsonResult(analysis), nil
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(jsonData))
}

// toolError renders an analysis failure with its remediation hints.
func toolError(prefix, path string, err error) *mcp.CallToolResult {
	ae := contract.AsAnalysisError(err, path)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %v", prefix, ae)
	for _, fix := range ae.Remediation {
		fmt.Fprintf(&sb, "\n- %s", fix)
	}
	return mcp.NewToolResultError(sb.String())
}
