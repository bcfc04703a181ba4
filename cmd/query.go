package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/internal/iocache"
	"github.com/huangsam/repolens/internal/outwriter"
	"github.com/huangsam/repolens/schema"
)

// searchCmd filters the index.
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search indexed repositories by language, framework, keyword, file type or date",
	Long: `Return indexed repositories matching every given filter. Values inside one
filter are alternatives, so --lang go,python matches either language.

Keywords match repository names, paths, dependencies and insight text. Results are
ordered by relevance, then by most recent analysis.

Examples:
  # Go services using gin
  repolens search --lang go --framework gin

  # Anything analyzed in the last two weeks that mentions kafka
  repolens search --keyword kafka --since "2 weeks ago"`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		start := time.Now()
		q, err := buildSearchQuery(time.Now())
		if err != nil {
			contract.LogFatal("Invalid search", err)
		}
		results := orchestrator.SearchRepositories(q)
		if err := outwriter.NewOutWriter().WriteRepositories(results, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Failed to write search results", err)
		}
	},
}

// buildSearchQuery turns the search flags into a query.
func buildSearchQuery(now time.Time) (schema.SearchQuery, error) {
	q := schema.SearchQuery{
		Languages:  viper.GetStringSlice("lang"),
		Frameworks: viper.GetStringSlice("framework"),
		Keywords:   viper.GetStringSlice("keyword"),
		FileTypes:  viper.GetStringSlice("file-type"),
		Limit:      cfg.ResultLimit,
	}
	since, err := contract.ParseTimeBound(viper.GetString("since"), now)
	if err != nil {
		return q, fmt.Errorf("invalid --since: %w", err)
	}
	until, err := contract.ParseTimeBound(viper.GetString("until"), now)
	if err != nil {
		return q, fmt.Errorf("invalid --until: %w", err)
	}
	if since.IsZero() && until.IsZero() {
		return q, nil
	}
	if until.IsZero() {
		until = now
	}
	if until.Before(since) {
		return q, fmt.Errorf("--until (%s) is before --since (%s)", until.Format(contract.DateTimeFormat), since.Format(contract.DateTimeFormat))
	}
	q.DateRange = &schema.DateRange{From: since, To: until}
	return q, nil
}

// similarCmd ranks the index against one repository.
var similarCmd = &cobra.Command{
	Use:   "similar <repo-id>",
	Short: "Find repositories similar to an indexed repository",
	Long: `Score every other indexed repository against the given one using weighted
language, framework, dependency, size and complexity overlap.

Weights are configurable under the similarity: block of .repolens.yaml.

Examples:
  # Top matches for a repository (ids come from 'repolens list')
  repolens similar 3f9a2c1b7e04

  # Only strong relationships
  repolens similar 3f9a2c1b7e04 --min-score 0.75`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		start := time.Now()
		id := resolveID(args[0])
		report, err := orchestrator.FindSimilar(id, cfg.ResultLimit, viper.GetFloat64("min-score"))
		if err != nil {
			logAnalysisError("Similarity search failed", err)
		}
		if err := outwriter.NewOutWriter().WriteSimilarity(report, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Failed to write similarity report", err)
		}
	},
}

// graphCmd builds the relationship graph.
var graphCmd = &cobra.Command{
	Use:   "graph [repo-id...]",
	Short: "Build the similarity graph over indexed repositories",
	Long: `Connect every pair of repositories whose similarity reaches --threshold.
Without ids the whole index is used.

Examples:
  # Graph of the whole index as JSON
  repolens graph --output json

  # Dense graph of three repositories
  repolens graph 3f9a2c1b7e04 8d01be55a9c2 c4e7f0a1d3b6 --threshold 0.1`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		start := time.Now()
		graph, err := orchestrator.GetRelationshipGraph(rootCtx, resolveIDs(args), cfg.GraphThreshold)
		if err != nil {
			logAnalysisError("Graph build failed", err)
		}
		if err := outwriter.NewOutWriter().WriteGraph(graph, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Failed to write graph", err)
		}
	},
}

// combosCmd suggests repository groups.
var combosCmd = &cobra.Command{
	Use:   "combos [repo-id...]",
	Short: "Suggest groups of repositories that work well together",
	Long: `Rank groups of two or more repositories by synergy: shared dependencies,
complementary frameworks and common languages. Without ids the whole index is used.

Examples:
  # Best pairs and triples in the index
  repolens combos

  # Pairs only among four candidates
  repolens combos 3f9a2c1b7e04 8d01be55a9c2 c4e7f0a1d3b6 e2a9d4c8f130 --max-group-size 2`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		start := time.Now()
		report := orchestrator.SuggestCombinations(resolveIDs(args), viper.GetInt("max-group-size"))
		if err := outwriter.NewOutWriter().WriteCombinations(report, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Failed to write combinations", err)
		}
	},
}

// listCmd prints the index.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every indexed repository",
	Long: `Print every repository in the index, most recently analyzed first.

With --output parquet the index is exported to Parquet files prefixed by --output-file.

Examples:
  repolens list
  repolens list --output csv --output-file repos.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		start := time.Now()
		if cfg.Output == schema.ParquetOut {
			if err := iocache.ExecuteIndexExport(os.Stderr, indexStore, cfg.OutputFile); err != nil {
				contract.LogFatal("Failed to export index", err)
			}
			return
		}
		repos := orchestrator.GetAllIndexed()
		if len(repos) > cfg.ResultLimit {
			repos = repos[:cfg.ResultLimit]
		}
		if err := outwriter.NewOutWriter().WriteRepositories(repos, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Failed to write repositories", err)
		}
	},
}

// showCmd prints one stored analysis.
var showCmd = &cobra.Command{
	Use:   "show <repo-id>",
	Short: "Show the stored analysis of one repository",
	Long: `Print the full stored analysis of an indexed repository without rescanning it.
A unique id prefix is accepted.

Examples:
  repolens show 3f9a2c1b7e04
  repolens show 3f9a --output markdown --output-file report.md`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		analysis, err := orchestrator.GetByID(resolveID(args[0]))
		if err != nil {
			logAnalysisError("Lookup failed", err)
		}
		if err := outwriter.NewOutWriter().WriteAnalysis(analysis, cfg); err != nil {
			contract.LogFatal("Failed to write analysis", err)
		}
	},
}

// removeCmd deletes one repository from the index.
var removeCmd = &cobra.Command{
	Use:   "remove <repo-id>",
	Short: "Remove a repository from the index",
	Long: `Delete a repository from the durable index and drop its cached analyses.
The next analysis of the same path scans it from scratch.

Examples:
  repolens remove 3f9a2c1b7e04`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		id := resolveID(args[0])
		if err := orchestrator.Remove(id); err != nil {
			logAnalysisError("Remove failed", err)
		}
		fmt.Printf("Removed %s from the index.\n", id)
	},
}

// resolveID expands a unique id prefix, as printed in text tables, to the full id.
// Unknown or ambiguous prefixes are returned unchanged.
func resolveID(prefix string) string {
	var match string
	for _, a := range orchestrator.GetAllIndexed() {
		if a.ID == prefix {
			return prefix
		}
		if len(prefix) >= 4 && len(a.ID) > len(prefix) && a.ID[:len(prefix)] == prefix {
			if match != "" {
				return prefix
			}
			match = a.ID
		}
	}
	if match == "" {
		return prefix
	}
	return match
}

func resolveIDs(prefixes []string) []string {
	if len(prefixes) == 0 {
		return nil
	}
	ids := make([]string, len(prefixes))
	for i, p := range prefixes {
		ids[i] = resolveID(p)
	}
	return ids
}
