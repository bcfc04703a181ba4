package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// WriteSimilarity outputs a find-similar report, dispatching on the output format.
func WriteSimilarity(report schema.SimilarityReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatters(cfg.Precision)
	matches := schema.EnrichMatches(report.Matches)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				RepoID   string                           `json:"repo_id"`
				Matches  []schema.EnrichedSimilarityMatch `json:"matches"`
				Failures []schema.ScoringFailure          `json:"failures,omitempty"`
			}{report.RepoID, matches, report.Failures})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			header := []string{"rank", "repo_id", "name", "score", "label", "shared_languages", "shared_frameworks", "shared_dependencies"}
			rows := make([][]string, len(matches))
			for i, m := range matches {
				rows[i] = []string{
					strconv.Itoa(m.Rank), m.RepoID, m.Name, fmtFloat(m.Score), m.Label,
					strings.Join(m.SharedLanguages, "|"),
					strings.Join(m.SharedFrameworks, "|"),
					strings.Join(m.SharedDependencies, "|"),
				}
			}
			return writeCSVWithHeader(w, header, rows)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			sharedWidth := getMaxCellWidth(cfg, 60)
			rows := make([][]string, len(matches))
			for i, m := range matches {
				rows[i] = []string{
					strconv.Itoa(m.Rank),
					shortID(m.RepoID),
					m.Name,
					fmtFloat(m.Score),
					contract.GetColorLabel(m.Score),
					truncateText(sharedSummary(m.SharedLanguages, m.SharedFrameworks, m.SharedDependencies), sharedWidth),
				}
			}
			if err := writeTable(w, []string{"Rank", "ID", "Name", "Score", "Label", "Shared"}, rows); err != nil {
				return err
			}
			if err := writeFailures(w, report.Failures); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Showing %d repositories similar to %s (%v)\n", len(matches), shortID(report.RepoID), duration.Round(time.Millisecond))
			return err
		}, "Wrote table")
	}
}

// WriteGraph outputs a relationship graph, dispatching on the output format.
func WriteGraph(graph schema.RelationshipGraph, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatters(cfg.Precision)
	names := make(map[string]string, len(graph.Nodes))
	for _, n := range graph.Nodes {
		names[n.RepoID] = n.Name
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error { return writeJSON(w, graph) }, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			header := []string{"repo_id_a", "repo_id_b", "similarity_score", "shared_languages", "shared_frameworks", "shared_dependencies"}
			rows := make([][]string, len(graph.Edges))
			for i, e := range graph.Edges {
				rows[i] = []string{
					e.RepoIDA, e.RepoIDB, fmtFloat(e.SimilarityScore),
					strings.Join(e.SharedLanguages, "|"),
					strings.Join(e.SharedFrameworks, "|"),
					strings.Join(e.SharedDependencies, "|"),
				}
			}
			return writeCSVWithHeader(w, header, rows)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			sharedWidth := getMaxCellWidth(cfg, 70)
			rows := make([][]string, len(graph.Edges))
			for i, e := range graph.Edges {
				rows[i] = []string{
					nodeLabel(names, e.RepoIDA),
					nodeLabel(names, e.RepoIDB),
					fmtFloat(e.SimilarityScore),
					contract.GetColorLabel(e.SimilarityScore),
					truncateText(sharedSummary(e.SharedLanguages, e.SharedFrameworks, e.SharedDependencies), sharedWidth),
				}
			}
			if err := writeTable(w, []string{"From", "To", "Score", "Label", "Shared"}, rows); err != nil {
				return err
			}
			if err := writeFailures(w, graph.Failures); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Graph has %d nodes and %d edges at threshold %s (%v)\n",
				len(graph.Nodes), len(graph.Edges), fmtFloat(graph.Threshold), duration.Round(time.Millisecond))
			return err
		}, "Wrote table")
	}
}

// WriteCombinations outputs combination suggestions, dispatching on the output format.
func WriteCombinations(report schema.CombinationReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatters(cfg.Precision)
	suggestions := schema.EnrichCombinations(report.Suggestions)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				Suggestions []schema.EnrichedCombination `json:"suggestions"`
				Failures    []schema.ScoringFailure      `json:"failures,omitempty"`
			}{suggestions, report.Failures})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			header := []string{"rank", "repo_ids", "names", "synergy", "label", "shared_dependencies", "complementary_frameworks", "shared_languages"}
			rows := make([][]string, len(suggestions))
			for i, s := range suggestions {
				rows[i] = []string{
					strconv.Itoa(s.Rank),
					strings.Join(s.RepoIDs, "|"),
					strings.Join(s.Names, "|"),
					fmtFloat(s.Synergy),
					s.Label,
					strings.Join(s.SharedDependencies, "|"),
					strings.Join(s.ComplementaryFrameworks, "|"),
					strings.Join(s.SharedLanguages, "|"),
				}
			}
			return writeCSVWithHeader(w, header, rows)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			width := getMaxCellWidth(cfg, 50)
			rows := make([][]string, len(suggestions))
			for i, s := range suggestions {
				rows[i] = []string{
					strconv.Itoa(s.Rank),
					truncateText(strings.Join(s.Names, " + "), width),
					fmtFloat(s.Synergy),
					contract.GetColorLabel(s.Synergy),
					joinOrDash(s.ComplementaryFrameworks, 4),
				}
			}
			if err := writeTable(w, []string{"Rank", "Repositories", "Synergy", "Label", "Complements"}, rows); err != nil {
				return err
			}
			if err := writeFailures(w, report.Failures); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Showing %d combinations (%v)\n", len(suggestions), duration.Round(time.Millisecond))
			return err
		}, "Wrote table")
	}
}

// sharedSummary condenses shared sets into one cell.
func sharedSummary(languages, frameworks, dependencies []string) string {
	var parts []string
	if len(languages) > 0 {
		parts = append(parts, "lang: "+strings.Join(languages, ", "))
	}
	if len(frameworks) > 0 {
		parts = append(parts, "fw: "+strings.Join(frameworks, ", "))
	}
	if len(dependencies) > 0 {
		parts = append(parts, fmt.Sprintf("deps: %d", len(dependencies)))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "; ")
}

func nodeLabel(names map[string]string, id string) string {
	if name := names[id]; name != "" {
		return name
	}
	return shortID(id)
}

// truncateText cuts s to maxWidth runes with an ellipsis suffix.
func truncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) <= maxWidth || maxWidth <= 3 {
		return s
	}
	return string(runes[:maxWidth-3]) + "..."
}

func writeFailures(w io.Writer, failures []schema.ScoringFailure) error {
	for _, f := range failures {
		if _, err := fmt.Fprintf(w, "%s %s: %s\n", contract.WeakColor.Sprint("skipped"), shortID(f.RepoID), f.Reason); err != nil {
			return err
		}
	}
	return nil
}
