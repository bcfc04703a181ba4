package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// Thresholds used by the summary recommendations.
const (
	highAverageComplexity = 15.0
	manyDependencies      = 60
	highlightLimit        = 3
)

// SummaryProvider builds a deterministic narrative from the analysis itself.
type SummaryProvider struct{}

var _ contract.InsightProvider = &SummaryProvider{} // Compile-time check

// NewSummaryProvider returns the offline provider.
func NewSummaryProvider() *SummaryProvider {
	return &SummaryProvider{}
}

// Name returns the registry key.
func (p *SummaryProvider) Name() string { return SummaryName }

// Generate describes a. The same analysis always yields the same text.
func (p *SummaryProvider) Generate(ctx context.Context, a *schema.RepositoryAnalysis) (*schema.Insights, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("no analysis to summarize")
	}
	return &schema.Insights{
		Available:       true,
		Provider:        SummaryName,
		Summary:         summarize(a),
		Highlights:      highlights(a),
		Recommendations: recommendations(a),
	}, nil
}

func summarize(a *schema.RepositoryAnalysis) string {
	var b strings.Builder
	kind := "repository"
	if len(a.Languages) > 0 {
		kind = a.Languages[0] + " repository"
	}
	fmt.Fprintf(&b, "%s is a %s with %d files in %d directories (%s)",
		a.Name, kind, a.FileCount, a.DirectoryCount, humanSize(a.TotalSize))
	if len(a.Frameworks) > 0 {
		fmt.Fprintf(&b, " built on %s", joinList(a.Frameworks))
	}
	b.WriteString(".")
	if lines := a.CodeAnalysis.TotalLines; lines > 0 {
		fmt.Fprintf(&b, " It contains %d lines of code", lines)
		if a.CodeAnalysis.FunctionCount > 0 {
			fmt.Fprintf(&b, " across %d functions", a.CodeAnalysis.FunctionCount)
		}
		b.WriteString(".")
	}
	return b.String()
}

func highlights(a *schema.RepositoryAnalysis) []string {
	var out []string
	if len(a.Languages) > 1 {
		langs := a.Languages[:min(len(a.Languages), highlightLimit)]
		out = append(out, fmt.Sprintf("Polyglot codebase: %s", strings.Join(langs, ", ")))
	}
	if n := len(a.Dependencies.Production); n > 0 {
		out = append(out, fmt.Sprintf("%d production and %d development dependencies", n, len(a.Dependencies.Development)))
	}
	for _, kf := range a.Structure.KeyFiles {
		if len(out) >= highlightLimit+1 {
			break
		}
		if kf.Reason == "entry point" {
			out = append(out, fmt.Sprintf("Entry point at %s", kf.Path))
		}
	}
	if c := a.CodeAnalysis.Complexity; c.MaxFile != "" {
		out = append(out, fmt.Sprintf("Most complex file is %s (score %d)", c.MaxFile, c.MaxFileScore))
	}
	return out
}

func recommendations(a *schema.RepositoryAnalysis) []string {
	var out []string
	if !hasKeyFile(a, "documentation", true) {
		out = append(out, "Add a top-level README describing purpose and setup")
	}
	if len(a.Dependencies.Production)+len(a.Dependencies.Development) == 0 && a.FileCount > 0 {
		out = append(out, "Declare dependencies in a manifest so tooling can resolve them")
	}
	if c := a.CodeAnalysis.Complexity; c.AveragePerFile > highAverageComplexity {
		out = append(out, fmt.Sprintf("Average complexity is %.1f per file; consider splitting %s", c.AveragePerFile, c.MaxFile))
	}
	if len(a.Dependencies.Production) > manyDependencies {
		out = append(out, "Audit production dependencies for unused packages")
	}
	if a.Metadata.Truncated {
		out = append(out, "The scan hit the file limit; re-run in comprehensive mode for full coverage")
	}
	return out
}

func hasKeyFile(a *schema.RepositoryAnalysis, reason string, topLevel bool) bool {
	for _, kf := range a.Structure.KeyFiles {
		if kf.Reason != reason {
			continue
		}
		if !topLevel || !strings.Contains(kf.Path, "/") {
			return true
		}
	}
	return false
}

func joinList(items []string) string {
	switch len(items) {
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
