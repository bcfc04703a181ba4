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

// shortIDLength is how much of a repository id the text tables show.
const shortIDLength = 12

// WriteRepositoryList outputs indexed repositories (list and search), dispatching on the output format.
func WriteRepositoryList(repos []*schema.RepositoryAnalysis, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, SummarizeRepositories(repos))
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRepositoryCSV(w, repos)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRepositoryTable(w, repos, cfg, duration)
		}, "Wrote table")
	}
}

// RepositorySummary is the compact form of an analysis used in listings.
type RepositorySummary struct {
	Rank       int       `json:"rank"`
	RepoID     string    `json:"repo_id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Languages  []string  `json:"languages"`
	Frameworks []string  `json:"frameworks"`
	FileCount  int       `json:"file_count"`
	TotalLines int       `json:"total_lines"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SummarizeRepositories ranks repos in order and keeps the listing fields.
func SummarizeRepositories(repos []*schema.RepositoryAnalysis) []RepositorySummary {
	out := make([]RepositorySummary, len(repos))
	for i, r := range repos {
		out[i] = RepositorySummary{
			Rank:       i + 1,
			RepoID:     r.ID,
			Name:       r.Name,
			Path:       r.Path,
			Languages:  r.Languages,
			Frameworks: r.Frameworks,
			FileCount:  r.FileCount,
			TotalLines: r.CodeAnalysis.TotalLines,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return out
}

func writeRepositoryCSV(w io.Writer, repos []*schema.RepositoryAnalysis) error {
	header := []string{"rank", "repo_id", "name", "path", "languages", "frameworks", "file_count", "total_lines", "updated_at"}
	rows := make([][]string, len(repos))
	for i, r := range repos {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			r.ID,
			r.Name,
			r.Path,
			strings.Join(r.Languages, "|"),
			strings.Join(r.Frameworks, "|"),
			strconv.Itoa(r.FileCount),
			strconv.Itoa(r.CodeAnalysis.TotalLines),
			r.UpdatedAt.Format(contract.DateTimeFormat),
		}
	}
	return writeCSVWithHeader(w, header, rows)
}

func writeRepositoryTable(w io.Writer, repos []*schema.RepositoryAnalysis, cfg *contract.Config, duration time.Duration) error {
	pathWidth := getMaxCellWidth(cfg, 75)
	rows := make([][]string, len(repos))
	for i, r := range repos {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			shortID(r.ID),
			r.Name,
			contract.TruncatePath(r.Path, pathWidth),
			joinOrDash(r.Languages, 3),
			joinOrDash(r.Frameworks, 3),
			strconv.Itoa(r.FileCount),
		}
	}
	if err := writeTable(w, []string{"Rank", "ID", "Name", "Path", "Languages", "Frameworks", "Files"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d repositories (%v)\n", len(repos), duration.Round(time.Millisecond))
	return err
}

// WriteAnalysis outputs one analysis. Markdown and HTML go through the export renderer.
func WriteAnalysis(a *schema.RepositoryAnalysis, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error { return writeJSON(w, a) }, "Wrote JSON")
	case schema.MarkdownOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return NewRenderer().Render(w, schema.MarkdownFormat, a)
		}, "Wrote Markdown")
	case schema.HTMLOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return NewRenderer().Render(w, schema.HTMLFormat, a)
		}, "Wrote HTML")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRepositoryCSV(w, []*schema.RepositoryAnalysis{a})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAnalysisText(w, a, cfg)
		}, "Wrote summary")
	}
}

func writeAnalysisText(w io.Writer, a *schema.RepositoryAnalysis, cfg *contract.Config) error {
	fmtFloat := createFormatters(cfg.Precision)
	rows := [][]string{
		{"ID", a.ID},
		{"Name", a.Name},
		{"Path", contract.TruncatePath(a.Path, getMaxCellWidth(cfg, 25))},
		{"Languages", joinOrDash(a.Languages, 0)},
		{"Frameworks", joinOrDash(a.Frameworks, 0)},
		{"Dependencies", fmt.Sprintf("%d production, %d development", len(a.Dependencies.Production), len(a.Dependencies.Development))},
		{"Files", fmt.Sprintf("%d in %d directories", a.FileCount, a.DirectoryCount)},
		{"Lines", strconv.Itoa(a.CodeAnalysis.TotalLines)},
		{"Functions / Classes", fmt.Sprintf("%d / %d", a.CodeAnalysis.FunctionCount, a.CodeAnalysis.ClassCount)},
		{"Avg complexity", fmtFloat(a.CodeAnalysis.Complexity.AveragePerFile)},
		{"Mode", string(a.Metadata.AnalysisMode)},
		{"Analyzed", a.UpdatedAt.Format(contract.DateTimeFormat)},
	}
	if a.Metadata.Truncated {
		rows = append(rows, []string{"Note", contract.WeakColor.Sprint("file limit reached, results are partial")})
	}
	if err := writeTable(w, []string{"Field", "Value"}, rows); err != nil {
		return err
	}
	if ins := a.Insights; ins != nil && ins.Available {
		if _, err := fmt.Fprintf(w, "\n%s\n", ins.Summary); err != nil {
			return err
		}
		for _, rec := range ins.Recommendations {
			if _, err := fmt.Fprintf(w, "  - %s\n", rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}
