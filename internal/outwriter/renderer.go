package outwriter

import (
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// Renderer writes analyses and batch reports in the export formats.
type Renderer struct{}

var _ contract.ExportRenderer = &Renderer{} // Compile-time check

// NewRenderer creates a new export renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render writes payload, a *schema.RepositoryAnalysis or a *schema.BatchJob, in format.
func (r *Renderer) Render(w io.Writer, format schema.ExportFormat, payload any) error {
	switch format {
	case schema.JSONFormat:
		return writeJSON(w, payload)
	case schema.MarkdownFormat:
		switch p := payload.(type) {
		case *schema.RepositoryAnalysis:
			return writeAnalysisMarkdown(w, p)
		case *schema.BatchJob:
			return writeBatchMarkdown(w, p)
		}
	case schema.HTMLFormat:
		switch p := payload.(type) {
		case *schema.RepositoryAnalysis:
			return analysisHTML.Execute(w, p)
		case *schema.BatchJob:
			return batchHTML.Execute(w, p)
		}
	default:
		return contract.NewError(schema.InvalidInput, "", fmt.Sprintf("unsupported export format %q", format))
	}
	return contract.NewError(schema.InvalidInput, "", fmt.Sprintf("cannot render %T as %s", payload, format))
}

// ExportFileName is the file name an export of format gets inside an export directory.
func ExportFileName(base string, format schema.ExportFormat) string {
	ext := map[schema.ExportFormat]string{
		schema.JSONFormat:     ".json",
		schema.MarkdownFormat: ".md",
		schema.HTMLFormat:     ".html",
	}[format]
	return sanitizeFileName(base) + ext
}

// WriteExports renders payload once per format into dir and returns the written paths.
func WriteExports(renderer contract.ExportRenderer, dir, base string, formats []schema.ExportFormat, payload any) ([]string, error) {
	var written []string
	for _, format := range formats {
		path := filepath.Join(dir, ExportFileName(base, format))
		err := writeWithFile(path, func(w io.Writer) error {
			return renderer.Render(w, format, payload)
		}, fmt.Sprintf("Wrote %s export", format))
		if err != nil {
			return written, fmt.Errorf("failed to write %s export: %w", format, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func sanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	if strings.Trim(name, "._") == "" {
		return "export"
	}
	return name
}

func writeAnalysisMarkdown(w io.Writer, a *schema.RepositoryAnalysis) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Name)
	b.WriteString("| Field | Value |\n|---|---|\n")
	rows := [][2]string{
		{"ID", a.ID},
		{"Path", a.Path},
		{"Languages", joinOrDash(a.Languages, 0)},
		{"Frameworks", joinOrDash(a.Frameworks, 0)},
		{"Files", fmt.Sprint(a.FileCount)},
		{"Directories", fmt.Sprint(a.DirectoryCount)},
		{"Total size (bytes)", fmt.Sprint(a.TotalSize)},
		{"Lines", fmt.Sprint(a.CodeAnalysis.TotalLines)},
		{"Functions", fmt.Sprint(a.CodeAnalysis.FunctionCount)},
		{"Classes", fmt.Sprint(a.CodeAnalysis.ClassCount)},
		{"Average complexity", fmt.Sprintf("%.2f", a.CodeAnalysis.Complexity.AveragePerFile)},
		{"Mode", string(a.Metadata.AnalysisMode)},
		{"Analyzed", a.UpdatedAt.Format(contract.DateTimeFormat)},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", row[0], escapeMarkdownCell(row[1]))
	}

	writeMarkdownList(&b, "Production dependencies", a.Dependencies.Production)
	writeMarkdownList(&b, "Development dependencies", a.Dependencies.Development)

	if len(a.Structure.KeyFiles) > 0 {
		b.WriteString("\n## Key files\n\n| Path | Importance | Reason |\n|---|---|---|\n")
		for _, kf := range a.Structure.KeyFiles {
			fmt.Fprintf(&b, "| %s | %.2f | %s |\n", escapeMarkdownCell(kf.Path), kf.Importance, kf.Reason)
		}
	}

	if ins := a.Insights; ins != nil {
		fmt.Fprintf(&b, "\n## Insights (%s)\n\n", ins.Provider)
		if !ins.Available {
			fmt.Fprintf(&b, "_Unavailable: %s_\n", ins.Reason)
		} else {
			b.WriteString(ins.Summary + "\n")
			writeMarkdownList(&b, "Highlights", ins.Highlights)
			writeMarkdownList(&b, "Recommendations", ins.Recommendations)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeBatchMarkdown(w io.Writer, job *schema.BatchJob) error {
	var b strings.Builder
	c := job.Counters
	fmt.Fprintf(&b, "# Batch %s\n\n", job.BatchID)
	fmt.Fprintf(&b, "State: **%s** | Total: %d | Completed: %d | Failed: %d | Pending: %d | In progress: %d\n\n",
		job.State, c.Total, c.Completed, c.Failed, c.Pending, c.InProgress)
	b.WriteString("| # | Path | Status | Repository | Error |\n|---|---|---|---|---|\n")
	for _, m := range job.Members {
		errText := ""
		if m.Error != nil {
			errText = string(m.Error.Kind) + ": " + m.Error.Message
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			m.Index+1, escapeMarkdownCell(m.Path), m.Status, m.RepoID, escapeMarkdownCell(errText))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdownList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func escapeMarkdownCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

var templateFuncs = template.FuncMap{
	"join": func(items []string) string { return joinOrDash(items, 0) },
	"inc":  func(i int) int { return i + 1 },
}

var analysisHTML = template.Must(template.New("analysis").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Name}} - repolens</title></head>
<body>
<h1>{{.Name}}</h1>
<table>
<tr><th>ID</th><td>{{.ID}}</td></tr>
<tr><th>Path</th><td>{{.Path}}</td></tr>
<tr><th>Languages</th><td>{{join .Languages}}</td></tr>
<tr><th>Frameworks</th><td>{{join .Frameworks}}</td></tr>
<tr><th>Files</th><td>{{.FileCount}}</td></tr>
<tr><th>Lines</th><td>{{.CodeAnalysis.TotalLines}}</td></tr>
<tr><th>Functions</th><td>{{.CodeAnalysis.FunctionCount}}</td></tr>
<tr><th>Average complexity</th><td>{{printf "%.2f" .CodeAnalysis.Complexity.AveragePerFile}}</td></tr>
<tr><th>Dependencies</th><td>{{join .Dependencies.Production}}</td></tr>
</table>
{{with .Structure.KeyFiles}}<h2>Key files</h2>
<ul>{{range .}}<li>{{.Path}} ({{.Reason}})</li>{{end}}</ul>{{end}}
{{with .Insights}}<h2>Insights</h2>
{{if .Available}}<p>{{.Summary}}</p>
{{with .Highlights}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{with .Recommendations}}<ol>{{range .}}<li>{{.}}</li>{{end}}</ol>{{end}}
{{else}}<p><em>Unavailable: {{.Reason}}</em></p>{{end}}{{end}}
</body>
</html>
`))

var batchHTML = template.Must(template.New("batch").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Batch {{.BatchID}} - repolens</title></head>
<body>
<h1>Batch {{.BatchID}}</h1>
<p>State: {{.State}}. Completed {{.Counters.Completed}} of {{.Counters.Total}}, failed {{.Counters.Failed}}.</p>
<table>
<tr><th>#</th><th>Path</th><th>Status</th><th>Repository</th><th>Error</th></tr>
{{range .Members}}<tr><td>{{inc .Index}}</td><td>{{.Path}}</td><td>{{.Status}}</td><td>{{.RepoID}}</td><td>{{with .Error}}{{.Kind}}: {{.Message}}{{end}}</td></tr>
{{end}}</table>
</body>
</html>
`))
