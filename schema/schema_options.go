package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// AnalysisOptions is the closed set of knobs that drive a scan.
// Every field participates in the fingerprint, so two requests that differ
// in any field are cached separately.
type AnalysisOptions struct {
	Mode               AnalysisMode   `json:"mode"`
	MaxFiles           int            `json:"max_files"`
	MaxLinesPerFile    int            `json:"max_lines_per_file"`
	IncludeLLMAnalysis bool           `json:"include_llm_analysis"`
	LLMProvider        string         `json:"llm_provider"`
	OutputFormats      []ExportFormat `json:"output_formats"`
	IncludeTree        bool           `json:"include_tree"`
}

// AnalysisRequest is one submitted analysis. It is never mutated after submission.
type AnalysisRequest struct {
	RepositoryPath string          `json:"repository_path"`
	Options        AnalysisOptions `json:"options"`
	RequestedAt    time.Time       `json:"requested_at"`
}

// DefaultAnalysisOptions returns the defaults for the given mode.
// An unknown mode falls back to StandardMode.
func DefaultAnalysisOptions(mode AnalysisMode) AnalysisOptions {
	limits, ok := defaultModeLimits[mode]
	if !ok {
		mode = StandardMode
		limits = defaultModeLimits[StandardMode]
	}
	return AnalysisOptions{
		Mode:            mode,
		MaxFiles:        limits.maxFiles,
		MaxLinesPerFile: limits.maxLinesPerFile,
		LLMProvider:     NoneProvider,
		OutputFormats:   []ExportFormat{JSONFormat},
		IncludeTree:     limits.includeTree,
	}
}

// WithDefaults fills zero-valued fields from the mode defaults and puts
// list fields into canonical order. It does not validate.
func (o AnalysisOptions) WithDefaults() AnalysisOptions {
	mode := AnalysisMode(strings.ToLower(strings.TrimSpace(string(o.Mode))))
	if mode == "" {
		mode = StandardMode
	}
	defaults := DefaultAnalysisOptions(mode)
	out := o.Clone()
	out.Mode = mode
	if out.MaxFiles == 0 {
		out.MaxFiles = defaults.MaxFiles
	}
	if out.MaxLinesPerFile == 0 {
		out.MaxLinesPerFile = defaults.MaxLinesPerFile
	}
	out.LLMProvider = strings.ToLower(strings.TrimSpace(out.LLMProvider))
	if out.LLMProvider == "" {
		out.LLMProvider = NoneProvider
	}
	if len(out.OutputFormats) == 0 {
		out.OutputFormats = defaults.OutputFormats
	}
	out.OutputFormats = normalizeFormats(out.OutputFormats)
	return out
}

// Canonical returns a stable serialization used for fingerprinting.
func (o AnalysisOptions) Canonical() string {
	formats := make([]string, len(o.OutputFormats))
	for i, f := range normalizeFormats(o.OutputFormats) {
		formats[i] = string(f)
	}
	return strings.Join([]string{
		"mode=" + string(o.Mode),
		"max_files=" + strconv.Itoa(o.MaxFiles),
		"max_lines=" + strconv.Itoa(o.MaxLinesPerFile),
		"llm=" + strconv.FormatBool(o.IncludeLLMAnalysis),
		"provider=" + o.LLMProvider,
		"formats=" + strings.Join(formats, ","),
		"tree=" + strconv.FormatBool(o.IncludeTree),
	}, ";")
}

// Clone returns a copy that shares no slices with the receiver.
func (o AnalysisOptions) Clone() AnalysisOptions {
	o.OutputFormats = slices.Clone(o.OutputFormats)
	return o
}

// String implements fmt.Stringer.
func (o AnalysisOptions) String() string {
	return fmt.Sprintf("%s(max_files=%d, llm=%t)", o.Mode, o.MaxFiles, o.IncludeLLMAnalysis)
}

// normalizeFormats lowercases, deduplicates and sorts export formats.
func normalizeFormats(formats []ExportFormat) []ExportFormat {
	seen := make(map[ExportFormat]struct{}, len(formats))
	out := make([]ExportFormat, 0, len(formats))
	for _, f := range formats {
		f = ExportFormat(strings.ToLower(strings.TrimSpace(string(f))))
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}
