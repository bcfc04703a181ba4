// Package schema has the models and typed constants shared by all parts of repolens.
package schema

import (
	"maps"
	"slices"
	"time"
)

// RepositoryAnalysis is the unit of record stored in the repository index.
type RepositoryAnalysis struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Path           string           `json:"path"`
	Fingerprint    string           `json:"fingerprint"`
	Languages      []string         `json:"languages"`
	Frameworks     []string         `json:"frameworks"`
	FileCount      int              `json:"file_count"`
	DirectoryCount int              `json:"directory_count"`
	TotalSize      int64            `json:"total_size"`
	Structure      Structure        `json:"structure"`
	CodeAnalysis   CodeAnalysis     `json:"code_analysis"`
	Dependencies   Dependencies     `json:"dependencies"`
	Insights       *Insights        `json:"insights,omitempty"`
	Metadata       AnalysisMetadata `json:"metadata"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Structure describes the layout of a repository.
type Structure struct {
	Tree      *DirectoryNode `json:"tree,omitempty"`
	KeyFiles  []KeyFile      `json:"key_files"`
	FileTypes map[string]int `json:"file_types"` // Maps lowercase extension (".go") to file count
}

// DirectoryNode is one directory in the repository tree.
type DirectoryNode struct {
	Name      string          `json:"name"`
	Path      string          `json:"path"`
	FileCount int             `json:"file_count"`
	Children  []DirectoryNode `json:"children,omitempty"`
}

// KeyFile is a file that carries more meaning than its neighbors (manifests, entry points, docs).
type KeyFile struct {
	Path       string  `json:"path"`
	Importance float64 `json:"importance"` // 0-1
	Reason     string  `json:"reason"`
}

// CodeAnalysis holds source-level counts.
type CodeAnalysis struct {
	TotalLines    int               `json:"total_lines"`
	FunctionCount int               `json:"function_count"`
	ClassCount    int               `json:"class_count"`
	ImportCount   int               `json:"import_count"`
	LanguageLines map[string]int    `json:"language_lines"`
	Complexity    ComplexityMetrics `json:"complexity"`
}

// ComplexityMetrics summarizes decision-point counts across analyzed files.
type ComplexityMetrics struct {
	Total          int     `json:"total"`
	AveragePerFile float64 `json:"average_per_file"`
	MaxFile        string  `json:"max_file,omitempty"`
	MaxFileScore   int     `json:"max_file_score"`
}

// Dependencies lists declared dependencies by role.
type Dependencies struct {
	Production  []string `json:"production"`
	Development []string `json:"development"`
	Frameworks  []string `json:"frameworks"`
}

// Insights is the optional narrative produced by an insight provider.
type Insights struct {
	Available       bool       `json:"available"`
	Provider        string     `json:"provider"`
	Summary         string     `json:"summary,omitempty"`
	Highlights      []string   `json:"highlights,omitempty"`
	Recommendations []string   `json:"recommendations,omitempty"`
	Reason          string     `json:"reason,omitempty"` // Set when Available is false
	Usage           TokenUsage `json:"usage"`
}

// TokenUsage records LLM token consumption for one analysis.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// AnalysisMetadata records how an analysis was produced.
type AnalysisMetadata struct {
	AnalysisMode     AnalysisMode    `json:"analysis_mode"`
	Provider         string          `json:"provider"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
	TokenUsage       TokenUsage      `json:"token_usage"`
	Options          AnalysisOptions `json:"options"`
	Truncated        bool            `json:"truncated"` // MaxFiles was reached
}

// TopLevelDependencies returns the normalized union of production and development dependency names.
func (d Dependencies) TopLevelDependencies() []string {
	all := make([]string, 0, len(d.Production)+len(d.Development))
	all = append(all, d.Production...)
	all = append(all, d.Development...)
	return NormalizeSet(all)
}

// ProcessingTime returns the recorded processing time as a duration.
func (m AnalysisMetadata) ProcessingTime() time.Duration {
	return time.Duration(m.ProcessingTimeMs) * time.Millisecond
}

// Clone returns a deep copy of the analysis.
func (r *RepositoryAnalysis) Clone() *RepositoryAnalysis {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Languages = slices.Clone(r.Languages)
	clone.Frameworks = slices.Clone(r.Frameworks)
	clone.Structure = r.Structure.clone()
	clone.CodeAnalysis.LanguageLines = maps.Clone(r.CodeAnalysis.LanguageLines)
	clone.Dependencies = Dependencies{
		Production:  slices.Clone(r.Dependencies.Production),
		Development: slices.Clone(r.Dependencies.Development),
		Frameworks:  slices.Clone(r.Dependencies.Frameworks),
	}
	if r.Insights != nil {
		ins := *r.Insights
		ins.Highlights = slices.Clone(r.Insights.Highlights)
		ins.Recommendations = slices.Clone(r.Insights.Recommendations)
		clone.Insights = &ins
	}
	clone.Metadata.Options = r.Metadata.Options.Clone()
	return &clone
}

func (s Structure) clone() Structure {
	out := Structure{
		KeyFiles:  slices.Clone(s.KeyFiles),
		FileTypes: maps.Clone(s.FileTypes),
	}
	if s.Tree != nil {
		tree := s.Tree.clone()
		out.Tree = &tree
	}
	return out
}

func (n DirectoryNode) clone() DirectoryNode {
	out := n
	if n.Children != nil {
		out.Children = make([]DirectoryNode, len(n.Children))
		for i, child := range n.Children {
			out.Children[i] = child.clone()
		}
	}
	return out
}
