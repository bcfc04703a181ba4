package schema

import "time"

// SearchQuery filters the index. Every non-empty field must match (AND);
// list fields match when they intersect the record's set (OR within a field).
type SearchQuery struct {
	Languages  []string   `json:"languages,omitempty"`
	Frameworks []string   `json:"frameworks,omitempty"`
	Keywords   []string   `json:"keywords,omitempty"`
	FileTypes  []string   `json:"file_types,omitempty"`
	DateRange  *DateRange `json:"date_range,omitempty"`
	Limit      int        `json:"limit,omitempty"` // 0 means no limit
}

// DateRange bounds UpdatedAt. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the range, inclusive on both ends.
func (d DateRange) Contains(t time.Time) bool {
	if !d.From.IsZero() && t.Before(d.From) {
		return false
	}
	if !d.To.IsZero() && t.After(d.To) {
		return false
	}
	return true
}

// IsEmpty reports whether the query carries no constraint.
func (q SearchQuery) IsEmpty() bool {
	return len(q.Languages) == 0 && len(q.Frameworks) == 0 && len(q.Keywords) == 0 &&
		len(q.FileTypes) == 0 && q.DateRange == nil
}

// ScoringFailure explains why a node was left out of a similarity result.
type ScoringFailure struct {
	RepoID string `json:"repo_id"`
	Reason string `json:"reason"`
}

// SimilarityMatch is one ranked neighbor of a repository.
type SimilarityMatch struct {
	RepoID             string                `json:"repo_id"`
	Name               string                `json:"name"`
	Score              float64               `json:"score"`
	Breakdown          map[WeightKey]float64 `json:"breakdown"`
	SharedLanguages    []string              `json:"shared_languages"`
	SharedFrameworks   []string              `json:"shared_frameworks"`
	SharedDependencies []string              `json:"shared_dependencies"`
}

// SimilarityReport is the result of a find-similar query.
type SimilarityReport struct {
	RepoID   string            `json:"repo_id"`
	Matches  []SimilarityMatch `json:"matches"`
	Failures []ScoringFailure  `json:"failures,omitempty"`
}

// RelationshipEdge connects two repositories whose similarity passed the threshold.
type RelationshipEdge struct {
	RepoIDA            string   `json:"repo_id_a"`
	RepoIDB            string   `json:"repo_id_b"`
	SimilarityScore    float64  `json:"similarity_score"`
	SharedLanguages    []string `json:"shared_languages"`
	SharedFrameworks   []string `json:"shared_frameworks"`
	SharedDependencies []string `json:"shared_dependencies"`
}

// GraphNode is one repository in a relationship graph.
type GraphNode struct {
	RepoID     string   `json:"repo_id"`
	Name       string   `json:"name"`
	Languages  []string `json:"languages"`
	Frameworks []string `json:"frameworks"`
	Degree     int      `json:"degree"`
}

// RelationshipGraph is a view over the index; it is never persisted.
type RelationshipGraph struct {
	Threshold float64            `json:"threshold"`
	Nodes     []GraphNode        `json:"nodes"`
	Edges     []RelationshipEdge `json:"edges"`
	Failures  []ScoringFailure   `json:"failures,omitempty"`
}

// CombinationSuggestion is one candidate grouping ranked by synergy.
type CombinationSuggestion struct {
	RepoIDs                 []string              `json:"repo_ids"`
	Names                   []string              `json:"names"`
	Synergy                 float64               `json:"synergy"`
	Breakdown               map[WeightKey]float64 `json:"breakdown"`
	SharedDependencies      []string              `json:"shared_dependencies"`
	ComplementaryFrameworks []string              `json:"complementary_frameworks"`
	SharedLanguages         []string              `json:"shared_languages"`
}

// CombinationReport is the result of a suggest-combinations query.
type CombinationReport struct {
	Suggestions []CombinationSuggestion `json:"suggestions"`
	Failures    []ScoringFailure        `json:"failures,omitempty"`
}
