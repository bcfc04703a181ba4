// Package algo scores repositories against each other: pairwise similarity,
// thresholded relationship graphs and ranked combination suggestions.
package algo

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/huangsam/repolens/schema"
)

// ErrUnscorable marks a record that has no usable feature vector.
var ErrUnscorable = errors.New("record is unscorable")

// features is the normalized view of a record used for scoring.
type features struct {
	id            string
	languages     []string
	frameworks    []string
	dependencies  []string
	fileCount     float64
	totalSize     float64
	avgComplexity float64
}

// extractFeatures normalizes a record, or explains why it cannot be scored.
func extractFeatures(r *schema.RepositoryAnalysis) (features, error) {
	if r == nil || r.ID == "" {
		return features{}, fmt.Errorf("%w: missing id", ErrUnscorable)
	}
	f := features{
		id:            r.ID,
		languages:     schema.NormalizeSet(r.Languages),
		frameworks:    schema.NormalizeSet(slices.Concat(r.Frameworks, r.Dependencies.Frameworks)),
		dependencies:  r.Dependencies.TopLevelDependencies(),
		fileCount:     float64(r.FileCount),
		totalSize:     float64(r.TotalSize),
		avgComplexity: r.CodeAnalysis.Complexity.AveragePerFile,
	}
	metrics := []struct {
		name  string
		value float64
	}{
		{"file count", f.fileCount},
		{"total size", f.totalSize},
		{"complexity", f.avgComplexity},
	}
	for _, m := range metrics {
		if math.IsNaN(m.value) || math.IsInf(m.value, 0) || m.value < 0 {
			return features{}, fmt.Errorf("%w: invalid %s %v", ErrUnscorable, m.name, m.value)
		}
	}
	if len(f.languages) == 0 && len(f.dependencies) == 0 && f.fileCount == 0 {
		return features{}, fmt.Errorf("%w: no languages, dependencies or files", ErrUnscorable)
	}
	return f, nil
}

// closeness maps two non-negative magnitudes to [0,1]; equal values score 1.
func closeness(x, y float64) float64 {
	hi := math.Max(x, y)
	if hi == 0 {
		return 1
	}
	return 1 - math.Abs(x-y)/hi
}

// Scorer computes weighted similarity between two records.
type Scorer struct {
	weights map[schema.WeightKey]float64
	total   float64
}

// NewScorer creates a Scorer. Missing keys weigh 0; nil or an all-zero map uses the defaults.
func NewScorer(weights map[schema.WeightKey]float64) *Scorer {
	s := &Scorer{weights: make(map[schema.WeightKey]float64, len(schema.SimilarityWeightKeys))}
	for _, key := range schema.SimilarityWeightKeys {
		if w := weights[key]; w > 0 {
			s.weights[key] = w
			s.total += w
		}
	}
	if s.total == 0 {
		return NewScorer(schema.GetDefaultSimilarityWeights())
	}
	return s
}

// Weights returns a copy of the effective weights.
func (s *Scorer) Weights() map[schema.WeightKey]float64 {
	out := make(map[schema.WeightKey]float64, len(s.weights))
	for k, v := range s.weights {
		out[k] = v
	}
	return out
}

// Score returns the similarity of a and b in [0,1] with its per-component breakdown.
// It is symmetric, and Score(a, a) is 1 for any scorable a.
func (s *Scorer) Score(a, b *schema.RepositoryAnalysis) (float64, map[schema.WeightKey]float64, error) {
	fa, err := extractFeatures(a)
	if err != nil {
		return 0, nil, err
	}
	fb, err := extractFeatures(b)
	if err != nil {
		return 0, nil, err
	}
	score, breakdown := s.score(fa, fb)
	return score, breakdown, nil
}

func (s *Scorer) score(a, b features) (float64, map[schema.WeightKey]float64) {
	breakdown := map[schema.WeightKey]float64{
		schema.WeightLanguages:    schema.Jaccard(a.languages, b.languages),
		schema.WeightFrameworks:   schema.Jaccard(a.frameworks, b.frameworks),
		schema.WeightDependencies: schema.Jaccard(a.dependencies, b.dependencies),
		schema.WeightSize:         (closeness(a.fileCount, b.fileCount) + closeness(a.totalSize, b.totalSize)) / 2,
		schema.WeightComplexity:   closeness(a.avgComplexity, b.avgComplexity),
	}
	var sum float64
	for _, key := range schema.SimilarityWeightKeys {
		sum += s.weights[key] * breakdown[key]
	}
	return clamp01(sum / s.total), breakdown
}

// FindSimilar ranks candidates by similarity to target. Candidates with the
// target's id are skipped, unscorable candidates are reported as failures,
// and matches below minScore are dropped. A limit of 0 keeps every match.
func (s *Scorer) FindSimilar(target *schema.RepositoryAnalysis, candidates []*schema.RepositoryAnalysis, limit int, minScore float64) schema.SimilarityReport {
	report := schema.SimilarityReport{Matches: []schema.SimilarityMatch{}}
	if target != nil {
		report.RepoID = target.ID
	}
	ft, err := extractFeatures(target)
	if err != nil {
		report.Failures = append(report.Failures, schema.ScoringFailure{RepoID: report.RepoID, Reason: err.Error()})
		return report
	}

	for _, c := range candidates {
		if c == nil || c.ID == ft.id {
			continue
		}
		fc, err := extractFeatures(c)
		if err != nil {
			report.Failures = append(report.Failures, schema.ScoringFailure{RepoID: c.ID, Reason: err.Error()})
			continue
		}
		score, breakdown := s.score(ft, fc)
		if score < minScore {
			continue
		}
		report.Matches = append(report.Matches, schema.SimilarityMatch{
			RepoID:             c.ID,
			Name:               c.Name,
			Score:              score,
			Breakdown:          breakdown,
			SharedLanguages:    schema.Intersect(ft.languages, fc.languages),
			SharedFrameworks:   schema.Intersect(ft.frameworks, fc.frameworks),
			SharedDependencies: schema.Intersect(ft.dependencies, fc.dependencies),
		})
	}
	report.Matches = RankMatches(report.Matches, limit)
	return report
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
