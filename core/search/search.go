// Package search filters indexed analyses by language, framework, keyword, file type and date.
package search

import (
	"slices"
	"strings"

	"github.com/huangsam/repolens/schema"
)

// Source provides snapshots of indexed analyses.
type Source interface {
	All() []*schema.RepositoryAnalysis
}

// Engine answers search queries over a Source.
type Engine struct {
	source Source
}

// New creates an Engine.
func New(source Source) *Engine {
	return &Engine{source: source}
}

// Search runs q against the current snapshot.
func (e *Engine) Search(q schema.SearchQuery) []*schema.RepositoryAnalysis {
	return Filter(e.source.All(), q)
}

// Filter returns the analyses matching q, ordered by UpdatedAt descending and
// then by ID ascending. A zero Limit returns every match.
func Filter(records []*schema.RepositoryAnalysis, q schema.SearchQuery) []*schema.RepositoryAnalysis {
	m := newMatcher(q)
	out := make([]*schema.RepositoryAnalysis, 0)
	for _, r := range records {
		if r != nil && m.matches(r) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b *schema.RepositoryAnalysis) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Matches reports whether a single analysis satisfies q.
func Matches(r *schema.RepositoryAnalysis, q schema.SearchQuery) bool {
	return newMatcher(q).matches(r)
}

// matcher holds the normalized query so each record is checked without re-normalizing.
type matcher struct {
	languages  []string
	frameworks []string
	keywords   []string
	fileTypes  []string
	dateRange  *schema.DateRange
}

func newMatcher(q schema.SearchQuery) matcher {
	m := matcher{
		languages:  schema.NormalizeSet(q.Languages),
		frameworks: schema.NormalizeSet(q.Frameworks),
		keywords:   schema.NormalizeSet(q.Keywords),
		dateRange:  q.DateRange,
	}
	for _, ft := range q.FileTypes {
		if ext := schema.NormalizeExtension(ft); ext != "" {
			m.fileTypes = append(m.fileTypes, ext)
		}
	}
	return m
}

func (m matcher) matches(r *schema.RepositoryAnalysis) bool {
	if len(m.languages) > 0 && !schema.Intersects(m.languages, r.Languages) {
		return false
	}
	if len(m.frameworks) > 0 && !schema.Intersects(m.frameworks, frameworksOf(r)) {
		return false
	}
	if len(m.fileTypes) > 0 && !m.matchFileTypes(r) {
		return false
	}
	if len(m.keywords) > 0 && !m.matchKeywords(r) {
		return false
	}
	if m.dateRange != nil && !m.dateRange.Contains(r.UpdatedAt) {
		return false
	}
	return true
}

func (m matcher) matchFileTypes(r *schema.RepositoryAnalysis) bool {
	for ext, count := range r.Structure.FileTypes {
		if count > 0 && slices.Contains(m.fileTypes, schema.NormalizeExtension(ext)) {
			return true
		}
	}
	return false
}

// matchKeywords does a case-insensitive substring match against the searchable text of r.
func (m matcher) matchKeywords(r *schema.RepositoryAnalysis) bool {
	haystack := searchableText(r)
	for _, kw := range m.keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func frameworksOf(r *schema.RepositoryAnalysis) []string {
	all := slices.Concat(r.Frameworks, r.Dependencies.Frameworks)
	return schema.NormalizeSet(all)
}

func searchableText(r *schema.RepositoryAnalysis) string {
	parts := []string{r.Name, r.Path}
	parts = append(parts, r.Languages...)
	parts = append(parts, r.Frameworks...)
	parts = append(parts, r.Dependencies.Production...)
	parts = append(parts, r.Dependencies.Development...)
	for _, kf := range r.Structure.KeyFiles {
		parts = append(parts, kf.Path)
	}
	if r.Insights != nil && r.Insights.Available {
		parts = append(parts, r.Insights.Summary)
		parts = append(parts, r.Insights.Highlights...)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}
