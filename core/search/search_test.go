package search

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/huangsam/repolens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func fixtures() []*schema.RepositoryAnalysis {
	return []*schema.RepositoryAnalysis{
		{
			ID: "flask-api", Name: "flask-api", Path: "/repos/flask-api",
			Languages: []string{"python"}, Frameworks: []string{"flask"},
			Dependencies: schema.Dependencies{Production: []string{"flask", "requests"}},
			Structure:    schema.Structure{FileTypes: map[string]int{".py": 4}},
			UpdatedAt:    base.Add(3 * time.Hour),
		},
		{
			ID: "web-ui", Name: "web-ui", Path: "/repos/web-ui",
			Languages: []string{"typescript", "javascript"}, Frameworks: []string{"react"},
			Dependencies: schema.Dependencies{Production: []string{"react"}, Development: []string{"jest"}},
			Structure:    schema.Structure{FileTypes: map[string]int{".ts": 10, ".tsx": 5}},
			UpdatedAt:    base.Add(2 * time.Hour),
		},
		{
			ID: "cli-tool", Name: "cli-tool", Path: "/repos/cli-tool",
			Languages: []string{"go"}, Frameworks: []string{"cobra"},
			Dependencies: schema.Dependencies{Production: []string{"github.com/spf13/cobra"}},
			Structure:    schema.Structure{FileTypes: map[string]int{".go": 12}},
			Insights:     &schema.Insights{Available: true, Summary: "A command line utility for backups"},
			UpdatedAt:    base.Add(3 * time.Hour),
		},
		{
			ID: "django-site", Name: "django-site", Path: "/repos/django-site",
			Languages: []string{"python", "javascript"}, Frameworks: []string{"django"},
			Structure: schema.Structure{FileTypes: map[string]int{".py": 20, ".js": 2}},
			UpdatedAt: base,
		},
	}
}

func ids(records []*schema.RepositoryAnalysis) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		query    schema.SearchQuery
		expected []string
	}{
		{
			name:     "empty query returns all by recency then id",
			query:    schema.SearchQuery{},
			expected: []string{"cli-tool", "flask-api", "web-ui", "django-site"},
		},
		{
			name:     "or within languages",
			query:    schema.SearchQuery{Languages: []string{"Go", "TypeScript"}},
			expected: []string{"cli-tool", "web-ui"},
		},
		{
			name:     "and across fields",
			query:    schema.SearchQuery{Languages: []string{"python"}, Frameworks: []string{"flask"}},
			expected: []string{"flask-api"},
		},
		{
			name:     "file types without dot",
			query:    schema.SearchQuery{FileTypes: []string{"js"}},
			expected: []string{"django-site"},
		},
		{
			name:     "keyword hits dependencies",
			query:    schema.SearchQuery{Keywords: []string{"requests"}},
			expected: []string{"flask-api"},
		},
		{
			name:     "keyword hits insights",
			query:    schema.SearchQuery{Keywords: []string{"BACKUPS"}},
			expected: []string{"cli-tool"},
		},
		{
			name:     "date range is inclusive",
			query:    schema.SearchQuery{DateRange: &schema.DateRange{From: base, To: base.Add(2 * time.Hour)}},
			expected: []string{"web-ui", "django-site"},
		},
		{
			name:     "no match",
			query:    schema.SearchQuery{Languages: []string{"rust"}},
			expected: []string{},
		},
		{
			name:     "limit",
			query:    schema.SearchQuery{Languages: []string{"python"}, Limit: 1},
			expected: []string{"flask-api"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(Filter(fixtures(), tt.query)))
		})
	}
}

type staticSource []*schema.RepositoryAnalysis

func (s staticSource) All() []*schema.RepositoryAnalysis { return s }

func TestEngineSearch(t *testing.T) {
	e := New(staticSource(fixtures()))
	got := e.Search(schema.SearchQuery{Frameworks: []string{"react", "django"}})
	assert.Equal(t, []string{"web-ui", "django-site"}, ids(got))
}

// TestFilterSoundAndComplete checks Filter against Matches on random corpora:
// every result matches (soundness) and every matching record is returned (completeness).
func TestFilterSoundAndComplete(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	langs := []string{"go", "python", "rust", "typescript"}
	fws := []string{"gin", "flask", "react", "axum"}
	pick := func(pool []string) []string {
		var out []string
		for _, p := range pool {
			if rng.IntN(3) == 0 {
				out = append(out, p)
			}
		}
		return out
	}

	var corpus []*schema.RepositoryAnalysis
	for i := range 60 {
		corpus = append(corpus, &schema.RepositoryAnalysis{
			ID:         fmt.Sprintf("r%02d", i),
			Name:       fmt.Sprintf("repo-%d", i),
			Languages:  pick(langs),
			Frameworks: pick(fws),
			UpdatedAt:  base.Add(time.Duration(rng.IntN(10)) * time.Hour),
		})
	}

	for range 50 {
		q := schema.SearchQuery{Languages: pick(langs), Frameworks: pick(fws)}
		got := Filter(corpus, q)

		for _, r := range got {
			require.True(t, Matches(r, q), "unsound result %s", r.ID)
		}
		gotIDs := ids(got)
		for _, r := range corpus {
			if Matches(r, q) {
				assert.True(t, slices.Contains(gotIDs, r.ID), "missing %s", r.ID)
			}
		}
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].UpdatedAt.After(got[i-1].UpdatedAt), "results are ordered by recency")
		}
	}
}
