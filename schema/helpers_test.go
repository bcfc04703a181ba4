package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSet(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil input", nil, []string{}},
		{"dedup and lowercase", []string{"Go", "go", " GO "}, []string{"go"}},
		{"sorted", []string{"python", "Go", "rust"}, []string{"go", "python", "rust"}},
		{"drops empties", []string{"", "  ", "java"}, []string{"java"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSet(tt.input))
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []string
		expected float64
	}{
		{"both empty", nil, nil, 1.0},
		{"identical", []string{"go", "python"}, []string{"Python", "Go"}, 1.0},
		{"disjoint", []string{"go"}, []string{"rust"}, 0.0},
		{"half overlap", []string{"go", "python"}, []string{"go", "rust"}, 1.0 / 3.0},
		{"one empty", []string{"go"}, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Jaccard(tt.a, tt.b), 1e-9)
			assert.InDelta(t, Jaccard(tt.a, tt.b), Jaccard(tt.b, tt.a), 1e-12, "jaccard must be symmetric")
		})
	}
}

func TestIntersectAndUnion(t *testing.T) {
	a := []string{"Flask", "requests", "pytest"}
	b := []string{"flask", "Django"}

	assert.Equal(t, []string{"flask"}, Intersect(a, b))
	assert.Equal(t, []string{"django", "flask", "pytest", "requests"}, Union(a, b))
	assert.True(t, Intersects(a, b))
	assert.False(t, Intersects(a, []string{"gin"}))
	assert.Equal(t, []string{}, Intersect(nil, b))
}

func TestNormalizeExtension(t *testing.T) {
	assert.Equal(t, ".go", NormalizeExtension("GO"))
	assert.Equal(t, ".py", NormalizeExtension(".py"))
	assert.Equal(t, "", NormalizeExtension("  "))
}
