package schema

import (
	"slices"
	"strings"
)

// NormalizeSet trims, lowercases, deduplicates and sorts a list of names.
// Empty entries are dropped. The result is never nil.
func NormalizeSet(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	slices.Sort(out)
	return out
}

// Intersect returns the sorted, normalized intersection of a and b.
func Intersect(a, b []string) []string {
	right := toSet(b)
	out := []string{}
	for _, item := range NormalizeSet(a) {
		if _, ok := right[item]; ok {
			out = append(out, item)
		}
	}
	return out
}

// Union returns the sorted, normalized union of a and b.
func Union(a, b []string) []string {
	all := make([]string, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return NormalizeSet(all)
}

// Intersects reports whether a and b share at least one normalized element.
func Intersects(a, b []string) bool {
	right := toSet(b)
	for _, item := range a {
		if _, ok := right[strings.ToLower(strings.TrimSpace(item))]; ok {
			return true
		}
	}
	return false
}

// Jaccard returns |a∩b| / |a∪b| over normalized sets. Two empty sets are identical (1.0).
func Jaccard(a, b []string) float64 {
	union := Union(a, b)
	if len(union) == 0 {
		return 1
	}
	return float64(len(Intersect(a, b))) / float64(len(union))
}

// NormalizeExtension lowercases an extension and guarantees a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// toSet builds a lookup set of normalized items.
func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}
