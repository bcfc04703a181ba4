package algo

import (
	"sort"

	"github.com/huangsam/repolens/schema"
)

// SynergyOptions tunes combination suggestions.
type SynergyOptions struct {
	Weights         map[schema.WeightKey]float64
	MaxGroupSize    int // Largest group considered, at least 2
	MaxCombinations int // Above this many candidate groups only pairs are scored
	Limit           int // 0 keeps every suggestion
}

// synergyWeights returns the effective weights and their sum, falling back to the defaults.
func (o SynergyOptions) synergyWeights() (map[schema.WeightKey]float64, float64) {
	weights := make(map[schema.WeightKey]float64, len(schema.SynergyWeightKeys))
	var total float64
	for _, key := range schema.SynergyWeightKeys {
		if w := o.Weights[key]; w > 0 {
			weights[key] = w
			total += w
		}
	}
	if total == 0 {
		return SynergyOptions{Weights: schema.GetDefaultSynergyWeights()}.synergyWeights()
	}
	return weights, total
}

// SuggestCombinations ranks groups of records by synergy: how much they share
// in dependencies and languages and how well their frameworks complement each other.
func SuggestCombinations(records []*schema.RepositoryAnalysis, opts SynergyOptions) schema.CombinationReport {
	report := schema.CombinationReport{Suggestions: []schema.CombinationSuggestion{}}

	var members []features
	names := make(map[string]string)
	for _, r := range records {
		f, err := extractFeatures(r)
		if err != nil {
			id := ""
			if r != nil {
				id = r.ID
			}
			report.Failures = append(report.Failures, schema.ScoringFailure{RepoID: id, Reason: err.Error()})
			continue
		}
		members = append(members, f)
		names[f.id] = r.Name
	}
	sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })

	maxSize := opts.MaxGroupSize
	if maxSize < 2 {
		maxSize = 2
	}
	if maxSize > len(members) {
		maxSize = len(members)
	}
	if opts.MaxCombinations > 0 && countGroups(len(members), maxSize, opts.MaxCombinations) > opts.MaxCombinations {
		maxSize = 2
	}

	weights, total := opts.synergyWeights()
	for size := 2; size <= maxSize; size++ {
		forEachGroup(len(members), size, func(idx []int) {
			group := make([]features, len(idx))
			for i, k := range idx {
				group[i] = members[k]
			}
			report.Suggestions = append(report.Suggestions, synergyOf(group, names, weights, total))
		})
	}
	report.Suggestions = RankSuggestions(report.Suggestions, opts.Limit)
	return report
}

// synergyOf scores one group.
func synergyOf(group []features, names map[string]string, weights map[schema.WeightKey]float64, total float64) schema.CombinationSuggestion {
	var depSum, langSum float64
	pairs := 0
	for i := range group {
		for j := i + 1; j < len(group); j++ {
			depSum += schema.Jaccard(group[i].dependencies, group[j].dependencies)
			langSum += schema.Jaccard(group[i].languages, group[j].languages)
			pairs++
		}
	}

	owners := make(map[string]int)
	sharedDeps := group[0].dependencies
	sharedLangs := group[0].languages
	for _, f := range group {
		for _, fw := range f.frameworks {
			owners[fw]++
		}
		sharedDeps = schema.Intersect(sharedDeps, f.dependencies)
		sharedLangs = schema.Intersect(sharedLangs, f.languages)
	}
	complementary := []string{}
	for fw, n := range owners {
		if n == 1 {
			complementary = append(complementary, fw)
		}
	}
	sort.Strings(complementary)

	breakdown := map[schema.WeightKey]float64{
		schema.WeightDependencyOverlap:   depSum / float64(pairs),
		schema.WeightFrameworkComplement: 0,
		schema.WeightLanguageOverlap:     langSum / float64(pairs),
	}
	if len(owners) > 0 {
		breakdown[schema.WeightFrameworkComplement] = float64(len(complementary)) / float64(len(owners))
	}
	var sum float64
	for _, key := range schema.SynergyWeightKeys {
		sum += weights[key] * breakdown[key]
	}

	ids := make([]string, len(group))
	groupNames := make([]string, len(group))
	for i, f := range group {
		ids[i] = f.id
		groupNames[i] = names[f.id]
	}
	return schema.CombinationSuggestion{
		RepoIDs:                 ids,
		Names:                   groupNames,
		Synergy:                 clamp01(sum / total),
		Breakdown:               breakdown,
		SharedDependencies:      sharedDeps,
		ComplementaryFrameworks: complementary,
		SharedLanguages:         sharedLangs,
	}
}

// countGroups returns the number of groups of size 2..maxSize from n items,
// stopping early once the count passes ceiling.
func countGroups(n, maxSize, ceiling int) int {
	total := 0
	for k := 2; k <= maxSize; k++ {
		c := 1
		for i := 0; i < k; i++ {
			c = c * (n - i) / (i + 1)
			if c > ceiling {
				return ceiling + 1
			}
		}
		total += c
		if total > ceiling {
			return ceiling + 1
		}
	}
	return total
}

// forEachGroup calls fn with every ascending index combination of size k from n.
func forEachGroup(n, k int, fn func(idx []int)) {
	if k > n || k <= 0 {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
