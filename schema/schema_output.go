package schema

// Similarity label values.
const (
	StrongLabel    = "Strong"
	RelatedLabel   = "Related"
	WeakLabel      = "Weak"
	UnrelatedLabel = "Unrelated"
)

// EnrichedSimilarityMatch adds presentation data to a SimilarityMatch.
type EnrichedSimilarityMatch struct {
	Rank  int    `json:"rank"`
	Label string `json:"label"`
	SimilarityMatch
}

// EnrichedCombination adds presentation data to a CombinationSuggestion.
type EnrichedCombination struct {
	Rank  int    `json:"rank"`
	Label string `json:"label"`
	CombinationSuggestion
}

// GetPlainLabel returns a plain text label for a score in [0,1].
func GetPlainLabel(score float64) string {
	switch {
	case score >= 0.75:
		return StrongLabel
	case score >= 0.5:
		return RelatedLabel
	case score >= 0.25:
		return WeakLabel
	default:
		return UnrelatedLabel
	}
}

// EnrichMatches adds rank and label to a list of similarity matches.
func EnrichMatches(matches []SimilarityMatch) []EnrichedSimilarityMatch {
	output := make([]EnrichedSimilarityMatch, len(matches))
	for i, m := range matches {
		output[i] = EnrichedSimilarityMatch{
			Rank:            i + 1,
			Label:           GetPlainLabel(m.Score),
			SimilarityMatch: m,
		}
	}
	return output
}

// EnrichCombinations adds rank and label to a list of combination suggestions.
func EnrichCombinations(suggestions []CombinationSuggestion) []EnrichedCombination {
	output := make([]EnrichedCombination, len(suggestions))
	for i, s := range suggestions {
		output[i] = EnrichedCombination{
			Rank:                  i + 1,
			Label:                 GetPlainLabel(s.Synergy),
			CombinationSuggestion: s,
		}
	}
	return output
}
