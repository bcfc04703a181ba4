package algo

import (
	"sort"
	"strings"

	"github.com/huangsam/repolens/schema"
)

// RankMatches sorts matches by score in descending order (repo id breaks ties)
// and returns the top 'limit' matches. A limit of 0 or less keeps every match.
func RankMatches(matches []schema.SimilarityMatch, limit int) []schema.SimilarityMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].RepoID < matches[j].RepoID
	})
	if limit > 0 && len(matches) > limit {
		return matches[:limit]
	}
	return matches
}

// RankEdges sorts edges by similarity in descending order, then by endpoint ids.
func RankEdges(edges []schema.RelationshipEdge) []schema.RelationshipEdge {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].SimilarityScore != edges[j].SimilarityScore {
			return edges[i].SimilarityScore > edges[j].SimilarityScore
		}
		if edges[i].RepoIDA != edges[j].RepoIDA {
			return edges[i].RepoIDA < edges[j].RepoIDA
		}
		return edges[i].RepoIDB < edges[j].RepoIDB
	})
	return edges
}

// RankSuggestions sorts suggestions by synergy in descending order, then by their
// joined repo ids, and returns the top 'limit'. A limit of 0 or less keeps everything.
func RankSuggestions(suggestions []schema.CombinationSuggestion, limit int) []schema.CombinationSuggestion {
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Synergy != suggestions[j].Synergy {
			return suggestions[i].Synergy > suggestions[j].Synergy
		}
		return strings.Join(suggestions[i].RepoIDs, ",") < strings.Join(suggestions[j].RepoIDs, ",")
	})
	if limit > 0 && len(suggestions) > limit {
		return suggestions[:limit]
	}
	return suggestions
}
