package algo

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/huangsam/repolens/schema"
)

// BuildGraph scores every pair of records and keeps the edges at or above
// threshold. Unscorable records are listed as failures and left out of the
// nodes. Rows of the pair matrix are scored in parallel by up to 'workers'
// goroutines; the only error returned is the context's.
func (s *Scorer) BuildGraph(ctx context.Context, records []*schema.RepositoryAnalysis, threshold float64, workers int) (schema.RelationshipGraph, error) {
	graph := schema.RelationshipGraph{
		Threshold: threshold,
		Nodes:     []schema.GraphNode{},
		Edges:     []schema.RelationshipEdge{},
	}

	var scorable []features
	var sources []*schema.RepositoryAnalysis
	for _, r := range records {
		f, err := extractFeatures(r)
		if err != nil {
			id := ""
			if r != nil {
				id = r.ID
			}
			graph.Failures = append(graph.Failures, schema.ScoringFailure{RepoID: id, Reason: err.Error()})
			continue
		}
		scorable = append(scorable, f)
		sources = append(sources, r)
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	rows := make([][]schema.RelationshipEdge, len(scorable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range scorable {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < len(scorable); j++ {
				score, _ := s.score(scorable[i], scorable[j])
				if score < threshold {
					continue
				}
				a, b := scorable[i], scorable[j]
				if b.id < a.id {
					a, b = b, a
				}
				rows[i] = append(rows[i], schema.RelationshipEdge{
					RepoIDA:            a.id,
					RepoIDB:            b.id,
					SimilarityScore:    score,
					SharedLanguages:    schema.Intersect(a.languages, b.languages),
					SharedFrameworks:   schema.Intersect(a.frameworks, b.frameworks),
					SharedDependencies: schema.Intersect(a.dependencies, b.dependencies),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return schema.RelationshipGraph{}, err
	}

	degree := make(map[string]int, len(scorable))
	for _, row := range rows {
		for _, e := range row {
			graph.Edges = append(graph.Edges, e)
			degree[e.RepoIDA]++
			degree[e.RepoIDB]++
		}
	}
	graph.Edges = RankEdges(graph.Edges)

	for i, f := range scorable {
		graph.Nodes = append(graph.Nodes, schema.GraphNode{
			RepoID:     f.id,
			Name:       sources[i].Name,
			Languages:  f.languages,
			Frameworks: f.frameworks,
			Degree:     degree[f.id],
		})
	}
	return graph, nil
}
