// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the command layer.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteAnalysis prints one analysis using the configured output format.
func (ow *OutWriter) WriteAnalysis(a *schema.RepositoryAnalysis, cfg *contract.Config) error {
	return WriteAnalysis(a, cfg)
}

// WriteBatch prints a batch report using the configured output format.
func (ow *OutWriter) WriteBatch(job *schema.BatchJob, cfg *contract.Config, duration time.Duration) error {
	return WriteBatch(job, cfg, duration)
}

// WriteRepositories prints list and search results using the configured output format.
func (ow *OutWriter) WriteRepositories(repos []*schema.RepositoryAnalysis, cfg *contract.Config, duration time.Duration) error {
	return WriteRepositoryList(repos, cfg, duration)
}

// WriteSimilarity prints a find-similar report using the configured output format.
func (ow *OutWriter) WriteSimilarity(report schema.SimilarityReport, cfg *contract.Config, duration time.Duration) error {
	return WriteSimilarity(report, cfg, duration)
}

// WriteGraph prints a relationship graph using the configured output format.
func (ow *OutWriter) WriteGraph(graph schema.RelationshipGraph, cfg *contract.Config, duration time.Duration) error {
	return WriteGraph(graph, cfg, duration)
}

// WriteCombinations prints combination suggestions using the configured output format.
func (ow *OutWriter) WriteCombinations(report schema.CombinationReport, cfg *contract.Config, duration time.Duration) error {
	return WriteCombinations(report, cfg, duration)
}
