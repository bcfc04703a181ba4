// Package parquet provides data structures and functions for exporting the
// repository index to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/huangsam/repolens/schema"
)

// Repository represents one indexed repository.
// This struct maps to the repolens_repositories database table, with the
// most useful payload fields lifted into their own columns.
type Repository struct {
	// RepoID is the stable repository identifier
	RepoID string `parquet:"repo_id,snappy"`

	RepoName string `parquet:"repo_name,snappy"`
	RepoPath string `parquet:"repo_path,snappy"`

	// Fingerprint identifies the repository state that was analyzed
	Fingerprint string `parquet:"fingerprint,snappy"`

	// Languages and Frameworks are comma separated and sorted
	Languages  string `parquet:"languages,snappy"`
	Frameworks string `parquet:"frameworks,snappy"`

	FileCount         int64   `parquet:"file_count,snappy"`
	TotalSize         int64   `parquet:"total_size,snappy"`
	TotalLines        int64   `parquet:"total_lines,snappy"`
	AverageComplexity float64 `parquet:"average_complexity,snappy"`
	AnalysisMode      string  `parquet:"analysis_mode,snappy"`

	// InsightSummary is empty when no insight was generated (nullable)
	InsightSummary *string `parquet:"insight_summary,optional,snappy"`

	CreatedAt time.Time `parquet:"created_at,snappy"`
	UpdatedAt time.Time `parquet:"updated_at,snappy"`

	// Payload is the full JSON-encoded analysis
	Payload string `parquet:"payload,snappy"`
}

// Fingerprint represents one row of the repolens_fingerprints database table.
type Fingerprint struct {
	Fingerprint string    `parquet:"fingerprint,snappy"`
	RepoID      string    `parquet:"repo_id,snappy"`
	CommittedAt time.Time `parquet:"committed_at,snappy"`
}

// ConvertRepositoryRecords flattens stored records into Parquet rows.
// Records whose payload cannot be decoded keep only their table columns.
func ConvertRepositoryRecords(records []schema.RepositoryRecord) []Repository {
	rows := make([]Repository, 0, len(records))
	for _, record := range records {
		row := Repository{
			RepoID:      record.RepoID,
			RepoName:    record.RepoName,
			RepoPath:    record.RepoPath,
			Fingerprint: record.Fingerprint,
			CreatedAt:   record.CreatedAt,
			UpdatedAt:   record.UpdatedAt,
			Payload:     string(record.Payload),
		}

		var analysis schema.RepositoryAnalysis
		if err := json.Unmarshal(record.Payload, &analysis); err == nil {
			row.Languages = strings.Join(schema.NormalizeSet(analysis.Languages), ",")
			row.Frameworks = strings.Join(schema.NormalizeSet(analysis.Frameworks), ",")
			row.FileCount = int64(analysis.FileCount)
			row.TotalSize = analysis.TotalSize
			row.TotalLines = int64(analysis.CodeAnalysis.TotalLines)
			row.AverageComplexity = analysis.CodeAnalysis.Complexity.AveragePerFile
			row.AnalysisMode = string(analysis.Metadata.AnalysisMode)
			if analysis.Insights != nil && analysis.Insights.Available {
				summary := analysis.Insights.Summary
				row.InsightSummary = &summary
			}
		}

		rows = append(rows, row)
	}
	return rows
}

// ConvertFingerprintRecords converts stored fingerprints into Parquet rows.
func ConvertFingerprintRecords(records []schema.FingerprintRecord) []Fingerprint {
	rows := make([]Fingerprint, len(records))
	for i, record := range records {
		rows[i] = Fingerprint(record)
	}
	return rows
}

// WriteRepositoriesParquet writes repository rows to a Parquet file.
func WriteRepositoriesParquet(data []Repository, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteFingerprintsParquet writes fingerprint rows to a Parquet file.
func WriteFingerprintsParquet(data []Fingerprint, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows using struct schema inference from T's tags.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}
