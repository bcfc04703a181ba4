package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/internal/parquet"
)

// ExecuteIndexExport exports the index store to Parquet files prefixed by outputFile.
func ExecuteIndexExport(w io.Writer, store contract.IndexStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get index status: %w", err)
	}
	if status.TotalRepositories == 0 {
		return errors.New("no indexed repositories found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total repositories: %d\n", status.TotalRepositories)

	records, err := store.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to retrieve repositories: %w", err)
	}
	fingerprints, err := store.LoadFingerprints()
	if err != nil {
		return fmt.Errorf("failed to retrieve fingerprints: %w", err)
	}

	repositories := parquet.ConvertRepositoryRecords(records)
	repositoriesFile := outputFile + ".repositories.parquet"
	if err := parquet.WriteRepositoriesParquet(repositories, repositoriesFile); err != nil {
		return fmt.Errorf("failed to write repositories: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d repositories to: %s\n", len(repositories), repositoriesFile)

	fingerprintRows := parquet.ConvertFingerprintRecords(fingerprints)
	fingerprintsFile := outputFile + ".fingerprints.parquet"
	if err := parquet.WriteFingerprintsParquet(fingerprintRows, fingerprintsFile); err != nil {
		return fmt.Errorf("failed to write fingerprints: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d fingerprints to: %s\n", len(fingerprintRows), fingerprintsFile)

	return nil
}
