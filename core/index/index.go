// Package index holds the in-memory repository index. Reads go through Index
// and are safe from any goroutine; writes go through the single Writer.
package index

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// PersistFunc durably stores a prepared analysis. A non-nil error aborts the write.
type PersistFunc func(analysis *schema.RepositoryAnalysis) error

// Index is the read side of the repository index.
type Index struct {
	mu      sync.RWMutex
	records map[string]*schema.RepositoryAnalysis
	byPath  map[string]string
}

// Writer is the only way to mutate an Index. Writes are serialized.
// Every Remove bumps the repository's generation so writes prepared
// before the removal can be told apart from new ones.
type Writer struct {
	mu          sync.Mutex
	idx         *Index
	generations map[string]uint64
}

// New creates an empty index and its writer.
func New() (*Index, *Writer) {
	idx := &Index{
		records: make(map[string]*schema.RepositoryAnalysis),
		byPath:  make(map[string]string),
	}
	return idx, &Writer{idx: idx, generations: make(map[string]uint64)}
}

// Get returns a copy of the analysis with the given id.
func (i *Index) Get(id string) (*schema.RepositoryAnalysis, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	a, ok := i.records[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// All returns a snapshot of every analysis, ordered by id.
func (i *Index) All() []*schema.RepositoryAnalysis {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]*schema.RepositoryAnalysis, 0, len(i.records))
	for _, a := range i.records {
		out = append(out, a.Clone())
	}
	slices.SortFunc(out, func(a, b *schema.RepositoryAnalysis) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Subset returns snapshots for the given ids in the given order, plus the ids that are unknown.
func (i *Index) Subset(ids []string) (found []*schema.RepositoryAnalysis, missing []string) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if a, ok := i.records[id]; ok {
			found = append(found, a.Clone())
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing
}

// Len returns the number of indexed repositories.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}

// Index returns the read side.
func (w *Writer) Index() *Index {
	return w.idx
}

// Generation returns the removal count for id. Pass it to UpsertFrom to drop
// writes that a later Remove has overtaken.
func (w *Writer) Generation(id string) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generations[id]
}

// UpsertFrom is Upsert for a write prepared at generation gen. When the
// repository was removed since then, the write is rejected with ScanCancelled
// and neither persist nor the index runs.
func (w *Writer) UpsertFrom(gen uint64, analysis *schema.RepositoryAnalysis, now time.Time, persist PersistFunc) (*schema.RepositoryAnalysis, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if analysis != nil && w.generations[analysis.ID] != gen {
		return nil, contract.NewError(schema.ScanCancelled, analysis.Path, "repository was removed while the analysis ran")
	}
	return w.upsert(analysis, now, persist)
}

// Upsert inserts or replaces an analysis. On replace, CreatedAt is kept from the
// previous record and UpdatedAt is set to now. persist, when non-nil, runs before
// the in-memory change and aborts the write on error, leaving the index untouched.
// The stored record is returned.
func (w *Writer) Upsert(analysis *schema.RepositoryAnalysis, now time.Time, persist PersistFunc) (*schema.RepositoryAnalysis, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.upsert(analysis, now, persist)
}

func (w *Writer) upsert(analysis *schema.RepositoryAnalysis, now time.Time, persist PersistFunc) (*schema.RepositoryAnalysis, error) {
	if analysis == nil || analysis.ID == "" {
		return nil, contract.NewError(schema.IndexInconsistency, "", "analysis has no id")
	}

	record := analysis.Clone()
	w.idx.mu.RLock()
	existing, exists := w.idx.records[record.ID]
	ownerOfPath, pathTaken := w.idx.byPath[record.Path]
	w.idx.mu.RUnlock()

	if exists && existing.Path != record.Path {
		return nil, contract.NewError(schema.IndexInconsistency, record.Path,
			fmt.Sprintf("id %s already belongs to %s", record.ID, existing.Path))
	}
	if pathTaken && ownerOfPath != record.ID {
		return nil, contract.NewError(schema.IndexInconsistency, record.Path,
			fmt.Sprintf("path is already indexed under id %s", ownerOfPath))
	}

	record.UpdatedAt = now
	record.CreatedAt = now
	if exists {
		record.CreatedAt = existing.CreatedAt
	}

	if persist != nil {
		if err := persist(record); err != nil {
			return nil, err
		}
	}

	w.idx.mu.Lock()
	w.idx.records[record.ID] = record
	w.idx.byPath[record.Path] = record.ID
	w.idx.mu.Unlock()
	return record.Clone(), nil
}

// Load bulk-inserts analyses as they were persisted, keeping their timestamps.
// It is used for warm start and rejects duplicates.
func (w *Writer) Load(analyses []*schema.RepositoryAnalysis) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.idx.mu.Lock()
	defer w.idx.mu.Unlock()
	for _, a := range analyses {
		if a == nil || a.ID == "" {
			return contract.NewError(schema.IndexInconsistency, "", "persisted analysis has no id")
		}
		if _, dup := w.idx.records[a.ID]; dup {
			return contract.NewError(schema.IndexInconsistency, a.Path, "duplicate id "+a.ID)
		}
		if owner, taken := w.idx.byPath[a.Path]; taken {
			return contract.NewError(schema.IndexInconsistency, a.Path, "path already indexed under id "+owner)
		}
		w.idx.records[a.ID] = a.Clone()
		w.idx.byPath[a.Path] = a.ID
	}
	return nil
}

// Remove deletes an analysis. persist, when non-nil, runs first and aborts on error.
func (w *Writer) Remove(id string, persist func(id string) error) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.idx.mu.RLock()
	existing, ok := w.idx.records[id]
	w.idx.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if persist != nil {
		if err := persist(id); err != nil {
			return false, err
		}
	}

	w.idx.mu.Lock()
	delete(w.idx.records, id)
	delete(w.idx.byPath, existing.Path)
	w.idx.mu.Unlock()
	w.generations[id]++
	return true, nil
}

// Clear drops every analysis.
func (w *Writer) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.idx.mu.Lock()
	defer w.idx.mu.Unlock()
	w.idx.records = make(map[string]*schema.RepositoryAnalysis)
	w.idx.byPath = make(map[string]string)
}
