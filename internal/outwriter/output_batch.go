package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// WriteBatch outputs the final report of a batch, dispatching on the output format.
func WriteBatch(job *schema.BatchJob, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error { return writeJSON(w, job) }, "Wrote JSON")
	case schema.MarkdownOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return NewRenderer().Render(w, schema.MarkdownFormat, job)
		}, "Wrote Markdown")
	case schema.HTMLOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return NewRenderer().Render(w, schema.HTMLFormat, job)
		}, "Wrote HTML")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			header := []string{"index", "path", "status", "repo_id", "cached", "error_kind", "error_message"}
			rows := make([][]string, len(job.Members))
			for i, m := range job.Members {
				kind, msg := "", ""
				if m.Error != nil {
					kind, msg = string(m.Error.Kind), m.Error.Message
				}
				rows[i] = []string{strconv.Itoa(m.Index + 1), m.Path, string(m.Status), m.RepoID, strconv.FormatBool(m.Cached), kind, msg}
			}
			return writeCSVWithHeader(w, header, rows)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchTable(w, job, cfg, duration)
		}, "Wrote table")
	}
}

func writeBatchTable(w io.Writer, job *schema.BatchJob, cfg *contract.Config, duration time.Duration) error {
	pathWidth := getMaxCellWidth(cfg, 70)
	rows := make([][]string, len(job.Members))
	for i, m := range job.Members {
		detail := ""
		switch {
		case m.Error != nil:
			detail = string(m.Error.Kind) + ": " + m.Error.Message
		case m.Cached:
			detail = "cached"
		}
		rows[i] = []string{
			strconv.Itoa(m.Index + 1),
			contract.TruncatePath(m.Path, pathWidth),
			contract.GetColorStatus(m.Status),
			shortID(m.RepoID),
			truncateText(detail, 40),
		}
	}
	if err := writeTable(w, []string{"#", "Path", "Status", "ID", "Detail"}, rows); err != nil {
		return err
	}
	c := job.Counters
	if _, err := fmt.Fprintf(w, "Batch %s: %d completed, %d failed of %d in %v\n",
		job.BatchID, c.Completed, c.Failed, c.Total, duration.Round(time.Millisecond)); err != nil {
		return err
	}
	for _, m := range job.FailedMembers() {
		if m.Error == nil || len(m.Error.Remediation) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "  #%d %s: %s\n", m.Index+1, m.Error.Kind, m.Error.Remediation[0]); err != nil {
			return err
		}
	}
	return nil
}

// FormatProgress renders a one-line progress summary for a batch event.
func FormatProgress(ev schema.ProgressEvent) string {
	c := ev.Counters
	return fmt.Sprintf("[%5.1f%%] %d/%d done, %d failed, %d running, %d pending | %s %s",
		c.ProgressPercent, c.Completed+c.Failed, c.Total, c.Failed, c.InProgress, c.Pending,
		contract.GetColorStatus(ev.To), ev.Path)
}

// PrintCacheStatus prints result cache and queue statistics.
func PrintCacheStatus(w io.Writer, cache schema.CacheStatus, queue schema.QueueStatus) {
	capacity := "unbounded"
	if cache.Capacity > 0 {
		capacity = strconv.Itoa(cache.Capacity)
	}
	lookups := cache.Hits + cache.Misses + cache.Joins
	hitRate := 0.0
	if lookups > 0 {
		hitRate = float64(cache.Hits+cache.Joins) / float64(lookups) * 100
	}
	_, _ = fmt.Fprintf(w, "Result cache:\n")
	_, _ = fmt.Fprintf(w, "  Entries:     %d (capacity %s, ttl %v)\n", cache.Entries, capacity, cache.TTL)
	_, _ = fmt.Fprintf(w, "  In flight:   %d\n", cache.InFlight)
	_, _ = fmt.Fprintf(w, "  Lookups:     %d hits, %d joined, %d misses (%.1f%% reuse)\n", cache.Hits, cache.Joins, cache.Misses, hitRate)
	_, _ = fmt.Fprintf(w, "  Evictions:   %d\n", cache.Evictions)
	_, _ = fmt.Fprintf(w, "  Warm start:  %d entries\n", cache.WarmStartCount)
	_, _ = fmt.Fprintf(w, "Task queue:\n")
	_, _ = fmt.Fprintf(w, "  Concurrency: %d (%d running, %d pending)\n", queue.MaxConcurrency, queue.Running, queue.Pending)
	_, _ = fmt.Fprintf(w, "  Processed:   %d (%d failed, %d cancelled)\n", queue.Processed, queue.Failed, queue.Cancelled)
}
