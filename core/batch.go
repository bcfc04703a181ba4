package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// batchRun is the live state of one batch. Member transitions happen under mu;
// emitMu keeps events of one batch in transition order while letting
// observers call GetBatch.
type batchRun struct {
	mu     sync.Mutex
	emitMu sync.Mutex
	job    *schema.BatchJob
	cancel context.CancelFunc
	done   chan struct{}
	notify ProgressObserver
}

func (r *batchRun) snapshot() *schema.BatchJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job.Clone()
}

// AnalyzeBatch analyzes every path and blocks until each member is terminal.
// onProgress, when set, is called on every member transition. A batch never
// fails as a whole: member failures are recorded on the members.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, paths []string, opts schema.AnalysisOptions, concurrency int, onProgress ProgressObserver) (*schema.BatchJob, error) {
	run, err := o.startBatch(ctx, paths, opts, concurrency, onProgress)
	if err != nil {
		return nil, err
	}
	<-run.done
	return run.snapshot(), nil
}

// SubmitBatch starts a batch in the background and returns its id. The batch
// outlives ctx; use CancelBatch to stop it.
func (o *Orchestrator) SubmitBatch(paths []string, opts schema.AnalysisOptions, concurrency int, onProgress ProgressObserver) (string, error) {
	run, err := o.startBatch(o.baseCtx, paths, opts, concurrency, onProgress)
	if err != nil {
		return "", err
	}
	return run.job.BatchID, nil
}

// GetBatch returns a snapshot of a running or recently finished batch.
func (o *Orchestrator) GetBatch(id string) (*schema.BatchJob, error) {
	o.batchMu.Lock()
	run, ok := o.batches[id]
	o.batchMu.Unlock()
	if ok {
		return run.snapshot(), nil
	}
	if job, ok := o.archive.Get(id); ok {
		return job.Clone(), nil
	}
	return nil, contract.NewError(schema.InvalidInput, "", "unknown batch id "+id)
}

// CancelBatch stops a running batch. Pending and running members end failed with ScanCancelled.
func (o *Orchestrator) CancelBatch(id string) error {
	o.batchMu.Lock()
	run, ok := o.batches[id]
	o.batchMu.Unlock()
	if ok {
		run.cancel()
		return nil
	}
	if _, ok := o.archive.Get(id); ok {
		return nil
	}
	return contract.NewError(schema.InvalidInput, "", "unknown batch id "+id)
}

// startBatch validates the batch request, registers it and launches the dispatcher.
func (o *Orchestrator) startBatch(ctx context.Context, paths []string, opts schema.AnalysisOptions, concurrency int, onProgress ProgressObserver) (*batchRun, error) {
	if len(paths) == 0 {
		return nil, contract.NewError(schema.InvalidInput, "", "batch has no repositories")
	}
	normalized, err := contract.NormalizeOptions(opts)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = o.queue.MaxConcurrency()
	}

	job := &schema.BatchJob{
		BatchID:     uuid.NewString(),
		Options:     normalized,
		Concurrency: concurrency,
		State:       schema.BatchRunning,
		Members:     make([]schema.BatchMember, len(paths)),
		CreatedAt:   o.now(),
	}
	for i, p := range paths {
		job.Members[i] = schema.BatchMember{Index: i, Path: p, Status: schema.PendingStatus}
	}
	job.Counters = schema.CountMembers(job.Members)

	batchCtx, cancel := context.WithCancel(ctx)
	run := &batchRun{job: job, cancel: cancel, done: make(chan struct{}), notify: onProgress}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		cancel()
		return nil, contract.NewError(schema.ScanCancelled, "", "orchestrator is closed")
	}
	o.batchMu.Lock()
	o.batches[job.BatchID] = run
	o.batchMu.Unlock()

	o.logger.Info("batch started", zap.String("batch_id", job.BatchID), zap.Int("members", len(paths)), zap.Int("concurrency", concurrency))
	o.wg.Go(func() { o.runBatch(batchCtx, run) })
	return run, nil
}

// runBatch admits members in submission order, at most job.Concurrency at a time.
func (o *Orchestrator) runBatch(ctx context.Context, run *batchRun) {
	defer run.cancel()
	slots := make(chan struct{}, run.job.Concurrency)
	var members sync.WaitGroup

	for i := range run.job.Members {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			o.transition(run, i, schema.FailedStatus, "", false,
				contract.Wrap(schema.ScanCancelled, run.job.Members[i].Path, "batch cancelled", ctx.Err()))
			continue
		}
		members.Go(func() {
			defer func() { <-slots }()
			o.runMember(ctx, run, i)
		})
	}
	members.Wait()
	o.finishBatch(run)
}

// runMember validates, analyzes and records one member.
func (o *Orchestrator) runMember(ctx context.Context, run *batchRun, i int) {
	path := run.job.Members[i].Path // Immutable after creation
	ctx = withBatchMember(ctx, run.job.BatchID, i)

	info, opts, err := o.prepare(ctx, path, run.job.Options)
	if err != nil {
		o.transition(run, i, schema.FailedStatus, "", false, err)
		return
	}
	o.transition(run, i, schema.InProgressStatus, "", false, nil)

	result, cached, err := o.execute(ctx, info, opts)
	if err != nil {
		o.transition(run, i, schema.FailedStatus, "", false, err)
		return
	}
	o.transition(run, i, schema.CompletedStatus, result.ID, cached, nil)
}

// transition moves member i to status and publishes the event with fresh counters.
func (o *Orchestrator) transition(run *batchRun, i int, to schema.MemberStatus, repoID string, cached bool, err error) {
	run.emitMu.Lock()
	defer run.emitMu.Unlock()

	run.mu.Lock()
	m := &run.job.Members[i]
	from := m.Status
	now := o.now()
	m.Status = to
	if repoID != "" {
		m.RepoID = repoID
	}
	m.Cached = cached
	switch {
	case to == schema.InProgressStatus:
		m.StartedAt = &now
	case to.IsTerminal():
		m.FinishedAt = &now
	}
	var memberErr *schema.MemberError
	if err != nil {
		memberErr = withPath(err, m.Path).MemberError()
		m.Error = memberErr
	}
	run.job.Counters = schema.CountMembers(run.job.Members)
	event := schema.ProgressEvent{
		BatchID:     run.job.BatchID,
		MemberIndex: i,
		Path:        m.Path,
		RepoID:      m.RepoID,
		From:        from,
		To:          to,
		Error:       memberErr,
		Counters:    run.job.Counters,
		Timestamp:   now,
	}
	run.mu.Unlock()

	if run.notify != nil {
		run.notify(event)
	}
	o.events.publish(event)
}

// finishBatch marks the batch finished and moves it to the archive.
func (o *Orchestrator) finishBatch(run *batchRun) {
	run.mu.Lock()
	now := o.now()
	run.job.State = schema.BatchFinished
	run.job.FinishedAt = &now
	final := run.job.Clone()
	run.mu.Unlock()

	o.archive.Add(final.BatchID, final)
	o.batchMu.Lock()
	delete(o.batches, final.BatchID)
	o.batchMu.Unlock()
	close(run.done)

	o.logger.Info("batch finished",
		zap.String("batch_id", final.BatchID),
		zap.Int("completed", final.Counters.Completed),
		zap.Int("failed", final.Counters.Failed))
}
