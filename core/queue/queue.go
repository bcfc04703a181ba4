// Package queue runs analysis jobs FIFO under a concurrency ceiling that can change at runtime.
package queue

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
	"go.uber.org/zap"
)

// Job is the unit of work. It must return promptly once ctx is done.
type Job func(ctx context.Context) error

// Observer is notified whenever the running or pending counts change.
type Observer func(running, pending int)

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

// WithObserver registers a callback for queue depth changes.
func WithObserver(obs Observer) Option {
	return func(q *Queue) { q.observer = obs }
}

// Queue admits jobs in submission order while fewer than the ceiling are running.
type Queue struct {
	mu       sync.Mutex
	pending  *list.List
	running  int
	max      int
	timeout  time.Duration
	closed   bool
	wg       sync.WaitGroup
	logger   *zap.Logger
	observer Observer

	processed int64
	failed    int64
	cancelled int64
}

// New creates a Queue. maxConcurrency below 1 is raised to 1; timeout <= 0 disables the per-job deadline.
func New(maxConcurrency int, timeout time.Duration, opts ...Option) *Queue {
	q := &Queue{
		pending: list.New(),
		max:     max(1, maxConcurrency),
		timeout: timeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit enqueues fn. The job context derives from ctx, so cancelling ctx
// cancels the job. Submitting to a closed queue returns an already cancelled handle.
func (q *Queue) Submit(ctx context.Context, fn Job) *Handle {
	jobCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:     uuid.NewString(),
		q:      q,
		fn:     fn,
		ctx:    jobCtx,
		cancel: cancel,
		state:  schema.JobQueued,
		done:   make(chan struct{}),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.finishLocked(h, schema.JobCancelled, contract.NewError(schema.ScanCancelled, "", "queue is closed"))
		return h
	}
	h.elem = q.pending.PushBack(h)
	q.logger.Debug("job queued", zap.String("job_id", h.id), zap.Int("pending", q.pending.Len()))
	q.dispatchLocked()
	return h
}

// SetMaxConcurrency changes the ceiling. It applies to the next admission decision;
// running jobs are never preempted.
func (q *Queue) SetMaxConcurrency(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.max = max(1, n)
	q.logger.Info("concurrency ceiling changed", zap.Int("max", q.max))
	q.dispatchLocked()
}

// MaxConcurrency returns the current ceiling.
func (q *Queue) MaxConcurrency() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.max
}

// GetStatus returns queue statistics.
func (q *Queue) GetStatus() schema.QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return schema.QueueStatus{
		MaxConcurrency: q.max,
		Running:        q.running,
		Pending:        q.pending.Len(),
		Processed:      q.processed,
		Failed:         q.failed,
		Cancelled:      q.cancelled,
	}
}

// Close cancels every queued job and waits for running jobs to return.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	for e := q.pending.Front(); e != nil; {
		next := e.Next()
		h := e.Value.(*Handle)
		q.pending.Remove(e)
		h.elem = nil
		q.finishLocked(h, schema.JobCancelled, contract.NewError(schema.ScanCancelled, "", "queue is closed"))
		e = next
	}
	q.notifyLocked()
	q.mu.Unlock()

	q.wg.Wait()
}

// dispatchLocked starts queued jobs while the ceiling allows. Callers hold q.mu.
func (q *Queue) dispatchLocked() {
	for q.running < q.max && q.pending.Len() > 0 {
		h := q.pending.Remove(q.pending.Front()).(*Handle)
		h.elem = nil
		if h.ctx.Err() != nil {
			q.finishLocked(h, schema.JobCancelled, contract.Wrap(schema.ScanCancelled, "", "job cancelled before start", h.ctx.Err()))
			continue
		}
		q.running++
		h.mu.Lock()
		h.state = schema.JobRunning
		h.mu.Unlock()
		q.wg.Go(func() { q.run(h) })
	}
	q.notifyLocked()
}

func (q *Queue) run(h *Handle) {
	runCtx := h.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(h.ctx, q.timeout)
		defer cancel()
	}

	q.logger.Debug("job started", zap.String("job_id", h.id))
	err := q.invoke(runCtx, h.fn)

	state, finalErr := classify(h, runCtx, err, q.timeout)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.running--
	q.finishLocked(h, state, finalErr)
	q.dispatchLocked()
}

// invoke runs fn and turns a panic into an error so siblings keep running.
func (q *Queue) invoke(ctx context.Context, fn Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", zap.Any("panic", r))
			err = contract.NewError(schema.ScanFailed, "", fmt.Sprintf("job panicked: %v", r))
		}
	}()
	return fn(ctx)
}

// classify decides the terminal state. A cancelled job is always reported
// cancelled, even when fn returned a value, so its result is discarded.
func classify(h *Handle, runCtx context.Context, err error, timeout time.Duration) (schema.JobState, error) {
	switch {
	case h.ctx.Err() != nil:
		return schema.JobCancelled, contract.Wrap(schema.ScanCancelled, "", "job cancelled", h.ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return schema.JobFailed, contract.Wrap(schema.ScanTimeout, "", fmt.Sprintf("scan exceeded %s", timeout), runCtx.Err())
	case err != nil:
		return schema.JobFailed, err
	default:
		return schema.JobCompleted, nil
	}
}

// finishLocked resolves a handle exactly once. Callers hold q.mu.
func (q *Queue) finishLocked(h *Handle, state schema.JobState, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.IsTerminal() {
		return
	}
	h.state = state
	h.err = err
	h.cancel()
	close(h.done)

	switch state {
	case schema.JobCompleted:
		q.processed++
	case schema.JobFailed:
		q.processed++
		q.failed++
	case schema.JobCancelled:
		q.cancelled++
	}
	q.logger.Debug("job finished", zap.String("job_id", h.id), zap.String("state", string(state)), zap.Error(err))
}

func (q *Queue) notifyLocked() {
	if q.observer != nil {
		q.observer(q.running, q.pending.Len())
	}
}

// cancelHandle removes a queued handle or cancels a running one.
func (q *Queue) cancelHandle(h *Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if h.elem != nil {
		q.pending.Remove(h.elem)
		h.elem = nil
		q.finishLocked(h, schema.JobCancelled, contract.NewError(schema.ScanCancelled, "", "job cancelled while queued"))
		q.notifyLocked()
		return
	}
	h.cancel()
}
