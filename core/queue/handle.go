package queue

import (
	"container/list"
	"context"
	"sync"

	"github.com/huangsam/repolens/schema"
)

// Handle tracks one submitted job.
type Handle struct {
	id     string
	q      *Queue
	fn     Job
	ctx    context.Context
	cancel context.CancelFunc
	elem   *list.Element // Set while queued; guarded by q.mu

	mu    sync.Mutex
	state schema.JobState
	err   error
	done  chan struct{}
}

// ID returns the job id.
func (h *Handle) ID() string {
	return h.id
}

// State returns the current lifecycle state.
func (h *Handle) State() schema.JobState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done is closed when the job reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the terminal error, nil while the job is still active or when it completed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the job is terminal or ctx ends, and returns the job error.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the job cooperatively. Queued jobs never start; running jobs
// see their context cancelled and end as cancelled. Terminal jobs are unaffected.
func (h *Handle) Cancel() {
	h.q.cancelHandle(h)
}
