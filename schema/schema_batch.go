package schema

import (
	"slices"
	"time"
)

// BatchJob tracks a set of analyses submitted together.
type BatchJob struct {
	BatchID     string          `json:"batch_id"`
	Options     AnalysisOptions `json:"options"`
	Concurrency int             `json:"concurrency"`
	State       BatchState      `json:"state"`
	Members     []BatchMember   `json:"members"`
	Counters    BatchCounters   `json:"counters"`
	CreatedAt   time.Time       `json:"created_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// BatchMember is one repository inside a batch.
type BatchMember struct {
	Index      int          `json:"index"`
	Path       string       `json:"path"`
	Status     MemberStatus `json:"status"`
	RepoID     string       `json:"repo_id,omitempty"`
	Cached     bool         `json:"cached"`
	Error      *MemberError `json:"error,omitempty"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// MemberError is the serializable form of a member failure.
type MemberError struct {
	Kind        ErrorKind `json:"kind"`
	Message     string    `json:"message"`
	Remediation []string  `json:"remediation,omitempty"`
}

// BatchCounters aggregates member statuses.
type BatchCounters struct {
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	InProgress      int     `json:"in_progress"`
	Pending         int     `json:"pending"`
	ProgressPercent float64 `json:"progress_percent"`
}

// ProgressEvent is published on every member state transition.
// Events for single analyses carry an empty BatchID and MemberIndex -1.
type ProgressEvent struct {
	BatchID     string        `json:"batch_id,omitempty"`
	MemberIndex int           `json:"member_index"`
	Path        string        `json:"path"`
	RepoID      string        `json:"repo_id,omitempty"`
	From        MemberStatus  `json:"from"`
	To          MemberStatus  `json:"to"`
	Error       *MemberError  `json:"error,omitempty"`
	Counters    BatchCounters `json:"counters"`
	Timestamp   time.Time     `json:"timestamp"`
}

// IsTerminal reports whether the status is final.
func (s MemberStatus) IsTerminal() bool {
	return s == CompletedStatus || s == FailedStatus
}

// IsTerminal reports whether the job state is final.
func (s JobState) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// CountMembers computes counters from member statuses.
func CountMembers(members []BatchMember) BatchCounters {
	c := BatchCounters{Total: len(members)}
	for _, m := range members {
		switch m.Status {
		case CompletedStatus:
			c.Completed++
		case FailedStatus:
			c.Failed++
		case InProgressStatus:
			c.InProgress++
		default:
			c.Pending++
		}
	}
	if c.Total > 0 {
		c.ProgressPercent = float64(c.Completed+c.Failed) / float64(c.Total) * 100
	}
	return c
}

// Consistent reports whether the counters add up to the member total.
func (c BatchCounters) Consistent() bool {
	return c.Completed+c.Failed+c.InProgress+c.Pending == c.Total
}

// Done reports whether every member reached a terminal status.
func (c BatchCounters) Done() bool {
	return c.Completed+c.Failed == c.Total
}

// Succeeded returns the members that completed.
func (b *BatchJob) Succeeded() []BatchMember {
	return b.filter(CompletedStatus)
}

// FailedMembers returns the members that failed.
func (b *BatchJob) FailedMembers() []BatchMember {
	return b.filter(FailedStatus)
}

func (b *BatchJob) filter(status MemberStatus) []BatchMember {
	var out []BatchMember
	for _, m := range b.Members {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy of the batch.
func (b *BatchJob) Clone() *BatchJob {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Options = b.Options.Clone()
	clone.Members = make([]BatchMember, len(b.Members))
	for i, m := range b.Members {
		clone.Members[i] = m.clone()
	}
	if b.FinishedAt != nil {
		t := *b.FinishedAt
		clone.FinishedAt = &t
	}
	return &clone
}

func (m BatchMember) clone() BatchMember {
	out := m
	if m.Error != nil {
		e := *m.Error
		e.Remediation = slices.Clone(m.Error.Remediation)
		out.Error = &e
	}
	if m.StartedAt != nil {
		t := *m.StartedAt
		out.StartedAt = &t
	}
	if m.FinishedAt != nil {
		t := *m.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
