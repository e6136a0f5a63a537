package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type enumerates the supported background job categories.
type Type string

const (
	TypeImportDownload Type = "import-download"
	TypeImportOrganize Type = "import-organize"
	TypeImportNFO      Type = "import-nfo"
	TypeMetadataEnrich Type = "metadata-enrich"
	TypeBackup         Type = "backup"
)

// Status enumerates job lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

var (
	// ErrJobFinished is returned by mutations on a job that already
	// reached a terminal state.
	ErrJobFinished = errors.New("queue: job already finished")

	// ErrNotRunning is returned by mutations that are only valid while
	// the job is running.
	ErrNotRunning = errors.New("queue: job is not running")
)

// Job is one unit of background work. Its input payload is immutable
// after construction; status, progress and result are owned by the queue
// and the single handler executing it. All accessors return copies.
type Job struct {
	mu sync.Mutex

	id       uuid.UUID
	typ      Type
	payload  Payload
	parentID uuid.UUID

	status      Status
	progress    float64
	currentStep string
	result      map[string]any
	errMsg      string

	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time

	cancelRequested bool
	cancel          context.CancelFunc
}

// NewJob builds a pending job for the given payload. The payload is
// validated here so a handler never sees an absent required field.
func NewJob(p Payload) (*Job, error) {
	if p == nil {
		return nil, errors.New("queue: payload is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Job{
		id:        uuid.New(),
		typ:       p.Kind(),
		payload:   p,
		status:    StatusPending,
		createdAt: time.Now().UTC(),
	}, nil
}

// ID returns the job identifier.
func (j *Job) ID() uuid.UUID { return j.id }

// Kind returns the job type.
func (j *Job) Kind() Type { return j.typ }

// Payload returns the immutable input parameters.
func (j *Job) Payload() Payload { return j.payload }

// ParentID returns the id of the job that spawned this one, or uuid.Nil
// for a chain head.
func (j *Job) ParentID() uuid.UUID { return j.parentID }

// Status returns the current lifecycle state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// CancelRequested reports whether cancellation has been requested.
// Handlers poll this at safe points; the queue never preempts.
func (j *Job) CancelRequested() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelRequested
}

// UpdateProgress records handler progress as done/total. Only valid
// while running; progress never decreases and total zero is ignored.
func (j *Job) UpdateProgress(done, total int, step string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning {
		return ErrNotRunning
	}
	if total > 0 {
		p := float64(done) / float64(total)
		if p > 1 {
			p = 1
		}
		if p > j.progress {
			j.progress = p
		}
	}
	j.currentStep = step
	return nil
}

// SetResult stages the handler's output while the job is still running.
// The queue commits it together with the terminal transition, so a
// handler that chains a followup must use this instead of Complete: a
// rejected chain can then still fail the stage.
func (j *Job) SetResult(result map[string]any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning {
		return ErrNotRunning
	}
	j.result = copyResult(result)
	return nil
}

// Complete transitions a running job to completed and records its
// result. Calling it on a finished job is rejected.
func (j *Job) Complete(result map[string]any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return ErrJobFinished
	}
	if j.status != StatusRunning {
		return ErrNotRunning
	}
	j.status = StatusCompleted
	j.progress = 1
	j.result = copyResult(result)
	j.finishedAt = time.Now().UTC()
	return nil
}

// start transitions pending to running. Queue-internal.
func (j *Job) start(cancel context.CancelFunc) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusPending {
		return ErrJobFinished
	}
	j.status = StatusRunning
	j.startedAt = time.Now().UTC()
	j.cancel = cancel
	return nil
}

// fail transitions a running job to failed. Queue-internal; a no-op on
// jobs that already reached a terminal state.
func (j *Job) fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = StatusFailed
	j.errMsg = msg
	j.finishedAt = time.Now().UTC()
}

// completeIfRunning is the queue's default terminal transition for
// handlers that return without marking completion themselves.
func (j *Job) completeIfRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning {
		return
	}
	j.status = StatusCompleted
	j.progress = 1
	if j.result == nil {
		j.result = map[string]any{}
	}
	j.finishedAt = time.Now().UTC()
}

// requestCancel flips a pending job straight to cancelled, or flags a
// running job and cancels its context so limiter waits and subprocess
// calls unwind. Stopping a running job stays cooperative.
func (j *Job) requestCancel() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch {
	case j.status == StatusPending:
		j.status = StatusCancelled
		j.cancelRequested = true
		j.finishedAt = time.Now().UTC()
		return nil
	case j.status == StatusRunning:
		j.cancelRequested = true
		if j.cancel != nil {
			j.cancel()
		}
		return nil
	default:
		return ErrJobFinished
	}
}

// markCancelled finalizes a running job whose handler honored the
// cancellation flag. Queue-internal; no-op once terminal.
func (j *Job) markCancelled() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = StatusCancelled
	j.finishedAt = time.Now().UTC()
}

// Snapshot is a point-in-time copy of a job's observable state.
type Snapshot struct {
	ID          uuid.UUID      `json:"id"`
	Type        Type           `json:"type"`
	Status      Status         `json:"status"`
	Progress    float64        `json:"progress"`
	CurrentStep string         `json:"current_step,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	ParentID    *uuid.UUID     `json:"parent_job_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
}

// Snapshot returns a copy of the job's state safe to hand across the
// submit/query boundary.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Snapshot{
		ID:          j.id,
		Type:        j.typ,
		Status:      j.status,
		Progress:    j.progress,
		CurrentStep: j.currentStep,
		Result:      copyResult(j.result),
		Error:       j.errMsg,
		CreatedAt:   j.createdAt,
	}
	if j.parentID != uuid.Nil {
		pid := j.parentID
		s.ParentID = &pid
	}
	if !j.startedAt.IsZero() {
		ts := j.startedAt
		s.StartedAt = &ts
	}
	if !j.finishedAt.IsZero() {
		ts := j.finishedAt
		s.FinishedAt = &ts
	}
	return s
}

func copyResult(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
