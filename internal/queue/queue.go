package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrQueueClosed is returned by submissions after Close.
	ErrQueueClosed = errors.New("queue: closed")

	// ErrNoHandler is returned when a job type has no registered handler.
	ErrNoHandler = errors.New("queue: no handler registered for job type")

	// ErrJobNotFound is returned by lookups for unknown job ids.
	ErrJobNotFound = errors.New("queue: job not found")
)

// Handler executes one job. A non-nil error marks the job failed; a nil
// error with a non-nil followup payload chains the next workflow stage
// with this job as its parent. A handler that chains must not complete
// the job itself: it stages output with Job.SetResult and leaves the
// terminal transition to the queue, otherwise a rejected chain can no
// longer fail the stage. Handlers observe cancellation through ctx and
// the job's CancelRequested flag and must clean up their own partial
// side effects before returning.
type Handler func(ctx context.Context, job *Job) (followup Payload, err error)

// Queue accepts job submissions and dispatches each to the handler
// registered for its type on a fixed pool of workers. At most one worker
// ever executes a given job.
type Queue struct {
	logger zerolog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	handlers map[Type]Handler
	jobs     map[uuid.UUID]*Job
	pending  []*Job
	closed   bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New starts a queue with the given number of workers (minimum 1).
func New(workers int, logger zerolog.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		logger:     logger,
		handlers:   make(map[Type]Handler),
		jobs:       make(map[uuid.UUID]*Job),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	q.cond = sync.NewCond(&q.mu)
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// RegisterHandler associates a job type with its handler. Registering
// the same type again replaces the previous handler.
func (q *Queue) RegisterHandler(t Type, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[t] = h
}

// Submit enqueues a pending job and returns its id immediately; the
// result is obtained later by id. Submissions for unregistered types or
// after Close are rejected.
func (q *Queue) Submit(job *Job) (uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return uuid.Nil, ErrQueueClosed
	}
	if _, ok := q.handlers[job.Kind()]; !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrNoHandler, job.Kind())
	}
	q.jobs[job.ID()] = job
	q.pending = append(q.pending, job)
	q.cond.Signal()
	return job.ID(), nil
}

// Get returns a snapshot of the job with the given id.
func (q *Queue) Get(id uuid.UUID) (Snapshot, error) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	q.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrJobNotFound
	}
	return job.Snapshot(), nil
}

// List returns snapshots of all known jobs, oldest first.
func (q *Queue) List() []Snapshot {
	q.mu.Lock()
	jobs := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		jobs = append(jobs, job)
	}
	q.mu.Unlock()

	out := make([]Snapshot, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Cancel requests best-effort cancellation. A pending job is cancelled
// immediately and never dispatched; a running job is flagged and its
// context cancelled, the handler stops cooperatively.
func (q *Queue) Cancel(id uuid.UUID) error {
	q.mu.Lock()
	job, ok := q.jobs[id]
	q.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	return job.requestCancel()
}

// Close stops accepting submissions, cancels the context of running
// jobs and waits for the workers to drain.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	q.baseCancel()
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		job := q.next()
		if job == nil {
			return
		}
		q.run(job)
	}
}

// next blocks until a dispatchable job is available. It returns nil once
// the queue is closed. Jobs cancelled while queued are skipped.
func (q *Queue) next() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		for len(q.pending) > 0 {
			job := q.pending[0]
			q.pending = q.pending[1:]
			if job.Status() != StatusPending {
				continue
			}
			return job
		}
		if q.closed {
			return nil
		}
		q.cond.Wait()
	}
}

func (q *Queue) run(job *Job) {
	q.mu.Lock()
	handler := q.handlers[job.Kind()]
	q.mu.Unlock()
	if handler == nil {
		job.fail(fmt.Sprintf("no handler registered for %s", job.Kind()))
		return
	}

	ctx, cancel := context.WithCancel(q.baseCtx)
	defer cancel()
	if err := job.start(cancel); err != nil {
		// Cancelled between dequeue and start.
		return
	}
	q.logger.Info().
		Str("job_id", job.ID().String()).
		Str("type", string(job.Kind())).
		Msg("queue: job started")

	followup, err := q.invoke(ctx, job, handler)
	q.finish(job, followup, err)
}

// invoke runs the handler with panic recovery; a panic is an unexpected
// bug and surfaces as a job failure, never as a dead worker.
func (q *Queue) invoke(ctx context.Context, job *Job, handler Handler) (followup Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			followup = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}

// finish applies the terminal transition exactly once, at the dispatch
// boundary. A handler that returned without marking completion gets
// completed with an empty result. A followup payload chains the next
// stage only after this job has itself reached completed, so no child
// ever references a failed or cancelled parent.
func (q *Queue) finish(job *Job, followup Payload, err error) {
	logJob := func(e *zerolog.Event) *zerolog.Event {
		return e.Str("job_id", job.ID().String()).Str("type", string(job.Kind()))
	}

	if job.CancelRequested() {
		job.markCancelled()
		logJob(q.logger.Info()).Str("status", string(job.Status())).Msg("queue: job cancelled")
		return
	}
	if err != nil {
		job.fail(err.Error())
		logJob(q.logger.Error()).Err(err).Msg("queue: job failed")
		return
	}
	if followup != nil {
		if verr := q.precheckFollowup(followup); verr != nil {
			job.fail(fmt.Sprintf("submit next stage: %v", verr))
			logJob(q.logger.Error()).Err(verr).Msg("queue: chained submission rejected")
			return
		}
	}
	job.completeIfRunning()
	logJob(q.logger.Info()).Msg("queue: job completed")
	if followup != nil {
		child, cerr := q.submitChild(followup, job.ID())
		if cerr != nil {
			logJob(q.logger.Error()).Err(cerr).Msg("queue: chained submission lost to shutdown")
			return
		}
		logJob(q.logger.Info()).
			Str("child_job_id", child.String()).
			Str("child_type", string(followup.Kind())).
			Msg("queue: next stage submitted")
	}
}

// precheckFollowup validates a chained submission before the current job
// commits its terminal state, so a rejected chain fails the current
// stage instead of completing it.
func (q *Queue) precheckFollowup(p Payload) error {
	if err := p.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if _, ok := q.handlers[p.Kind()]; !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, p.Kind())
	}
	return nil
}

func (q *Queue) submitChild(p Payload, parent uuid.UUID) (uuid.UUID, error) {
	child, err := NewJob(p)
	if err != nil {
		return uuid.Nil, err
	}
	child.parentID = parent
	return q.Submit(child)
}
