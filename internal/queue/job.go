package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job represents a single unit of scheduled terminal work.
// It carries the action to run, the priority it was submitted at and a
// completion channel the submitting caller can wait on.
//
// Jobs are created by Queue.Add, never directly. Priority and
// submission order are fixed at enqueue time and never change
// afterwards.
type Job struct {
	// id uniquely identifies this job for hooks and debugging.
	id string

	// name optionally labels the job ("prompt", "child-3 log", ...).
	name string

	// priority determines execution order (higher = sooner).
	priority Priority

	// seq is the enqueue sequence number, used as FIFO tie-break
	// between jobs of equal priority.
	seq int64

	// action is the actual work to execute.
	action func(context.Context) error

	// ctx is the submitting caller's context. A job whose context is
	// already done when it is dequeued completes with that context's
	// error instead of running.
	ctx context.Context

	// enqueuedAt timestamp for wait-time metrics.
	enqueuedAt time.Time

	done chan struct{}
	err  error
	once sync.Once
}

// JobOption configures a job at submission time.
type JobOption func(*Job)

// WithPriority sets the execution priority.
// Higher levels execute first; within a level, higher classes first.
func WithPriority(p Priority) JobOption {
	return func(j *Job) {
		j.priority = p
	}
}

// WithName labels the job for hooks and debugging.
func WithName(name string) JobOption {
	return func(j *Job) {
		j.name = name
	}
}

func newJob(ctx context.Context, action func(context.Context) error, opts ...JobOption) *Job {
	job := &Job{
		id:         uuid.NewString(),
		action:     action,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(job)
	}

	return job
}

// ID returns the job's unique identifier.
func (j *Job) ID() string { return j.id }

// Name returns the job's label, if any.
func (j *Job) Name() string { return j.name }

// Priority returns the priority the job was submitted at.
func (j *Job) Priority() Priority { return j.priority }

// Done returns a channel that is closed once the job has completed,
// whether it ran, failed or was discarded.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the job's terminal error. It is nil while the job is
// still queued or running, nil after a successful run, ErrDiscarded if
// the job was cleared before it started, and the action's error
// otherwise.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job completes and returns its terminal error.
// A canceled ctx abandons the wait but leaves the job queued.
func (j *Job) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// complete records the terminal error and releases waiters. The first
// caller wins; later calls are no-ops.
func (j *Job) complete(err error) {
	j.once.Do(func() {
		j.err = err
		close(j.done)
	})
}
