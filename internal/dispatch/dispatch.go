package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/billie-coop/switchyard/internal/csync"
	"github.com/billie-coop/switchyard/internal/progress"
	"github.com/billie-coop/switchyard/internal/queue"
	"github.com/billie-coop/switchyard/internal/term"
	"github.com/google/uuid"
)

// Class priorities rank operation kinds inside one level. Log is
// strictly highest so pending output flushes ahead of everything else
// at the same level; an unanswered prompt outranks background work.
const (
	ClassLog      = 20
	ClassPrompt   = 10
	ClassBlocking = 5
)

// DefaultLevel is the band of a root dispatcher. Children count down
// from here, one level per spawn.
const DefaultLevel = 1000

// Sentinel errors reported to dispatcher callers.
var (
	// ErrClosed is returned when submitting through a closed dispatcher.
	ErrClosed = errors.New("dispatch: dispatcher closed")

	// ErrChildLevel is returned by SpawnChild when an explicit level
	// does not sit strictly below the parent's.
	ErrChildLevel = errors.New("dispatch: child level must be below parent level")
)

// Dispatcher is one scheduling instance: the root of a session tree or
// a nested child session. Every instance of a tree shares one queue and
// one terminal adapter; a child only differs in its level, which keeps
// its jobs ranked strictly below its parent's.
//
// No instance ever calls the adapter outside a scheduled job.
//
// Used by: producers that need ordered terminal access
// Thread-safe: Yes (submission from any goroutine)
type Dispatcher struct {
	id      string
	level   int
	queue   *queue.Queue
	adapter term.Adapter

	// root marks the instance that owns the queue and adapter
	// lifecycle. Only the root's Close touches the shared resources.
	root bool

	parent   *Dispatcher
	children *csync.Map[string, *Dispatcher]

	// nextChild allocates levels for spawned children, counting down
	// from level-1 so each child of this instance gets a distinct,
	// strictly ordered level.
	childMu   sync.Mutex
	nextChild int

	log     *Logger
	flag    *progress.Flag
	display Display
	sink    *errorSink

	queueOpts []queue.Option
	closed    atomic.Bool
}

// errorSink is the fallback channel for failures detected after the
// original caller has already returned. It is shared by the whole tree
// so concurrent reports never interleave mid-line.
type errorSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *errorSink) report(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "switchyard: deferred %s failed: %v\n", op, err)
}

// Option configures a root dispatcher when creating it.
type Option func(*Dispatcher)

// WithLevel sets the root's band (default DefaultLevel).
func WithLevel(level int) Option {
	return func(d *Dispatcher) {
		d.level = level
	}
}

// WithErrorSink redirects deferred-failure reports (default os.Stderr).
func WithErrorSink(w io.Writer) Option {
	return func(d *Dispatcher) {
		d.sink = &errorSink{w: w}
	}
}

// WithDisplay sets the live progress display. Without one every
// progress call runs without an indicator.
func WithDisplay(display Display) Option {
	return func(d *Dispatcher) {
		d.display = display
	}
}

// WithProgressFlag shares an activity flag with other dispatcher trees
// writing to the same terminal, so only one live bar ever exists.
func WithProgressFlag(flag *progress.Flag) Option {
	return func(d *Dispatcher) {
		d.flag = flag
	}
}

// WithQueueHooks forwards hooks to the underlying queue.
// Useful for metrics and debugging.
func WithQueueHooks(opts ...queue.Option) Option {
	return func(d *Dispatcher) {
		d.queueOpts = append(d.queueOpts, opts...)
	}
}

// New creates the root dispatcher of a session tree. It starts the
// shared single-worker queue and owns the adapter's lifecycle: closing
// the root closes the adapter and discards all pending work.
func New(adapter term.Adapter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		id:       uuid.NewString(),
		level:    DefaultLevel,
		adapter:  adapter,
		root:     true,
		children: csync.NewMap[string, *Dispatcher](),
		sink:     &errorSink{w: os.Stderr},
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.flag == nil {
		d.flag = progress.NewFlag()
	}
	d.nextChild = d.level - 1
	d.queue = queue.New(d.queueOpts...)
	d.log = newLogger(d)

	return d
}

// ID returns the session's unique identifier.
func (d *Dispatcher) ID() string { return d.id }

// Level returns the band this instance submits at.
func (d *Dispatcher) Level() int { return d.level }

// Log returns the deferred logging handle bound to this instance.
func (d *Dispatcher) Log() *Logger { return d.log }

// Children returns the live children spawned from this instance.
func (d *Dispatcher) Children() []*Dispatcher { return d.children.Values() }

// QueueSize returns the number of jobs queued across the whole tree.
func (d *Dispatcher) QueueSize() int { return d.queue.Size() }

// QueuePending returns the number of running jobs (0 or 1).
func (d *Dispatcher) QueuePending() int { return d.queue.Pending() }

// Metrics returns a snapshot of the shared queue's counters.
func (d *Dispatcher) Metrics() queue.Metrics { return d.queue.Metrics() }

// submit enqueues fn at this instance's level and the given class.
func (d *Dispatcher) submit(ctx context.Context, class int, name string, fn func(context.Context) error) (*queue.Job, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	return d.queue.Add(ctx, fn,
		queue.WithName(name),
		queue.WithPriority(queue.Priority{Level: d.level, Class: class}),
	)
}

// run submits fn and waits for its job to complete.
func (d *Dispatcher) run(ctx context.Context, class int, name string, fn func(context.Context) error) error {
	job, err := d.submit(ctx, class, name, fn)
	if err != nil {
		return err
	}
	return job.Wait(ctx)
}

// Prompt asks the given questions through the shared adapter, as a
// prompt-class job. Whatever the adapter raises, cancellation or I/O
// failure alike, propagates to the caller unchanged.
func (d *Dispatcher) Prompt(ctx context.Context, questions []term.Question, initial term.Answers) (term.Answers, error) {
	var answers term.Answers
	err := d.run(ctx, ClassPrompt, "prompt", func(ctx context.Context) error {
		var err error
		answers, err = d.adapter.Prompt(ctx, questions, initial)
		return err
	})
	if err != nil {
		return nil, err
	}
	return answers, nil
}

// RunBlocking schedules fn as a blocking-class job: work that must not
// overlap other terminal access but is not urgent. It suspends the
// caller until the job has run and returns fn's error unchanged.
func (d *Dispatcher) RunBlocking(ctx context.Context, fn func(context.Context, term.Adapter) error) error {
	return d.run(ctx, ClassBlocking, "blocking", func(ctx context.Context) error {
		return fn(ctx, d.adapter)
	})
}

// RunLog schedules fn as a log-class job, which outranks pending
// prompts and blocking work at this instance's level. Use it for
// output that must not be starved behind a long computation.
func (d *Dispatcher) RunLog(ctx context.Context, fn func(context.Context, term.Adapter) error) error {
	return d.run(ctx, ClassLog, "log", func(ctx context.Context) error {
		return fn(ctx, d.adapter)
	})
}

// Blocking schedules fn as a blocking-class job on d and returns its
// typed result once the job has run.
func Blocking[T any](ctx context.Context, d *Dispatcher, fn func(context.Context, term.Adapter) (T, error)) (T, error) {
	var result T
	err := d.RunBlocking(ctx, func(ctx context.Context, adapter term.Adapter) error {
		var err error
		result, err = fn(ctx, adapter)
		return err
	})
	return result, err
}

// WaitIdle blocks until the shared queue has no queued and no running
// jobs, or until ctx is done. Use it to flush before shutdown.
func (d *Dispatcher) WaitIdle(ctx context.Context) error {
	return d.queue.WaitIdle(ctx)
}

// ChildOption configures a spawned child.
type ChildOption func(*childSettings)

type childSettings struct {
	level *int
}

// WithChildLevel pins the child's level instead of taking the next
// free one. It must be strictly below the parent's level.
func WithChildLevel(level int) ChildOption {
	return func(s *childSettings) {
		s.level = &level
	}
}

// SpawnChild creates a nested session. The child shares this tree's
// queue and adapter but submits at a strictly lower level, so
// everything it queues is deprioritized relative to this instance.
// Children spawned without an explicit level each take the next lower
// one; concurrent spawns never collide.
func (d *Dispatcher) SpawnChild(opts ...ChildOption) (*Dispatcher, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}

	var s childSettings
	for _, opt := range opts {
		opt(&s)
	}

	var level int
	if s.level != nil {
		if *s.level >= d.level {
			return nil, fmt.Errorf("%w: %d is not below %d", ErrChildLevel, *s.level, d.level)
		}
		level = *s.level
	} else {
		d.childMu.Lock()
		level = d.nextChild
		d.nextChild--
		d.childMu.Unlock()
	}

	child := &Dispatcher{
		id:        uuid.NewString(),
		level:     level,
		queue:     d.queue,
		adapter:   d.adapter,
		parent:    d,
		children:  csync.NewMap[string, *Dispatcher](),
		nextChild: level - 1,
		flag:      d.flag,
		display:   d.display,
		sink:      d.sink,
	}
	child.log = newLogger(child)

	d.children.Set(child.id, child)
	return child, nil
}

// Close shuts this instance down. Idempotent.
//
// The root owns the shared resources: closing it discards every
// pending job (their submitters are released with queue.ErrDiscarded),
// stops the worker once any in-flight job finishes, and closes the
// adapter. Queue and adapter cleanup both happen regardless of the
// other's outcome.
//
// Closing a child only detaches it from its parent and refuses further
// submissions through it; the shared queue and adapter stay up.
func (d *Dispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	if d.parent != nil {
		d.parent.children.Delete(d.id)
	}
	if !d.root {
		return nil
	}

	queueErr := d.queue.Close()
	adapterErr := d.adapter.Close()
	if adapterErr != nil {
		adapterErr = fmt.Errorf("dispatch: close adapter: %w", adapterErr)
	}
	return errors.Join(queueErr, adapterErr)
}
