package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

// Sentinel errors reported to job submitters.
var (
	// ErrClosed is returned by Add once the queue has been closed.
	ErrClosed = errors.New("queue: closed")

	// ErrDiscarded is the terminal error of jobs that were still
	// pending when Clear or Close dropped them.
	ErrDiscarded = errors.New("queue: job discarded")
)

// Queue is a thread-safe priority queue with exactly one worker.
// Jobs with higher priority are executed first. If priorities are
// equal, older jobs go first (FIFO within priority).
//
// The single worker is the whole point: every job in a scheduler
// hierarchy funnels through one goroutine, so the terminal adapter
// underneath is never invoked concurrently.
//
// Used by: dispatch.Dispatcher (submits jobs), tests
// Thread-safe: Yes (all operations lock)
type Queue struct {
	mu     sync.Mutex
	items  jobHeap
	seq    int64
	closed bool

	// running is true while the worker is executing a job.
	running bool

	// isIdle mirrors "no queued and no running jobs". idleCh is
	// closed whenever that holds and replaced with a fresh channel
	// when work arrives, giving WaitIdle a broadcast to block on.
	isIdle bool
	idleCh chan struct{}

	// notify wakes the worker when a job is pushed.
	notify chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Callbacks for monitoring.
	onStart    func(*Job)
	onComplete func(*Job, error, time.Duration)

	metrics struct {
		sync.Mutex
		executed  int
		failed    int
		discarded int
		avgWait   time.Duration
		avgRun    time.Duration
	}
}

// Option configures a Queue when creating it.
type Option func(*Queue)

// WithOnStart sets a callback invoked just before a job runs.
// Useful for UI updates and debugging.
func WithOnStart(fn func(*Job)) Option {
	return func(q *Queue) {
		q.onStart = fn
	}
}

// WithOnComplete sets a callback invoked after a job finishes.
// Useful for metrics, logging, and UI updates.
func WithOnComplete(fn func(*Job, error, time.Duration)) Option {
	return func(q *Queue) {
		q.onComplete = fn
	}
}

// New creates a queue and starts its worker goroutine.
func New(opts ...Option) *Queue {
	q := &Queue{
		items:  make(jobHeap, 0),
		notify: make(chan struct{}, 1),
		idleCh: make(chan struct{}),
		isIdle: true,
	}
	close(q.idleCh) // empty queue starts idle

	q.ctx, q.cancel = context.WithCancel(context.Background())

	for _, opt := range opts {
		opt(q)
	}

	heap.Init(&q.items)

	q.wg.Add(1)
	go q.run()

	return q
}

// Add enqueues an action at the given priority and returns the job
// handle the caller can wait on. The ctx is attached to the job: if it
// is already done when the job is dequeued, the job completes with the
// ctx error without running.
func (q *Queue) Add(ctx context.Context, action func(context.Context) error, opts ...JobOption) (*Job, error) {
	if action == nil {
		return nil, errors.New("queue: nil action")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	job := newJob(ctx, action, opts...)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	q.seq++
	job.seq = q.seq
	if q.isIdle {
		q.isIdle = false
		q.idleCh = make(chan struct{})
	}
	heap.Push(&q.items, job)
	q.mu.Unlock()

	q.wake()
	return job, nil
}

// Size returns the number of jobs queued and not yet started.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Pending returns the number of jobs currently running (0 or 1).
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return 1
	}
	return 0
}

// WaitIdle blocks until the queue has no queued and no running jobs,
// or until ctx is done.
func (q *Queue) WaitIdle(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	q.mu.Lock()
	ch := q.idleCh
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear discards all pending (not-yet-started) jobs. Each discarded
// job completes with ErrDiscarded so its submitter is released rather
// than left waiting. The in-flight job, if any, is not touched.
func (q *Queue) Clear() {
	q.mu.Lock()
	discarded := make([]*Job, len(q.items))
	copy(discarded, q.items)
	q.items = q.items[:0]
	if !q.running && !q.isIdle {
		q.isIdle = true
		close(q.idleCh)
	}
	q.mu.Unlock()

	for _, job := range discarded {
		job.complete(ErrDiscarded)
	}

	if len(discarded) > 0 {
		q.metrics.Lock()
		q.metrics.discarded += len(discarded)
		q.metrics.Unlock()
	}
}

// Close marks the queue closed, discards pending jobs and stops the
// worker once any in-flight job has finished. Idempotent.
//
// Close must not be called from inside a job action; it waits for the
// worker and would deadlock on itself.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.Clear()
	q.cancel()
	q.wg.Wait()
	return nil
}

// Metrics returns a snapshot of the queue's counters.
func (q *Queue) Metrics() Metrics {
	q.metrics.Lock()
	defer q.metrics.Unlock()

	return Metrics{
		Executed:  q.metrics.executed,
		Failed:    q.metrics.failed,
		Discarded: q.metrics.discarded,
		AvgWait:   q.metrics.avgWait,
		AvgRun:    q.metrics.avgRun,
	}
}

// wake signals the worker without blocking.
func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// run is the worker loop. It pulls the highest-priority job and
// executes it, one at a time, until the queue is closed.
func (q *Queue) run() {
	defer q.wg.Done()

	for {
		job := q.next()
		if job == nil {
			return
		}
		q.execute(job)
	}
}

// next blocks until a job is available or the queue is shut down.
func (q *Queue) next() *Job {
	q.mu.Lock()
	for {
		if q.ctx.Err() != nil {
			q.mu.Unlock()
			return nil
		}
		if q.items.Len() > 0 {
			job := heap.Pop(&q.items).(*Job)
			q.running = true
			q.mu.Unlock()
			return job
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-q.ctx.Done():
			return nil
		}

		q.mu.Lock()
	}
}

// execute runs a single job and records the outcome.
func (q *Queue) execute(job *Job) {
	if q.onStart != nil {
		q.onStart(job)
	}

	start := time.Now()
	wait := start.Sub(job.enqueuedAt)

	var err error
	if ctxErr := job.ctx.Err(); ctxErr != nil {
		// The submitter gave up while the job was queued.
		err = ctxErr
	} else {
		err = job.action(job.ctx)
	}

	duration := time.Since(start)
	job.complete(err)
	q.updateMetrics(err, wait, duration)

	if q.onComplete != nil {
		q.onComplete(job, err, duration)
	}

	q.mu.Lock()
	q.running = false
	if q.items.Len() == 0 && !q.isIdle {
		q.isIdle = true
		close(q.idleCh)
	}
	q.mu.Unlock()
}

// updateMetrics records timing data with a recency-weighted average.
func (q *Queue) updateMetrics(err error, wait, run time.Duration) {
	q.metrics.Lock()
	defer q.metrics.Unlock()

	q.metrics.executed++
	if err != nil {
		q.metrics.failed++
	}

	if q.metrics.avgWait == 0 {
		q.metrics.avgWait = wait
	} else {
		q.metrics.avgWait = (q.metrics.avgWait*4 + wait) / 5
	}
	if q.metrics.avgRun == 0 {
		q.metrics.avgRun = run
	} else {
		q.metrics.avgRun = (q.metrics.avgRun*4 + run) / 5
	}
}

// jobHeap implements heap.Interface for priority ordering.
// Higher priority jobs come first. Within same priority, lower sequence
// numbers (older submissions) come first.
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if c := h[i].priority.Compare(h[j].priority); c != 0 {
		return c > 0
	}
	// Same priority: older first (FIFO)
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *jobHeap) Push(x interface{}) {
	*h = append(*h, x.(*Job))
}

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil // avoid memory leak
	*h = old[0 : n-1]
	return job
}
