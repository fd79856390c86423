package dispatch

import (
	"context"

	"github.com/billie-coop/switchyard/internal/progress"
	"github.com/billie-coop/switchyard/internal/term"
)

// StepUnits is how far one Step call advances the live bar.
const StepUnits = 10

// Step advances the live progress indicator and emits one info line
// through the deferred logging path. The no-op variant handed out when
// the indicator is skipped or degraded is safe to call and does
// nothing.
type Step func(prefix string, args ...any)

func noopStep(string, ...any) {}

// Display is the view of the progress display the reporter consumes.
// NewLiveDisplay adapts the real implementation; tests drop in fakes.
type Display interface {
	// NewItem starts a bar for total units of work. Failing is fine:
	// the reporter degrades to running without an indicator.
	NewItem(name string, total int64) (Tracker, error)
}

// Tracker is one live progress bar.
type Tracker interface {
	CompleteWork(units int64)
	Finish()
}

// NewLiveDisplay adapts the concrete progress display to the Display
// interface consumed by the reporter.
func NewLiveDisplay(d *progress.Display) Display {
	return liveDisplay{d: d}
}

type liveDisplay struct {
	d *progress.Display
}

func (l liveDisplay) NewItem(name string, total int64) (Tracker, error) {
	t, err := l.d.NewItem(name, total)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ProgressOption configures one Progress call.
type ProgressOption func(*progressSettings)

type progressSettings struct {
	noIndicator bool
	total       int64
}

// WithoutIndicator runs the work without ever showing a live bar.
func WithoutIndicator() ProgressOption {
	return func(s *progressSettings) {
		s.noIndicator = true
	}
}

// WithTotal overrides the bar's work-unit total (default 100, which ten
// Step calls fill exactly).
func WithTotal(total int64) ProgressOption {
	return func(s *progressSettings) {
		s.total = total
	}
}

// Progress runs fn, showing a live bar only when the terminal is quiet.
//
// A bar painted while other output is in flight would corrupt the
// display, so whenever the shared queue has queued or running work,
// the caller opted out, or another hierarchy already owns a bar, the
// work runs immediately with a no-op step, outside the queue.
//
// Otherwise the bar is acquired best-effort; acquisition failure just
// degrades the step to a no-op. fn runs as a blocking-class job so
// it still participates in ordering. Each Step call advances the bar by
// ten units and logs an info line. The bar is finished and the shared
// flag cleared on every exit path, and fn's result or error propagates
// to the caller unchanged.
func (d *Dispatcher) Progress(ctx context.Context, name string, fn func(Step) error, opts ...ProgressOption) error {
	s := progressSettings{total: 100}
	for _, opt := range opts {
		opt(&s)
	}

	if s.noIndicator || d.queue.Size() > 0 || d.queue.Pending() > 0 || !d.flag.TrySet() {
		return fn(noopStep)
	}

	// The flag is held from here: release it no matter how fn ends.
	var tracker Tracker
	defer func() {
		if tracker != nil {
			tracker.Finish()
		}
		d.flag.Clear()
	}()

	if d.display != nil {
		if t, err := d.display.NewItem(name, s.total); err == nil {
			tracker = t
		}
	}

	step := noopStep
	if tracker != nil {
		t := tracker
		step = func(prefix string, args ...any) {
			t.CompleteWork(StepUnits)
			d.log.Info(append([]any{prefix + ":"}, args...)...)
		}
	}

	return d.RunBlocking(ctx, func(ctx context.Context, _ term.Adapter) error {
		return fn(step)
	})
}
