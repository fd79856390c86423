package dispatch

import (
	"context"

	"github.com/billie-coop/switchyard/internal/term"
)

// Logger is the deferred logging handle of a dispatcher. Each call
// schedules a log-class job that forwards the same arguments to the
// terminal adapter, then returns immediately; the actual write happens
// when the job reaches the front of the queue. The full logging surface
// of the adapter is mirrored method for method, so callers holding a
// Logger see the same capabilities, just queued.
//
// Methods return the receiver so calls chain:
//
//	d.Log().Info("rebuilding").Logf("%d files", n)
//
// Write failures surface on the dispatcher's error sink, never to the
// caller: by the time the job runs, the call site has long returned.
type Logger struct {
	d *Dispatcher
}

func newLogger(d *Dispatcher) *Logger {
	return &Logger{d: d}
}

// schedule enqueues one deferred write. Submission failures and write
// failures both land on the error sink; discarded jobs stay silent,
// since dropped output is exactly what discarding means.
func (l *Logger) schedule(op string, write func(term.Adapter) error) *Logger {
	_, err := l.d.submit(context.Background(), ClassLog, op, func(context.Context) error {
		if err := write(l.d.adapter); err != nil {
			l.d.sink.report(op, err)
			return err
		}
		return nil
	})
	if err != nil {
		l.d.sink.report(op, err)
	}
	return l
}

// Log schedules one plain line, fmt.Sprintln style.
func (l *Logger) Log(args ...any) *Logger {
	return l.schedule("log", func(a term.Adapter) error {
		return a.Log(args...)
	})
}

// Logf schedules one formatted line.
func (l *Logger) Logf(format string, args ...any) *Logger {
	return l.schedule("logf", func(a term.Adapter) error {
		return a.Logf(format, args...)
	})
}

// Info schedules one info-leveled line.
func (l *Logger) Info(args ...any) *Logger {
	return l.schedule("info", func(a term.Adapter) error {
		return a.Info(args...)
	})
}

// Warn schedules one warning-leveled line.
func (l *Logger) Warn(args ...any) *Logger {
	return l.schedule("warn", func(a term.Adapter) error {
		return a.Warn(args...)
	})
}

// Error schedules one error-leveled line.
func (l *Logger) Error(args ...any) *Logger {
	return l.schedule("error", func(a term.Adapter) error {
		return a.Error(args...)
	})
}

// Debug schedules one debug line; the adapter decides whether it shows.
func (l *Logger) Debug(args ...any) *Logger {
	return l.schedule("debug", func(a term.Adapter) error {
		return a.Debug(args...)
	})
}

// Write schedules one raw write: no newline, no styling.
func (l *Logger) Write(s string) *Logger {
	return l.schedule("write", func(a term.Adapter) error {
		return a.Write(s)
	})
}

// Markdown schedules one rendered markdown block.
func (l *Logger) Markdown(source string) *Logger {
	return l.schedule("markdown", func(a term.Adapter) error {
		return a.Markdown(source)
	})
}
