package progress

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss/v2"
	xterm "golang.org/x/term"
)

const (
	barWidth     = 30
	defaultTotal = 100
)

// Errors reported by NewItem. Callers are expected to treat both as
// "continue without a bar", never as task failures.
var (
	// ErrDisabled is returned while the display is off (explicitly, or
	// because the output is not a terminal).
	ErrDisabled = errors.New("progress: display disabled")

	// ErrBusy is returned while another tracker is still live.
	ErrBusy = errors.New("progress: another item is active")
)

// Bar styling.
var (
	barNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	barFillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("239"))

	barPercentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// Display paints one in-place progress bar at a time, rewriting the
// line with carriage returns. It starts enabled only when the output is
// a terminal; Enable and Disable override that detection.
//
// Used by: dispatch.Dispatcher's progress reporter
// Thread-safe: Yes (one mutex guards state and painting)
type Display struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
	active  *Tracker
}

// DisplayOption configures a Display when creating it.
type DisplayOption func(*Display)

// WithDisplayWriter redirects bar output (default os.Stdout).
func WithDisplayWriter(w io.Writer) DisplayOption {
	return func(d *Display) {
		d.out = w
	}
}

// NewDisplay creates a display bound to stdout by default. It is
// enabled when the output is a live terminal and disabled otherwise.
func NewDisplay(opts ...DisplayOption) *Display {
	d := &Display{out: os.Stdout}

	for _, opt := range opts {
		opt(d)
	}

	if fd, ok := displayDescriptor(d.out); ok && xterm.IsTerminal(fd) {
		d.enabled = true
	}

	return d
}

// Enable turns rendering on, even when the output was not detected as a
// terminal.
func (d *Display) Enable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = true
}

// Disable turns rendering off. A live tracker keeps painting until it
// finishes; only new items are refused.
func (d *Display) Disable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = false
}

// Enabled reports whether NewItem would currently accept work.
func (d *Display) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// NewItem starts a bar named name out of total units of work and paints
// its empty state. total <= 0 defaults to 100 units. It fails with
// ErrDisabled while the display is off and ErrBusy while another item
// is live.
func (d *Display) NewItem(name string, total int64) (*Tracker, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.enabled {
		return nil, ErrDisabled
	}
	if d.active != nil {
		return nil, ErrBusy
	}
	if total <= 0 {
		total = defaultTotal
	}

	t := &Tracker{d: d, name: name, total: total}
	d.active = t
	d.paint(t, false)
	return t, nil
}

// paint renders the tracker's current state over the current line.
// Callers hold d.mu.
func (d *Display) paint(t *Tracker, last bool) {
	line := renderBar(t.name, t.done, t.total, last)
	if last {
		fmt.Fprintf(d.out, "\r%s\n", line)
		return
	}
	fmt.Fprintf(d.out, "\r%s", line)
}

// Tracker is one live progress bar. It is created by Display.NewItem
// and released by Finish.
type Tracker struct {
	d        *Display
	name     string
	total    int64
	done     int64
	finished bool
}

// CompleteWork advances the bar by units and repaints it. Calls after
// Finish are ignored.
func (t *Tracker) CompleteWork(units int64) {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()

	if t.finished {
		return
	}
	t.done += units
	if t.done > t.total {
		t.done = t.total
	}
	t.d.paint(t, false)
}

// Finish paints the bar one last time, moves to a fresh line and
// releases the display for the next item. Idempotent.
func (t *Tracker) Finish() {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()

	if t.finished {
		return
	}
	t.finished = true
	t.d.paint(t, true)
	t.d.active = nil
}

// renderBar builds one styled bar line: glyph, name, fill, percentage.
func renderBar(name string, done, total int64, last bool) string {
	ratio := float64(done) / float64(total)
	if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio * barWidth)
	bar := barFillStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	glyph := "⟳"
	if last {
		glyph = "✓"
	}

	return fmt.Sprintf("%s %s %s",
		barNameStyle.Render(glyph+" "+name),
		bar,
		barPercentStyle.Render(fmt.Sprintf("%3d%%", int(ratio*100))),
	)
}

// displayDescriptor extracts the fd from file-backed writers.
func displayDescriptor(w io.Writer) (int, bool) {
	type fdWriter interface {
		Fd() uintptr
	}
	if f, ok := w.(fdWriter); ok {
		return int(f.Fd()), true
	}
	return 0, false
}
