package term

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss/v2"
	xterm "golang.org/x/term"
)

const defaultWidth = 80

// Console is the production Adapter. It writes styled lines to a
// single output writer and asks questions through small inline
// bubbletea programs when the session is interactive.
//
// Used by: dispatch.Dispatcher (through scheduled jobs only)
// Thread-safe: Yes (writes serialize on an internal mutex)
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	in      io.Reader
	verbose bool
	mdTheme string
	width   int
	isTTY   bool
	closed  atomic.Bool
}

// ConsoleOption configures a Console when creating it.
type ConsoleOption func(*Console)

// WithOutput redirects console output (default os.Stdout).
func WithOutput(w io.Writer) ConsoleOption {
	return func(c *Console) {
		c.out = w
	}
}

// WithInput redirects prompt input (default os.Stdin).
func WithInput(r io.Reader) ConsoleOption {
	return func(c *Console) {
		c.in = r
	}
}

// WithVerbose enables Debug output.
func WithVerbose(verbose bool) ConsoleOption {
	return func(c *Console) {
		c.verbose = verbose
	}
}

// WithMarkdownTheme sets the glamour style used by Markdown.
func WithMarkdownTheme(theme string) ConsoleOption {
	return func(c *Console) {
		c.mdTheme = theme
	}
}

// NewConsole creates a console bound to the process's terminal by
// default. When the output is not a terminal the console degrades:
// markdown passes through unrendered and prompts resolve from initial
// answers and defaults instead of asking.
func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{
		out:     os.Stdout,
		in:      os.Stdin,
		mdTheme: "dracula",
		width:   defaultWidth,
	}

	for _, opt := range opts {
		opt(c)
	}

	if fd, ok := fileDescriptor(c.out); ok && xterm.IsTerminal(fd) {
		c.isTTY = true
		if w, _, err := xterm.GetSize(fd); err == nil && w > 0 {
			c.width = w
		}
	}

	return c
}

// IsInteractive reports whether the console can ask questions on a
// live terminal.
func (c *Console) IsInteractive() bool {
	return c.isTTY && !c.closed.Load()
}

// Log writes one plain line, fmt.Sprintln style.
func (c *Console) Log(args ...any) error {
	return c.write(fmt.Sprintln(args...))
}

// Logf writes one formatted line.
func (c *Console) Logf(format string, args ...any) error {
	return c.write(fmt.Sprintf(format, args...) + "\n")
}

// Info writes a cyan-glyph line.
func (c *Console) Info(args ...any) error {
	return c.glyphLine(infoGlyphStyle, infoGlyph, args...)
}

// Warn writes a yellow-glyph line.
func (c *Console) Warn(args ...any) error {
	return c.glyphLine(warnGlyphStyle, warnGlyph, args...)
}

// Error writes a red-glyph line.
func (c *Console) Error(args ...any) error {
	return c.glyphLine(errorGlyphStyle, errorGlyph, args...)
}

// Debug writes a dim line when the console is verbose, and nothing
// otherwise.
func (c *Console) Debug(args ...any) error {
	if !c.verbose {
		return nil
	}
	msg := strings.TrimRight(fmt.Sprintln(args...), "\n")
	return c.write(debugStyle.Render(debugGlyph+" "+msg) + "\n")
}

// Write emits raw text: no newline, no styling.
func (c *Console) Write(s string) error {
	return c.write(s)
}

// Markdown renders markdown source to the terminal. Without a terminal
// (or if rendering fails) the source passes through as plain text.
func (c *Console) Markdown(source string) error {
	if !c.isTTY {
		return c.write(ensureNewline(source))
	}

	rendered, err := renderMarkdown(source, c.mdTheme, c.width)
	if err != nil {
		return c.write(ensureNewline(source))
	}
	return c.write(ensureNewline(rendered))
}

// Prompt asks the given questions in order. Interactive sessions get an
// inline widget per question; non-interactive sessions resolve answers
// from initial values and question defaults.
func (c *Console) Prompt(ctx context.Context, questions []Question, initial Answers) (Answers, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	answers := make(Answers, len(questions))

	for _, q := range questions {
		if q.Name == "" {
			return nil, fmt.Errorf("term: question %q has no name", q.Message)
		}
		if q.Kind == "" {
			q.Kind = KindInput
		}

		preset, hasPreset := "", false
		if initial != nil {
			preset, hasPreset = initial[q.Name]
		}

		if !c.IsInteractive() {
			answer, err := resolveNonInteractive(q, preset, hasPreset)
			if err != nil {
				return nil, err
			}
			answers[q.Name] = answer
			continue
		}

		answer, err := c.ask(ctx, q, preset)
		if err != nil {
			return nil, err
		}
		answers[q.Name] = answer
	}

	return answers, nil
}

// Close releases the console. Idempotent; later writes fail with
// ErrClosed.
func (c *Console) Close() error {
	c.closed.CompareAndSwap(false, true)
	return nil
}

// resolveNonInteractive picks an answer without a terminal.
func resolveNonInteractive(q Question, preset string, hasPreset bool) (string, error) {
	value := q.Default
	if hasPreset {
		value = preset
	}

	switch q.Kind {
	case KindConfirm:
		if value == "" {
			return "false", nil
		}
		return normalizeBool(value), nil
	case KindSelect:
		if value == "" {
			return "", fmt.Errorf("%w: question %q needs an answer", ErrNonInteractive, q.Name)
		}
		for _, opt := range q.Options {
			if opt == value {
				return value, nil
			}
		}
		return "", fmt.Errorf("term: answer %q for question %q is not an option", value, q.Name)
	default:
		if value == "" {
			return "", fmt.Errorf("%w: question %q needs an answer", ErrNonInteractive, q.Name)
		}
		return value, nil
	}
}

// normalizeBool maps the usual yes/no spellings onto "true"/"false".
func normalizeBool(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1", "on":
		return "true"
	default:
		return "false"
	}
}

func (c *Console) glyphLine(style lipgloss.Style, glyph string, args ...any) error {
	msg := strings.TrimRight(fmt.Sprintln(args...), "\n")
	return c.write(style.Render(glyph) + " " + msg + "\n")
}

// write is the single funnel for console output.
func (c *Console) write(s string) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := io.WriteString(c.out, s)
	if err != nil {
		return fmt.Errorf("term: write: %w", err)
	}
	return nil
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// fileDescriptor extracts the fd from file-backed writers.
func fileDescriptor(w io.Writer) (int, bool) {
	type fdWriter interface {
		Fd() uintptr
	}
	if f, ok := w.(fdWriter); ok {
		return int(f.Fd()), true
	}
	return 0, false
}
