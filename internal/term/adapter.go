package term

import (
	"context"
	"errors"
)

// Sentinel errors raised by adapter implementations.
var (
	// ErrClosed is returned by adapter operations after Close.
	ErrClosed = errors.New("term: adapter closed")

	// ErrPromptCanceled is returned when the user abandons a prompt
	// (esc or ctrl+c).
	ErrPromptCanceled = errors.New("term: prompt canceled")

	// ErrNonInteractive is returned when a question cannot be answered
	// without a terminal and no default or initial answer covers it.
	ErrNonInteractive = errors.New("term: no interactive terminal")
)

// QuestionKind selects how a question is asked.
type QuestionKind string

const (
	// KindInput asks for free text.
	KindInput QuestionKind = "input"

	// KindConfirm asks a yes/no question; the answer is "true" or
	// "false".
	KindConfirm QuestionKind = "confirm"

	// KindSelect asks the user to pick one of Options.
	KindSelect QuestionKind = "select"
)

// Question is a single prompt entry.
type Question struct {
	// Name keys the answer in the Answers map.
	Name string

	// Message is the text shown to the user.
	Message string

	// Kind selects the input widget. Defaults to KindInput.
	Kind QuestionKind

	// Options are the choices for KindSelect.
	Options []string

	// Default is used when the user submits an empty answer and as
	// the resolution for non-interactive sessions.
	Default string

	// Mask hides typed characters (passwords, tokens).
	Mask bool
}

// Answers maps question names to the user's responses.
type Answers map[string]string

// Adapter is the terminal every scheduled job runs against. Exactly one
// job holds it at a time; the scheduler guarantees that, so
// implementations only need to be internally consistent, not clever.
//
// The logging surface (Log through Markdown) is deliberately wide: the
// deferred logger mirrors each of these methods one-to-one so callers
// of the deferred handle observe the same capabilities, just queued.
type Adapter interface {
	// Prompt asks the given questions in order and returns the
	// collected answers. Answers present in initial pre-fill (and for
	// non-interactive sessions, resolve) the corresponding questions.
	Prompt(ctx context.Context, questions []Question, initial Answers) (Answers, error)

	// Log writes one plain line, fmt.Sprintln style.
	Log(args ...any) error

	// Logf writes one formatted line.
	Logf(format string, args ...any) error

	// Info, Warn and Error write one glyph-prefixed styled line each.
	Info(args ...any) error
	Warn(args ...any) error
	Error(args ...any) error

	// Debug writes a dim line, and only when the adapter is verbose.
	Debug(args ...any) error

	// Write emits raw text: no newline, no styling.
	Write(s string) error

	// Markdown renders markdown source to the terminal.
	Markdown(source string) error

	// Close releases terminal resources. Idempotent.
	Close() error
}
