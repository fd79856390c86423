package term

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/key"
	tea "github.com/charmbracelet/bubbletea/v2"
)

// promptKeyMap defines key bindings shared by the prompt widgets.
type promptKeyMap struct {
	Submit key.Binding
	Cancel key.Binding
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
}

func defaultPromptKeyMap() promptKeyMap {
	return promptKeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("left", "right", "tab", "h", "l"),
			key.WithHelp("←/→", "toggle"),
		),
	}
}

// ask runs one inline bubbletea program for a single question and
// returns the user's answer.
func (c *Console) ask(ctx context.Context, q Question, preset string) (string, error) {
	var model tea.Model
	switch q.Kind {
	case KindConfirm:
		model = newConfirmModel(q, preset)
	case KindSelect:
		if len(q.Options) == 0 {
			return "", fmt.Errorf("term: select question %q has no options", q.Name)
		}
		model = newSelectModel(q, preset)
	default:
		model = newInputModel(q, preset)
	}

	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(c.in),
		tea.WithOutput(c.out),
	)
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("term: prompt %q: %w", q.Name, err)
	}

	switch m := final.(type) {
	case inputModel:
		if m.canceled {
			return "", ErrPromptCanceled
		}
		return m.answer(), nil
	case confirmModel:
		if m.canceled {
			return "", ErrPromptCanceled
		}
		return m.answer(), nil
	case selectModel:
		if m.canceled {
			return "", ErrPromptCanceled
		}
		return m.answer(), nil
	default:
		return "", fmt.Errorf("term: prompt %q returned unexpected model", q.Name)
	}
}

// questionLine renders the "? message" header shared by all widgets.
func questionLine(q Question) string {
	line := promptMarkStyle.Render("?") + " " + promptMessageStyle.Render(q.Message)
	if q.Default != "" && !q.Mask {
		line += " " + promptHintStyle.Render("(default: "+q.Default+")")
	}
	return line
}

// answeredLine renders the final frame left behind once a widget is
// done, so the transcript keeps a record of what was asked and chosen.
func answeredLine(q Question, shown string) string {
	return answeredStyle.Render("✓") + " " +
		promptMessageStyle.Render(q.Message) + " " +
		answeredStyle.Render(shown) + "\n"
}

// canceledLine is the final frame of an abandoned widget.
func canceledLine(q Question) string {
	return errorGlyphStyle.Render("✗") + " " +
		promptMessageStyle.Render(q.Message) + " " +
		promptHintStyle.Render("canceled") + "\n"
}

// inputModel asks for one line of free text, optionally masked.
type inputModel struct {
	q         Question
	keys      promptKeyMap
	value     string
	cursorPos int
	done      bool
	canceled  bool
}

func newInputModel(q Question, preset string) inputModel {
	return inputModel{
		q:         q,
		keys:      defaultPromptKeyMap(),
		value:     preset,
		cursorPos: len(preset),
	}
}

func (m inputModel) Init() tea.Cmd {
	return nil
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, m.keys.Submit):
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.canceled = true
			return m, tea.Quit
		}

		keyStr := msg.String()

		// Bubble Tea v2 reports the space bar as "space", not " ".
		if keyStr == "space" {
			m.value = m.value[:m.cursorPos] + " " + m.value[m.cursorPos:]
			m.cursorPos++
			return m, nil
		}

		switch keyStr {
		case "backspace":
			if m.cursorPos > 0 {
				m.value = m.value[:m.cursorPos-1] + m.value[m.cursorPos:]
				m.cursorPos--
			}
		case "delete":
			if m.cursorPos < len(m.value) {
				m.value = m.value[:m.cursorPos] + m.value[m.cursorPos+1:]
			}
		case "left":
			if m.cursorPos > 0 {
				m.cursorPos--
			}
		case "right":
			if m.cursorPos < len(m.value) {
				m.cursorPos++
			}
		case "home", "ctrl+a":
			m.cursorPos = 0
		case "end", "ctrl+e":
			m.cursorPos = len(m.value)
		case "ctrl+u":
			m.value = m.value[m.cursorPos:]
			m.cursorPos = 0
		case "ctrl+k":
			m.value = m.value[:m.cursorPos]
		default:
			// Printable ASCII only, like the rest of the inline widgets.
			if len(keyStr) == 1 && keyStr[0] >= 33 && keyStr[0] <= 126 {
				m.value = m.value[:m.cursorPos] + keyStr + m.value[m.cursorPos:]
				m.cursorPos++
			}
		}
	}

	return m, nil
}

func (m inputModel) View() tea.View {
	if m.canceled {
		return tea.NewView(canceledLine(m.q))
	}
	if m.done {
		shown := m.answer()
		if m.q.Mask {
			shown = strings.Repeat("•", len(shown))
		}
		return tea.NewView(answeredLine(m.q, shown))
	}

	display := m.value
	if m.q.Mask {
		display = strings.Repeat("•", len(m.value))
	}

	// Block cursor over the rune under it, or a blank cell at the end.
	runes := []rune(display)
	var line string
	if m.cursorPos < len(runes) {
		line = string(runes[:m.cursorPos]) +
			promptCursorStyle.Render(string(runes[m.cursorPos])) +
			string(runes[m.cursorPos+1:])
	} else {
		line = display + promptCursorStyle.Render(" ")
	}

	s := questionLine(m.q) + "\n" +
		"  " + line + "\n" +
		promptHintStyle.Render("  enter submit • esc cancel")

	return tea.NewView(s)
}

// answer resolves the submitted value, falling back to the question's
// default when the user submitted nothing.
func (m inputModel) answer() string {
	if strings.TrimSpace(m.value) == "" {
		return m.q.Default
	}
	return m.value
}

// confirmModel asks a yes/no question.
type confirmModel struct {
	q        Question
	keys     promptKeyMap
	yes      bool
	done     bool
	canceled bool
}

func newConfirmModel(q Question, preset string) confirmModel {
	initial := preset
	if initial == "" {
		initial = q.Default
	}
	return confirmModel{
		q:    q,
		keys: defaultPromptKeyMap(),
		yes:  normalizeBool(initial) == "true",
	}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, m.keys.Submit):
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.canceled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			m.yes = !m.yes
			return m, nil
		}

		switch msg.String() {
		case "y", "Y":
			m.yes = true
			m.done = true
			return m, tea.Quit
		case "n", "N":
			m.yes = false
			m.done = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m confirmModel) View() tea.View {
	if m.canceled {
		return tea.NewView(canceledLine(m.q))
	}
	if m.done {
		shown := "no"
		if m.yes {
			shown = "yes"
		}
		return tea.NewView(answeredLine(m.q, shown))
	}

	yes, no := "Yes", "No"
	if m.yes {
		yes = selectCursorStyle.Render("❯ Yes")
		no = selectOptionStyle.Render("  No")
	} else {
		yes = selectOptionStyle.Render("  Yes")
		no = selectCursorStyle.Render("❯ No")
	}

	s := questionLine(m.q) + "\n" +
		"  " + yes + "   " + no + "\n" +
		promptHintStyle.Render("  ←/→ toggle • y/n • enter submit • esc cancel")

	return tea.NewView(s)
}

func (m confirmModel) answer() string {
	if m.yes {
		return "true"
	}
	return "false"
}

// selectModel asks the user to pick one of the question's options.
type selectModel struct {
	q        Question
	keys     promptKeyMap
	cursor   int
	done     bool
	canceled bool
}

func newSelectModel(q Question, preset string) selectModel {
	initial := preset
	if initial == "" {
		initial = q.Default
	}

	cursor := 0
	for i, opt := range q.Options {
		if opt == initial {
			cursor = i
			break
		}
	}

	return selectModel{
		q:      q,
		keys:   defaultPromptKeyMap(),
		cursor: cursor,
	}
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, m.keys.Submit):
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.canceled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.q.Options)-1 {
				m.cursor++
			}
		}
	}

	return m, nil
}

func (m selectModel) View() tea.View {
	if m.canceled {
		return tea.NewView(canceledLine(m.q))
	}
	if m.done {
		return tea.NewView(answeredLine(m.q, m.answer()))
	}

	var b strings.Builder
	b.WriteString(questionLine(m.q) + "\n")
	for i, opt := range m.q.Options {
		if i == m.cursor {
			b.WriteString(selectCursorStyle.Render("❯ "+opt) + "\n")
			continue
		}
		b.WriteString(selectOptionStyle.Render("  "+opt) + "\n")
	}
	b.WriteString(promptHintStyle.Render("  ↑/↓ move • enter select • esc cancel"))

	return tea.NewView(b.String())
}

func (m selectModel) answer() string {
	return m.q.Options[m.cursor]
}
