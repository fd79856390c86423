package term

import "github.com/charmbracelet/lipgloss/v2"

// Style definitions for console output.
var (
	infoGlyphStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	warnGlyphStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorGlyphStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	debugStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("239")).
			Italic(true)

	promptMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	promptMarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	promptHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	promptCursorStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("205")).
				Foreground(lipgloss.Color("0"))

	selectCursorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	selectOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	answeredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))
)

// Glyphs prefixing leveled lines.
const (
	infoGlyph  = "•"
	warnGlyph  = "!"
	errorGlyph = "✗"
	debugGlyph = "·"
)
