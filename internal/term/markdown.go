package term

import (
	"strings"

	"github.com/charmbracelet/glamour/v2"
)

// renderMarkdown converts markdown source to styled terminal output
// wrapped at width.
func renderMarkdown(source, theme string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(theme),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
		glamour.WithEmoji(),
	)
	if err != nil {
		return "", err
	}

	rendered, err := r.Render(source)
	if err != nil {
		return "", err
	}

	// Remove extra newlines that glamour adds
	return strings.TrimRight(rendered, "\n"), nil
}
