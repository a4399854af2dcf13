package report

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// wordWrap is the column width of rendered reports
const wordWrap = 100

// Terminal renders markdown for display in a terminal.
// style is a glamour standard style ("dark", "light", "notty", "ascii") or
// "auto" to detect the terminal background.
func Terminal(md, style string) (string, error) {
	styleOpt := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}

	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wordWrap))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
