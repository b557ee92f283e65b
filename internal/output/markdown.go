package output

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Journal text follows the terminal width within these bounds.
const (
	journalMinWidth = 40
	journalMaxWidth = 100
)

// TerminalWidth returns the width of stdout, then $COLUMNS, then fallback.
func TerminalWidth(fallback int) int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return fallback
}

func journalWidth(width int) int {
	return min(max(width, journalMinWidth), journalMaxWidth)
}

// RenderJournal renders journal markdown wrapped at width, or at the
// terminal width when width is 0. Output that is not a terminal, or with
// NO_COLOR set, uses the plain style.
func RenderJournal(md string, width int) (string, error) {
	if strings.TrimSpace(md) == "" {
		return "", nil
	}
	if width <= 0 {
		width = TerminalWidth(journalMaxWidth)
	}

	style := glamour.WithAutoStyle()
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(journalWidth(width)))
	if err != nil {
		return "", err
	}
	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}
