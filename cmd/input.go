package cmd

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/marcus/sutra/internal/progress"
	"golang.org/x/term"
)

// parseDay parses a 1-based journey day argument
func parseDay(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > progress.TotalDays {
		return 0, invalidInput("day must be a number from 1 to %d, got %q", progress.TotalDays, arg)
	}
	return n, nil
}

// parseWeek parses a 1-based journey week argument
func parseWeek(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > progress.TotalWeeks {
		return 0, invalidInput("week must be a number from 1 to %d, got %q", progress.TotalWeeks, arg)
	}
	return n, nil
}

// isTerminal reports whether prompts can be shown. Tests replace it.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readText returns the text for a note or reflection: the joined arguments,
// stdin when the only argument is "-", or an editor prompt on a terminal.
func readText(title, current string, args []string) (string, error) {
	switch {
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(data), "\n"), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case !isTerminal():
		return "", invalidInput("no text given; pass it as arguments or '-' to read stdin")
	}

	text := current
	err := huh.NewForm(huh.NewGroup(
		huh.NewText().
			Title(title).
			CharLimit(4000).
			Value(&text),
	)).Run()
	if err != nil {
		return "", err
	}
	return text, nil
}

// confirm asks a yes/no question. yes skips the prompt; without a terminal
// and without yes the answer is no.
func confirm(title, description string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	if !isTerminal() {
		return false, invalidInput("refusing to continue without confirmation; pass --yes")
	}
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
