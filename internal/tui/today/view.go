package today

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/stats"
)

const notePreviewLines = 6

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}

	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}

	day := m.renderDayPanel()
	week := m.renderWeekPanel()
	base := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		day,
		week,
		m.renderFooter(),
	)
	return base
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	var s strings.Builder
	rec := m.State.Day(m.Day)

	s.WriteString("sutra today (resize for full view)\n\n")
	fmt.Fprintf(&s, "Day %d / week %d\n", m.Day, progress.WeekForDay(m.Day))
	fmt.Fprintf(&s, "%s practiced\n", output.PracticeMark(rec.DidPractice))
	s.WriteString("\nq:quit space:practice ?:help")
	return s.String()
}

func (m Model) renderHeader() string {
	sum := stats.Compute(m.State)
	left := titleStyle.Render(fmt.Sprintf("Day %d of %d", m.Day, progress.TotalDays))
	bar := output.ProgressBar(sum.CompletionPercent, 16) + " " + output.FormatPercent(sum.CompletionPercent)

	lines := []string{left + "  " + bar}
	status := output.FormatSyncStatus(m.Sync)
	if m.HasAccess {
		status = output.FormatSubscription(m.Access, m.Locale) + subtleStyle.Render("  ·  ") + status
	}
	lines = append(lines, status)
	return m.fit(strings.Join(lines, "\n"))
}

func (m Model) renderDayPanel() string {
	rec := m.State.Day(m.Day)
	var content strings.Builder

	if d, ok := progress.DateForDay(m.State.Settings, m.Day); ok {
		content.WriteString(output.FormatDayLine(rec, &d, m.Locale))
	} else {
		content.WriteString(output.FormatDayLine(rec, nil, m.Locale))
	}
	content.WriteString("\n\n")

	if m.Editing && m.Note != nil {
		content.WriteString(m.Note.View())
	} else if strings.TrimSpace(rec.Note) == "" {
		content.WriteString(subtleStyle.Render("No note. Press n to write one."))
	} else {
		content.WriteString(m.preview(rec.Note))
	}

	return m.wrapPanel(fmt.Sprintf("DAY %d", m.Day), content.String(), !m.Editing)
}

func (m Model) renderWeekPanel() string {
	week := progress.WeekForDay(m.Day)
	w := m.State.Week(week)
	var content strings.Builder

	content.WriteString(output.FormatWeekFlags(w.Completed, w.Enjoyed, w.Bookmarked))
	content.WriteString("\n")

	first := progress.FirstDayOfWeek(week)
	var marks []string
	for d := first; d < first+progress.DaysPerWeek; d++ {
		mark := output.PracticeMark(m.State.Day(d).DidPractice)
		if d == m.Day {
			mark = "[" + mark + "]"
		} else {
			mark = " " + mark + " "
		}
		marks = append(marks, mark)
	}
	content.WriteString(strings.Join(marks, ""))

	if r := strings.TrimSpace(w.ReflectionNote); r != "" {
		content.WriteString("\n\n")
		content.WriteString(m.preview(r))
	}
	return m.wrapPanel(fmt.Sprintf("WEEK %d", week), content.String(), false)
}

func (m Model) renderFooter() string {
	var s strings.Builder
	if m.Message != "" {
		if m.MessageErr {
			s.WriteString(errorStyle.Render(m.Message))
		} else {
			s.WriteString(successStyle.Render(m.Message))
		}
		s.WriteString("\n")
	} else if !m.canEdit() {
		s.WriteString(warningStyle.Render("read-only: your trial has ended"))
		s.WriteString("\n")
	}
	if m.Editing {
		s.WriteString(m.help.View(editorKeys{m.keys}))
	} else {
		s.WriteString(m.help.View(m.keys))
	}
	return s.String()
}

// preview truncates a note to a few lines that fit the panel width
func (m Model) preview(note string) string {
	width := m.Width - 4
	lines := strings.Split(strings.TrimSpace(note), "\n")
	more := len(lines) > notePreviewLines
	if more {
		lines = lines[:notePreviewLines]
	}
	for i, l := range lines {
		lines[i] = ansi.Truncate(l, width, "…")
	}
	if more {
		lines = append(lines, subtleStyle.Render("…"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) fit(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = ansi.Truncate(l, m.Width, "…")
	}
	return strings.Join(lines, "\n")
}

// wrapPanel wraps content in a titled border
func (m Model) wrapPanel(title, content string, active bool) string {
	style := panelStyle
	if active {
		style = activePanelStyle
	}
	contentWidth := m.Width - 4
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > contentWidth {
			lines[i] = ansi.Truncate(line, contentWidth, "…")
		}
	}
	body := panelTitleStyle.Render(title) + "\n" + strings.Join(lines, "\n")
	return style.Width(m.Width - 2).Render(body)
}
