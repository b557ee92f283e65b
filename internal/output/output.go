// Package output provides styled terminal output helpers (success, error,
// warning, journey formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/sutra/internal/datefmt"
	"github.com/marcus/sutra/internal/journey"
	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/stats"
	"github.com/marcus/sutra/internal/subscription"
)

var (
	// Styles
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	barFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	statusStyles  = map[subscription.Status]lipgloss.Style{
		subscription.StatusNone:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		subscription.StatusTrial:   lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		subscription.StatusActive:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		subscription.StatusExpired: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeReadOnly     = "read_only"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNetworkError = "network_error"
	ErrCodeStorageError = "storage_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	fmt.Println(jsonErrorString(code, message, nil))
}

// JSONErrorWithDetails outputs an error as JSON with additional context
func JSONErrorWithDetails(code, message string, details map[string]interface{}) {
	fmt.Println(jsonErrorString(code, message, details))
}

func jsonErrorString(code, message string, details map[string]interface{}) string {
	errObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		errObj["details"] = details
	}
	data, _ := json.Marshal(map[string]interface{}{"error": errObj})
	return string(data)
}

// PracticeMark is the single-character practice indicator for a day.
func PracticeMark(practiced bool) string {
	if practiced {
		return successStyle.Render("✓")
	}
	return subtleStyle.Render("○")
}

// FormatDayLine renders one day as a single line, e.g.
// "Day 12 · week 2, day 5 · 17 Jan 2025 ✓ practiced".
// The date segment is omitted when date is nil.
func FormatDayLine(rec progress.DayRecord, date *time.Time, locale string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Day %d", rec.DayNumber)))
	sb.WriteString(subtleStyle.Render(fmt.Sprintf(" · week %d, day %d",
		progress.WeekForDay(rec.DayNumber), progress.DayIndexInWeek(rec.DayNumber))))
	if date != nil {
		sb.WriteString(subtleStyle.Render(" · " + datefmt.Format(*date, locale, datefmt.Medium)))
	}
	sb.WriteString(" ")
	sb.WriteString(PracticeMark(rec.DidPractice))
	if rec.DidPractice {
		sb.WriteString(" practiced")
	} else {
		sb.WriteString(" not practiced")
	}
	if strings.TrimSpace(rec.Note) != "" {
		sb.WriteString(subtleStyle.Render(" (note)"))
	}
	return sb.String()
}

// FormatWeekFlags lists a week's set flags, or "no flags" when none are set.
func FormatWeekFlags(completed, enjoyed, bookmarked bool) string {
	var flags []string
	if completed {
		flags = append(flags, successStyle.Render("✓ completed"))
	}
	if enjoyed {
		flags = append(flags, accentStyle.Render("♥ enjoyed"))
	}
	if bookmarked {
		flags = append(flags, warningStyle.Render("★ bookmarked"))
	}
	if len(flags) == 0 {
		return subtleStyle.Render("no flags")
	}
	return strings.Join(flags, "  ")
}

// FormatWeekLine renders a week header with its flags.
func FormatWeekLine(w progress.WeekRecord) string {
	return fmt.Sprintf("%s  %s", titleStyle.Render(fmt.Sprintf("Week %d", w.Week)),
		FormatWeekFlags(w.Completed, w.Enjoyed, w.Bookmarked))
}

// ProgressBar renders percent (0-100) as a bar of the given width.
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		width = 20
	}
	percent = math.Min(math.Max(percent, 0), 100)
	filled := int(math.Round(percent / 100 * float64(width)))
	return barFillStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// FormatPercent renders a completion percentage with one decimal.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatSummary renders the headline stats block.
func FormatSummary(sum stats.Summary, streak stats.StreakInfo) []string {
	streakText := "no active streak"
	if streak.Active {
		streakText = fmt.Sprintf("%d day%s", streak.Count, plural(streak.Count))
	}
	return []string{
		fmt.Sprintf("Progress   %s %s", ProgressBar(sum.CompletionPercent, 24), FormatPercent(sum.CompletionPercent)),
		fmt.Sprintf("Practiced  %d of %d days", sum.DaysPracticed, progress.TotalDays),
		fmt.Sprintf("Recorded   %d days with practice or notes", sum.DaysWithAnyData),
		fmt.Sprintf("Weeks      %d completed, %d bookmarked", sum.CompletedWeeks, sum.BookmarkedWeeks),
		fmt.Sprintf("Streak     %s", streakText),
	}
}

// FormatHistoryItem renders one row of recent history.
func FormatHistoryItem(item stats.HistoryItem) string {
	line := fmt.Sprintf("%s Day %d", PracticeMark(item.DidPractice), item.DayNumber)
	if item.HasNote {
		line += subtleStyle.Render(" (note)")
	}
	return line
}

// StatusBadge returns a subscription status with its symbol, e.g. "● active".
func StatusBadge(status subscription.Status) string {
	symbols := map[subscription.Status]string{
		subscription.StatusNone:    "○",
		subscription.StatusTrial:   "◐",
		subscription.StatusActive:  "●",
		subscription.StatusExpired: "✗",
	}
	symbol, ok := symbols[status]
	if !ok {
		symbol = "?"
	}
	if style, ok := statusStyles[status]; ok {
		return style.Render(fmt.Sprintf("%s %s", symbol, status))
	}
	return fmt.Sprintf("%s %s", symbol, status)
}

// FormatSubscription renders the derived gate as one line.
func FormatSubscription(v subscription.View, locale string) string {
	line := StatusBadge(v.Status)
	switch {
	case v.IsTrialActive && v.DaysLeft != nil:
		line += fmt.Sprintf(" · %d day%s left", *v.DaysLeft, plural(*v.DaysLeft))
		if v.TrialEndsAt != nil {
			line += subtleStyle.Render(" (ends " + datefmt.Format(*v.TrialEndsAt, locale, datefmt.Medium) + ")")
		}
	case v.IsActivePaid:
		line += " · lifetime access"
	case v.Unrecognized:
		line += warningStyle.Render(" · unrecognized status, read-only")
	case v.IsExpired:
		line += warningStyle.Render(" · read-only")
	}
	return line
}

// FormatSyncStatus renders the remote sync state of a session.
func FormatSyncStatus(st journey.Status) string {
	var line string
	if st.Online {
		line = successStyle.Render("online")
	} else {
		line = warningStyle.Render("offline")
	}
	if !st.LastSyncedAt.IsZero() {
		line += subtleStyle.Render(" · synced " + FormatTimeAgo(st.LastSyncedAt))
	}
	if st.Pending > 0 {
		line += fmt.Sprintf(" · %d pending", st.Pending)
	}
	if st.LastError != "" {
		line += errorStyle.Render(" · " + st.LastError)
	}
	return line
}

// JournalMarkdown builds the journal as markdown for RenderJournal.
func JournalMarkdown(days []stats.DayEntry, weeks []stats.WeekEntry, locale string) string {
	var sb strings.Builder
	sb.WriteString("# Journal\n\n")
	if len(days) == 0 && len(weeks) == 0 {
		sb.WriteString("_No notes or reflections yet._\n")
		return sb.String()
	}

	if len(weeks) > 0 {
		sb.WriteString("## Weekly reflections\n\n")
		for _, w := range weeks {
			fmt.Fprintf(&sb, "### Week %d", w.Week)
			if flags := weekFlagWords(w); flags != "" {
				fmt.Fprintf(&sb, " (%s)", flags)
			}
			sb.WriteString("\n\n")
			if w.Reflection != "" {
				sb.WriteString(blockquote(w.Reflection))
				sb.WriteString("\n\n")
			}
		}
	}

	if len(days) > 0 {
		sb.WriteString("## Daily notes\n\n")
		for _, d := range days {
			fmt.Fprintf(&sb, "### Day %d · week %d, day %d", d.DayNumber, d.Week, d.DayIndex)
			if d.Date != nil {
				fmt.Fprintf(&sb, " · %s", datefmt.Format(*d.Date, locale, datefmt.Long))
			}
			sb.WriteString("\n\n")
			if d.DidPractice {
				sb.WriteString("*Practiced*\n\n")
			}
			sb.WriteString(blockquote(d.Note))
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func weekFlagWords(w stats.WeekEntry) string {
	var words []string
	if w.Completed {
		words = append(words, "completed")
	}
	if w.Enjoyed {
		words = append(words, "enjoyed")
	}
	if w.Bookmarked {
		words = append(words, "bookmarked")
	}
	return strings.Join(words, ", ")
}

func blockquote(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nWEEK 3:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentLines indents each line by the specified number of spaces
func IndentLines(lines []string, spaces int) []string {
	indent := strings.Repeat(" ", spaces)
	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = indent + line
	}
	return result
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	indented := IndentLines(lines, spaces)
	return strings.Join(indented, "\n")
}

// BulletList formats items as a bulleted list with optional indentation
func BulletList(items []string, indent int) []string {
	prefix := strings.Repeat(" ", indent)
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = prefix + "- " + item
	}
	return result
}
