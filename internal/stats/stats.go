// Package stats computes read-only summaries over journey progress.
package stats

import (
	"strings"
	"time"

	"github.com/marcus/sutra/internal/progress"
)

// DefaultHistoryCount is the number of days RecentHistory returns when
// asked for n <= 0.
const DefaultHistoryCount = 10

// Summary is the headline progress summary.
type Summary struct {
	DaysPracticed     int     `json:"daysPracticed"`
	DaysWithAnyData   int     `json:"daysWithAnyData"`
	CompletionPercent float64 `json:"completionPercent"`
	CompletedWeeks    int     `json:"completedWeeks"`
	BookmarkedWeeks   int     `json:"bookmarkedWeeks"`
}

// Compute summarizes s.
func Compute(s progress.State) Summary {
	var sum Summary
	for day := 1; day <= progress.TotalDays; day++ {
		d, ok := s.DayRecords[day]
		if !ok {
			continue
		}
		if d.DidPractice {
			sum.DaysPracticed++
		}
		if d.DidPractice || strings.TrimSpace(d.Note) != "" {
			sum.DaysWithAnyData++
		}
	}
	for week := 1; week <= progress.TotalWeeks; week++ {
		w, ok := s.WeekRecords[week]
		if !ok {
			continue
		}
		if w.Completed {
			sum.CompletedWeeks++
		}
		if w.Bookmarked {
			sum.BookmarkedWeeks++
		}
	}
	sum.CompletionPercent = CompletionPercent(sum.DaysPracticed)
	return sum
}

// CompletionPercent is practiced days as a share of the whole journey.
func CompletionPercent(practiced int) float64 {
	return float64(practiced) / float64(progress.TotalDays) * 100
}

// StreakInfo describes the current run of practiced days.
type StreakInfo struct {
	Count  int  `json:"count"`
	Active bool `json:"active"`
}

// Streak counts consecutive practiced days walking back from today. The
// streak is only active if today itself was practiced.
func Streak(days map[int]progress.DayRecord, today int) StreakInfo {
	if today < 1 || today > progress.TotalDays {
		return StreakInfo{}
	}
	if !days[today].DidPractice {
		return StreakInfo{}
	}
	n := 0
	for d := today; d >= 1 && days[d].DidPractice; d-- {
		n++
	}
	return StreakInfo{Count: n, Active: true}
}

// HistoryItem is one row of recent history.
type HistoryItem struct {
	DayNumber   int  `json:"dayNumber"`
	DidPractice bool `json:"didPractice"`
	HasNote     bool `json:"hasNote"`
}

// RecentHistory returns up to n recorded days, newest first.
func RecentHistory(days map[int]progress.DayRecord, n int) []HistoryItem {
	if n <= 0 {
		n = DefaultHistoryCount
	}
	var items []HistoryItem
	for day := progress.TotalDays; day >= 1 && len(items) < n; day-- {
		d, ok := days[day]
		if !ok {
			continue
		}
		items = append(items, HistoryItem{
			DayNumber:   day,
			DidPractice: d.DidPractice,
			HasNote:     strings.TrimSpace(d.Note) != "",
		})
	}
	return items
}

// DayEntry is a daily journal entry.
type DayEntry struct {
	DayNumber   int        `json:"dayNumber"`
	Week        int        `json:"week"`
	DayIndex    int        `json:"dayIndex"`
	Date        *time.Time `json:"date,omitempty"`
	Note        string     `json:"note"`
	DidPractice bool       `json:"didPractice"`
}

// JournalDays lists days with a non-blank note, newest first.
func JournalDays(s progress.State) []DayEntry {
	var out []DayEntry
	for day := progress.TotalDays; day >= 1; day-- {
		d, ok := s.DayRecords[day]
		if !ok {
			continue
		}
		note := strings.TrimSpace(d.Note)
		if note == "" {
			continue
		}
		e := DayEntry{
			DayNumber:   day,
			Week:        progress.WeekForDay(day),
			DayIndex:    progress.DayIndexInWeek(day),
			Note:        note,
			DidPractice: d.DidPractice,
		}
		if date, ok := progress.DateForDay(s.Settings, day); ok {
			e.Date = &date
		}
		out = append(out, e)
	}
	return out
}

// WeekEntry is a weekly journal entry.
type WeekEntry struct {
	Week       int    `json:"week"`
	Completed  bool   `json:"completed"`
	Enjoyed    bool   `json:"enjoyed"`
	Bookmarked bool   `json:"bookmarked"`
	Reflection string `json:"reflection"`
}

// JournalWeeks lists weeks with a reflection or any flag set, newest first.
func JournalWeeks(s progress.State) []WeekEntry {
	var out []WeekEntry
	for week := progress.TotalWeeks; week >= 1; week-- {
		w, ok := s.WeekRecords[week]
		if !ok {
			continue
		}
		reflection := strings.TrimSpace(w.ReflectionNote)
		if reflection == "" && !w.Completed && !w.Enjoyed && !w.Bookmarked {
			continue
		}
		out = append(out, WeekEntry{
			Week:       week,
			Completed:  w.Completed,
			Enjoyed:    w.Enjoyed,
			Bookmarked: w.Bookmarked,
			Reflection: reflection,
		})
	}
	return out
}
