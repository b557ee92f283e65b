// Package dateparse turns the start-date arguments accepted on the command
// line into a journey start date (YYYY-MM-DD).
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/sutra/internal/progress"
)

const layout = "2006-01-02"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseStartDate parses a start date input using the current time.
//
// Supported formats:
//   - Exact dates: "2026-03-01"
//   - Keywords: "today", "yesterday", "tomorrow"
//   - Relative offsets: "-10d", "+1w" (days or weeks)
//   - Weekdays: "monday" (next occurrence), "last-monday" (previous)
//   - Journey day: "day:12" makes today day 12 of the journey
func ParseStartDate(input string) (string, error) {
	return ParseStartDateFrom(input, time.Now())
}

// ParseStartDateFrom parses input relative to now. Only the calendar date
// of now is used.
func ParseStartDateFrom(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return "", fmt.Errorf("empty start date")
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	if t, err := time.Parse(layout, input); err == nil {
		return t.Format(layout), nil
	}

	switch input {
	case "today":
		return today.Format(layout), nil
	case "yesterday":
		return today.AddDate(0, 0, -1).Format(layout), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1).Format(layout), nil
	}

	if rest, ok := strings.CutPrefix(input, "day:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 || n > progress.TotalDays {
			return "", fmt.Errorf("journey day must be between 1 and %d, got %q", progress.TotalDays, rest)
		}
		return StartForDay(n, today), nil
	}

	if (input[0] == '+' || input[0] == '-') && len(input) >= 3 {
		sign := 1
		if input[0] == '-' {
			sign = -1
		}
		unit := input[len(input)-1]
		n, err := strconv.Atoi(input[1 : len(input)-1])
		if err == nil && n >= 0 {
			switch unit {
			case 'd':
				return today.AddDate(0, 0, sign*n).Format(layout), nil
			case 'w':
				return today.AddDate(0, 0, sign*n*7).Format(layout), nil
			default:
				return "", fmt.Errorf("unknown relative unit %q in %q (use d or w)", string(unit), input)
			}
		}
	}

	if name, ok := strings.CutPrefix(input, "last-"); ok {
		if target, ok := weekdays[name]; ok {
			back := (int(today.Weekday()) - int(target) + 7) % 7
			if back == 0 {
				back = 7
			}
			return today.AddDate(0, 0, -back).Format(layout), nil
		}
	}
	if target, ok := weekdays[strings.TrimPrefix(input, "next-")]; ok {
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead).Format(layout), nil
	}

	return "", fmt.Errorf("unrecognized start date: %q", input)
}

// StartForDay returns the start date that makes today the given journey day.
func StartForDay(day int, today time.Time) string {
	return today.AddDate(0, 0, -(progress.ClampDay(day) - 1)).Format(layout)
}
