package progress

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// WeekForDay returns the 1-based week a day belongs to.
func WeekForDay(day int) int {
	return (ClampDay(day)-1)/DaysPerWeek + 1
}

// DayIndexInWeek returns the 1-based position of day within its week.
func DayIndexInWeek(day int) int {
	return (ClampDay(day)-1)%DaysPerWeek + 1
}

// FirstDayOfWeek returns the day number that opens week w.
func FirstDayOfWeek(w int) int {
	return (ClampWeek(w)-1)*DaysPerWeek + 1
}

// ParseStartDate validates a YYYY-MM-DD start date.
func ParseStartDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// DateForDay returns the calendar date of day, or false when no start date
// is set.
func DateForDay(s Settings, day int) (time.Time, bool) {
	if s.StartDate == "" {
		return time.Time{}, false
	}
	start, err := ParseStartDate(s.StartDate)
	if err != nil {
		return time.Time{}, false
	}
	return start.AddDate(0, 0, ClampDay(day)-1), true
}

// CurrentDay returns the day number that now falls on, counting the start
// date as day 1. The second result is false without a start date or when
// now lies outside the journey.
func CurrentDay(s Settings, now time.Time) (int, bool) {
	if s.StartDate == "" {
		return 0, false
	}
	start, err := ParseStartDate(s.StartDate)
	if err != nil {
		return 0, false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	day := int(today.Sub(start).Hours()/24) + 1
	if today.Before(start) || day > TotalDays {
		return day, false
	}
	return day, true
}
