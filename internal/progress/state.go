// Package progress holds the journey state and the pure transitions that
// mutate it: per-day practice records, per-week reflections and settings.
package progress

import "maps"

const (
	TotalDays   = 364
	TotalWeeks  = 52
	DaysPerWeek = 7

	// StorageKey is the local storage key the state blob is persisted under.
	StorageKey = "raja-yoga-progress-v1"
	// JourneyKey locates the user's single remote progress document.
	JourneyKey     = "raja-yoga-v1"
	ProgramVersion = "1"
)

// DayRecord is the practice record for one day of the journey.
type DayRecord struct {
	DayNumber   int    `json:"dayNumber"`
	DidPractice bool   `json:"didPractice"`
	Note        string `json:"note"`
}

// WeekRecord is the reflection record for one week of the journey.
type WeekRecord struct {
	Week           int    `json:"week"`
	Completed      bool   `json:"completed"`
	Enjoyed        bool   `json:"enjoyed"`
	Bookmarked     bool   `json:"bookmarked"`
	ReflectionNote string `json:"reflectionNote"`
}

// Settings holds user preferences. StartDate is YYYY-MM-DD, empty when unset.
type Settings struct {
	StartDate string `json:"startDate,omitempty"`
}

// State is the aggregate journey state owned by one session.
type State struct {
	DayRecords  map[int]DayRecord  `json:"dayRecords"`
	WeekRecords map[int]WeekRecord `json:"weekRecords"`
	Settings    Settings           `json:"settings"`
}

// Initial returns the empty journey state.
func Initial() State {
	return State{
		DayRecords:  map[int]DayRecord{},
		WeekRecords: map[int]WeekRecord{},
	}
}

// Clone returns a deep copy of s. Nil maps come back empty.
func (s State) Clone() State {
	out := State{
		DayRecords:  maps.Clone(s.DayRecords),
		WeekRecords: maps.Clone(s.WeekRecords),
		Settings:    s.Settings,
	}
	if out.DayRecords == nil {
		out.DayRecords = map[int]DayRecord{}
	}
	if out.WeekRecords == nil {
		out.WeekRecords = map[int]WeekRecord{}
	}
	return out
}

// Day returns the record for day n, or a zero record carrying n.
func (s State) Day(n int) DayRecord {
	if d, ok := s.DayRecords[n]; ok {
		return d
	}
	return DayRecord{DayNumber: n}
}

// Week returns the record for week n, or a zero record carrying n.
func (s State) Week(n int) WeekRecord {
	if w, ok := s.WeekRecords[n]; ok {
		return w
	}
	return WeekRecord{Week: n}
}

// ClampDay forces n into [1, TotalDays].
func ClampDay(n int) int {
	return min(max(n, 1), TotalDays)
}

// ClampWeek forces n into [1, TotalWeeks].
func ClampWeek(n int) int {
	return min(max(n, 1), TotalWeeks)
}
