package progress

import "maps"

// Action is one of the named transitions accepted by Reduce.
type Action interface {
	isAction()
}

// TogglePractice flips didPractice for a day.
type TogglePractice struct{ Day int }

// UpdateDayNote replaces a day's note.
type UpdateDayNote struct {
	Day  int
	Note string
}

// ToggleWeekCompleted flips the completed flag of a week.
type ToggleWeekCompleted struct{ Week int }

// ToggleWeekEnjoyed flips the enjoyed flag of a week. Turning it on also
// bookmarks the week; turning it off leaves the bookmark alone.
type ToggleWeekEnjoyed struct{ Week int }

// ToggleWeekBookmarked flips the bookmarked flag of a week.
type ToggleWeekBookmarked struct{ Week int }

// UpdateWeekReflection replaces a week's reflection note.
type UpdateWeekReflection struct {
	Week int
	Note string
}

// SetStartDate sets (or clears, with "") the journey start date.
type SetStartDate struct{ Date string }

// ResetAll discards all progress.
type ResetAll struct{}

// Hydrate replaces the whole state, e.g. after loading from storage.
type Hydrate struct{ State State }

func (TogglePractice) isAction()       {}
func (UpdateDayNote) isAction()        {}
func (ToggleWeekCompleted) isAction()  {}
func (ToggleWeekEnjoyed) isAction()    {}
func (ToggleWeekBookmarked) isAction() {}
func (UpdateWeekReflection) isAction() {}
func (SetStartDate) isAction()         {}
func (ResetAll) isAction()             {}
func (Hydrate) isAction()              {}

// IsJourneyEdit reports whether a touches day or week records. These are
// the transitions gated behind an active trial or subscription.
func IsJourneyEdit(a Action) bool {
	switch a.(type) {
	case TogglePractice, UpdateDayNote,
		ToggleWeekCompleted, ToggleWeekEnjoyed, ToggleWeekBookmarked, UpdateWeekReflection:
		return true
	}
	return false
}

// Reduce applies a to s and returns the new state. s is never modified and
// fields the action does not name are carried over unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case Hydrate:
		return a.State.Clone()

	case TogglePractice:
		day := ClampDay(a.Day)
		cur := s.Day(day)
		return s.withDay(DayRecord{DayNumber: day, DidPractice: !cur.DidPractice, Note: cur.Note})

	case UpdateDayNote:
		day := ClampDay(a.Day)
		cur := s.Day(day)
		return s.withDay(DayRecord{DayNumber: day, DidPractice: cur.DidPractice, Note: a.Note})

	case ToggleWeekCompleted:
		w := s.Week(ClampWeek(a.Week))
		w.Week = ClampWeek(a.Week)
		w.Completed = !w.Completed
		return s.withWeek(w)

	case ToggleWeekEnjoyed:
		w := s.Week(ClampWeek(a.Week))
		w.Week = ClampWeek(a.Week)
		w.Enjoyed = !w.Enjoyed
		if w.Enjoyed {
			w.Bookmarked = true
		}
		return s.withWeek(w)

	case ToggleWeekBookmarked:
		w := s.Week(ClampWeek(a.Week))
		w.Week = ClampWeek(a.Week)
		w.Bookmarked = !w.Bookmarked
		return s.withWeek(w)

	case UpdateWeekReflection:
		w := s.Week(ClampWeek(a.Week))
		w.Week = ClampWeek(a.Week)
		w.ReflectionNote = a.Note
		return s.withWeek(w)

	case SetStartDate:
		next := s
		next.Settings.StartDate = a.Date
		return next

	case ResetAll:
		return Initial()
	}
	return s
}

func (s State) withDay(d DayRecord) State {
	next := s
	next.DayRecords = maps.Clone(s.DayRecords)
	if next.DayRecords == nil {
		next.DayRecords = map[int]DayRecord{}
	}
	next.DayRecords[d.DayNumber] = d
	return next
}

func (s State) withWeek(w WeekRecord) State {
	next := s
	next.WeekRecords = maps.Clone(s.WeekRecords)
	if next.WeekRecords == nil {
		next.WeekRecords = map[int]WeekRecord{}
	}
	next.WeekRecords[w.Week] = w
	return next
}
