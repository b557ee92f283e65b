package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceClampsDayNumbers(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero", 0, 1},
		{"negative", -40, 1},
		{"first", 1, 1},
		{"last", TotalDays, TotalDays},
		{"past end", TotalDays + 1, TotalDays},
		{"far past end", 10_000, TotalDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Reduce(Initial(), TogglePractice{Day: tt.in})
			require.Len(t, s.DayRecords, 1)
			rec, ok := s.DayRecords[tt.want]
			require.True(t, ok, "record not stored under clamped day %d", tt.want)
			assert.Equal(t, tt.want, rec.DayNumber)

			s = Reduce(Initial(), UpdateDayNote{Day: tt.in, Note: "x"})
			assert.Equal(t, "x", s.DayRecords[tt.want].Note)
		})
	}
}

func TestReduceClampsWeekNumbers(t *testing.T) {
	for _, in := range []int{-3, 0, 53, 99} {
		want := ClampWeek(in)
		s := Reduce(Initial(), ToggleWeekCompleted{Week: in})
		rec, ok := s.WeekRecords[want]
		require.True(t, ok, "week %d not clamped to %d", in, want)
		assert.Equal(t, want, rec.Week)
	}
	assert.Equal(t, 1, ClampWeek(0))
	assert.Equal(t, TotalWeeks, ClampWeek(53))
}

func TestTogglePracticeTwiceRestoresAndKeepsNote(t *testing.T) {
	s := Reduce(Initial(), UpdateDayNote{Day: 12, Note: "felt steady"})
	before := s.Day(12)

	once := Reduce(s, TogglePractice{Day: 12})
	assert.True(t, once.Day(12).DidPractice)
	assert.Equal(t, "felt steady", once.Day(12).Note)

	twice := Reduce(once, TogglePractice{Day: 12})
	assert.Equal(t, before.DidPractice, twice.Day(12).DidPractice)
	assert.Equal(t, "felt steady", twice.Day(12).Note)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := Reduce(Initial(), TogglePractice{Day: 3})
	_ = Reduce(s, TogglePractice{Day: 3})
	_ = Reduce(s, UpdateDayNote{Day: 4, Note: "new"})
	_ = Reduce(s, ToggleWeekEnjoyed{Week: 1})

	assert.True(t, s.Day(3).DidPractice)
	assert.NotContains(t, s.DayRecords, 4)
	assert.Empty(t, s.WeekRecords)
}

func TestEnjoyedForcesBookmark(t *testing.T) {
	s := Reduce(Initial(), ToggleWeekEnjoyed{Week: 2})
	w := s.Week(2)
	assert.True(t, w.Enjoyed)
	assert.True(t, w.Bookmarked)

	// Turning enjoyed off keeps the bookmark.
	s = Reduce(s, ToggleWeekEnjoyed{Week: 2})
	w = s.Week(2)
	assert.False(t, w.Enjoyed)
	assert.True(t, w.Bookmarked)

	// An explicitly cleared bookmark is set again by enjoying.
	s = Reduce(s, ToggleWeekBookmarked{Week: 2})
	require.False(t, s.Week(2).Bookmarked)
	s = Reduce(s, ToggleWeekEnjoyed{Week: 2})
	assert.True(t, s.Week(2).Bookmarked)
}

func TestBookmarkDoesNotTouchEnjoyed(t *testing.T) {
	s := Reduce(Initial(), ToggleWeekBookmarked{Week: 5})
	assert.True(t, s.Week(5).Bookmarked)
	assert.False(t, s.Week(5).Enjoyed)
}

func TestWeekActionsPreserveOtherFields(t *testing.T) {
	s := Reduce(Initial(), UpdateWeekReflection{Week: 7, Note: "quiet week"})
	s = Reduce(s, ToggleWeekCompleted{Week: 7})
	s = Reduce(s, ToggleWeekBookmarked{Week: 7})

	assert.Equal(t, WeekRecord{Week: 7, Completed: true, Bookmarked: true, ReflectionNote: "quiet week"}, s.Week(7))
}

func TestSetStartDateAndReset(t *testing.T) {
	s := Reduce(Initial(), SetStartDate{Date: "2025-01-06"})
	s = Reduce(s, TogglePractice{Day: 1})
	assert.Equal(t, "2025-01-06", s.Settings.StartDate)
	assert.Len(t, s.DayRecords, 1)

	s = Reduce(s, SetStartDate{Date: ""})
	assert.Empty(t, s.Settings.StartDate)
	assert.Len(t, s.DayRecords, 1)

	assert.Equal(t, Initial(), Reduce(s, ResetAll{}))
}

func TestHydrateReplacesWholesale(t *testing.T) {
	src := Reduce(Initial(), TogglePractice{Day: 9})
	s := Reduce(Reduce(Initial(), TogglePractice{Day: 1}), Hydrate{State: src})
	assert.Equal(t, src, s)

	// The hydrated state does not alias the payload.
	s.DayRecords[100] = DayRecord{DayNumber: 100}
	assert.NotContains(t, src.DayRecords, 100)
}

func TestUnknownActionIsNoop(t *testing.T) {
	s := Reduce(Initial(), TogglePractice{Day: 1})
	assert.Equal(t, s, Reduce(s, nil))
}

func TestIsJourneyEdit(t *testing.T) {
	assert.True(t, IsJourneyEdit(TogglePractice{}))
	assert.True(t, IsJourneyEdit(UpdateWeekReflection{}))
	assert.False(t, IsJourneyEdit(SetStartDate{}))
	assert.False(t, IsJourneyEdit(ResetAll{}))
	assert.False(t, IsJourneyEdit(Hydrate{}))
}
