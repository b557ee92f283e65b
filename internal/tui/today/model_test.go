package today

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/sutra/internal/journey"
	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/subscription"
)

type fakeJourney struct {
	mu       sync.Mutex
	state    progress.State
	readOnly bool
	actions  []progress.Action
}

func newFakeJourney() *fakeJourney {
	return &fakeJourney{state: progress.Initial()}
}

func (f *fakeJourney) State() progress.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

func (f *fakeJourney) Status() journey.Status {
	return journey.Status{Online: true}
}

func (f *fakeJourney) Dispatch(_ context.Context, a progress.Action) (progress.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readOnly && progress.IsJourneyEdit(a) {
		return f.state.Clone(), journey.ErrReadOnly
	}
	f.actions = append(f.actions, a)
	f.state = progress.Reduce(f.state, a)
	return f.state.Clone(), nil
}

type fixedGate subscription.View

func (g fixedGate) View() subscription.View { return subscription.View(g) }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs any resulting dispatch command.
func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	m = updated.(Model)
	if cmd == nil || m.Editing {
		return m
	}
	if out, ok := cmd().(DispatchedMsg); ok {
		updated, _ = m.Update(out)
		m = updated.(Model)
	}
	return m
}

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return updated.(Model)
}

func TestNewModelStartsOnToday(t *testing.T) {
	j := newFakeJourney()
	j.state = progress.Reduce(j.state, progress.SetStartDate{Date: "2025-01-06"})

	m := NewModel(j, nil, "en-GB")
	m.Now = func() time.Time { return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC) }
	m.Day = m.today()
	if m.Day != 10 {
		t.Errorf("today = %d, want 10", m.Day)
	}

	m.Now = func() time.Time { return time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC) }
	if got := m.today(); got != 1 {
		t.Errorf("before start today = %d, want 1", got)
	}

	m2 := NewModel(newFakeJourney(), nil, "en-GB")
	if m2.Day != 1 {
		t.Errorf("no start date day = %d, want 1", m2.Day)
	}
}

func TestNavigation(t *testing.T) {
	tests := []struct {
		name  string
		start int
		key   tea.KeyMsg
		want  int
	}{
		{"next day", 5, runes("l"), 6},
		{"next day arrow", 5, tea.KeyMsg{Type: tea.KeyRight}, 6},
		{"prev day clamps", 1, runes("h"), 1},
		{"next day clamps", progress.TotalDays, runes("l"), progress.TotalDays},
		{"next week", 5, runes("]"), 8},
		{"prev week", 10, runes("["), 1},
		{"prev week from first week", 3, runes("["), 1},
		{"next week from last week", 360, runes("]"), 358},
		{"today without start date", 200, runes("t"), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModel(newFakeJourney(), nil, "en-GB")
			m.Day = tc.start
			m = press(t, m, tc.key)
			if m.Day != tc.want {
				t.Errorf("Day = %d, want %d", m.Day, tc.want)
			}
		})
	}
}

func TestTogglePracticeAndWeekFlags(t *testing.T) {
	j := newFakeJourney()
	m := NewModel(j, nil, "en-GB")
	m.Day = 9

	m = press(t, m, runes(" "))
	if !m.State.Day(9).DidPractice {
		t.Fatal("day 9 should be practiced after space")
	}
	if m.Message != "practice updated" || m.MessageErr {
		t.Errorf("message = %q (err %v)", m.Message, m.MessageErr)
	}

	m = press(t, m, runes("c"))
	m = press(t, m, runes("b"))
	w := m.State.Week(2)
	if !w.Completed || !w.Bookmarked || w.Enjoyed {
		t.Errorf("week 2 = %+v", w)
	}

	if len(j.actions) != 3 {
		t.Fatalf("actions = %d, want 3", len(j.actions))
	}
	if _, ok := j.actions[1].(progress.ToggleWeekCompleted); !ok {
		t.Errorf("second action = %T", j.actions[1])
	}
}

func TestReadOnlyDispatch(t *testing.T) {
	j := newFakeJourney()
	j.readOnly = true
	m := NewModel(j, fixedGate(subscription.View{Status: subscription.StatusExpired, IsExpired: true}), "en-GB")

	m = press(t, m, runes("p"))
	if m.State.Day(1).DidPractice {
		t.Error("read-only dispatch should not change state")
	}
	if !m.MessageErr || !strings.Contains(m.Message, "read-only") {
		t.Errorf("message = %q (err %v)", m.Message, m.MessageErr)
	}

	m.Message = ""
	m = press(t, m, runes("n"))
	if m.Editing {
		t.Error("editor should not open while read-only")
	}
	if !strings.Contains(m.Message, "read-only") {
		t.Errorf("message = %q", m.Message)
	}
}

func TestEditNote(t *testing.T) {
	j := newFakeJourney()
	m := sized(NewModel(j, nil, "en-GB"))
	m.Day = 4

	m = press(t, m, runes("n"))
	if !m.Editing || m.Note == nil {
		t.Fatal("editor should be open")
	}

	// keys go to the editor while it is open
	m = press(t, m, runes("q"))
	if !m.Editing {
		t.Fatal("q should be typed into the note, not quit")
	}
	m.Note.SetValue("breath counting\nten rounds")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.Editing {
		t.Error("editor should close after save")
	}
	if got := m.State.Day(4).Note; got != "breath counting\nten rounds" {
		t.Errorf("note = %q", got)
	}
	if m.Message != "note saved" {
		t.Errorf("message = %q", m.Message)
	}
}

func TestEditNoteCancel(t *testing.T) {
	j := newFakeJourney()
	j.state = progress.Reduce(j.state, progress.UpdateDayNote{Day: 1, Note: "keep me"})
	m := sized(NewModel(j, nil, "en-GB"))

	m = press(t, m, runes("n"))
	if got := m.Note.Value(); got != "keep me" {
		t.Errorf("editor prefilled with %q", got)
	}
	m.Note.SetValue("discard me")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.Editing {
		t.Error("editor should close on esc")
	}
	if got := m.State.Day(1).Note; got != "keep me" {
		t.Errorf("note = %q", got)
	}
	if len(j.actions) != 0 {
		t.Errorf("cancel dispatched %d actions", len(j.actions))
	}
}

func TestTickReloadsState(t *testing.T) {
	j := newFakeJourney()
	m := NewModel(j, nil, "en-GB")

	if _, err := j.Dispatch(context.Background(), progress.TogglePractice{Day: 1}); err != nil {
		t.Fatal(err)
	}
	if m.State.Day(1).DidPractice {
		t.Fatal("model should not see the change before a tick")
	}
	updated, cmd := m.Update(TickMsg(time.Now()))
	m = updated.(Model)
	if !m.State.Day(1).DidPractice {
		t.Error("tick should reload state")
	}
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(newFakeJourney(), nil, "en-GB")
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestView(t *testing.T) {
	j := newFakeJourney()
	j.state = progress.Reduce(j.state, progress.SetStartDate{Date: "2025-01-06"})
	j.state = progress.Reduce(j.state, progress.TogglePractice{Day: 3})
	j.state = progress.Reduce(j.state, progress.UpdateDayNote{Day: 3, Note: strings.Repeat("long line ", 30)})
	j.state = progress.Reduce(j.state, progress.ToggleWeekEnjoyed{Week: 1})

	days := 12
	gate := fixedGate(subscription.View{Status: subscription.StatusTrial, IsTrialActive: true, CanEditJourney: true, DaysLeft: &days})
	m := sized(NewModel(j, gate, "en-GB"))
	m.Day = 3

	view := ansi.Strip(m.View())
	for _, want := range []string{"Day 3 of 364", "DAY 3", "WEEK 1", "8 Jan 2025", "✓ practiced", "enjoyed", "12 days left", "online", "…"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	for _, line := range strings.Split(view, "\n") {
		if w := ansi.StringWidth(line); w > 80 {
			t.Errorf("line wider than terminal (%d): %q", w, line)
		}
	}
}

func TestViewSmallTerminal(t *testing.T) {
	m := NewModel(newFakeJourney(), nil, "en-GB")
	if m.View() != "Loading..." {
		t.Errorf("unsized view = %q", m.View())
	}
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})
	view := updated.(Model).View()
	if !strings.Contains(view, "resize for full view") {
		t.Errorf("compact view = %q", view)
	}
}

func TestViewReadOnlyBanner(t *testing.T) {
	gate := fixedGate(subscription.View{Status: subscription.StatusExpired, IsExpired: true})
	m := sized(NewModel(newFakeJourney(), gate, "en-GB"))
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "read-only") {
		t.Errorf("expected read-only banner:\n%s", view)
	}
}
