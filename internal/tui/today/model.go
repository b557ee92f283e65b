// Package today implements the interactive day view: one day of the journey
// with its week, practice toggle, notes and week flags.
package today

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sutra/internal/journey"
	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/subscription"
)

// Journey is the session state the view reads and edits.
type Journey interface {
	State() progress.State
	Status() journey.Status
	Dispatch(ctx context.Context, a progress.Action) (progress.State, error)
}

// Gate reports the current subscription view. May be nil for local-only use.
type Gate interface {
	View() subscription.View
}

// MinWidth is the minimum terminal width for the full view
const MinWidth = 40

// MinHeight is the minimum terminal height for the full view
const MinHeight = 15

// DefaultRefreshInterval is how often sync status and remote changes are
// re-read.
const DefaultRefreshInterval = 2 * time.Second

// TickMsg triggers a re-read of the journey state
type TickMsg time.Time

// DispatchedMsg reports the outcome of an edit
type DispatchedMsg struct {
	Action progress.Action
	Err    error
}

// Model is the Bubble Tea model for the day view
type Model struct {
	Journey Journey
	Gate    Gate
	Locale  string
	Now     func() time.Time

	// Window dimensions
	Width  int
	Height int

	// Day is the day on screen
	Day int

	State      progress.State
	Sync       journey.Status
	Access     subscription.View
	HasAccess  bool
	Message    string
	MessageErr bool

	Editing bool
	Note    *textarea.Model

	keys keyMap
	help help.Model

	RefreshInterval time.Duration
}

// NewModel creates a day view positioned on today, or day 1 when no start
// date is set or today lies outside the journey.
func NewModel(j Journey, gate Gate, locale string) Model {
	m := Model{
		Journey:         j,
		Gate:            gate,
		Locale:          locale,
		Now:             time.Now,
		keys:            defaultKeyMap(),
		help:            help.New(),
		RefreshInterval: DefaultRefreshInterval,
	}
	m.reload()
	m.Day = m.today()
	return m
}

func (m Model) today() int {
	if day, ok := progress.CurrentDay(m.State.Settings, m.Now()); ok {
		return day
	}
	return 1
}

func (m *Model) reload() {
	m.State = m.Journey.State()
	m.Sync = m.Journey.Status()
	if m.Gate != nil {
		m.Access = m.Gate.View()
		m.HasAccess = true
	}
}

// canEdit mirrors the provider's gate so the view can warn before dispatch.
func (m Model) canEdit() bool {
	return !m.HasAccess || m.Access.CanEditJourney
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.scheduleTick()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Editing {
			return m.handleEditorKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		if m.Note != nil {
			m.Note.SetWidth(max(msg.Width-6, 10))
		}
		return m, nil

	case TickMsg:
		m.reload()
		return m, m.scheduleTick()

	case DispatchedMsg:
		m.reload()
		switch {
		case errors.Is(msg.Err, journey.ErrReadOnly):
			m.setError("read-only: subscribe to keep editing your journey")
		case msg.Err != nil:
			m.setError(msg.Err.Error())
		default:
			m.Message, m.MessageErr = describe(msg.Action), false
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) setError(text string) {
	m.Message = text
	m.MessageErr = true
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	week := progress.WeekForDay(m.Day)
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.PrevDay):
		m.Day = progress.ClampDay(m.Day - 1)
	case key.Matches(msg, m.keys.NextDay):
		m.Day = progress.ClampDay(m.Day + 1)
	case key.Matches(msg, m.keys.PrevWeek):
		m.Day = progress.FirstDayOfWeek(week - 1)
	case key.Matches(msg, m.keys.NextWeek):
		m.Day = progress.FirstDayOfWeek(week + 1)
	case key.Matches(msg, m.keys.Today):
		m.Day = m.today()

	case key.Matches(msg, m.keys.Practice):
		return m, m.dispatch(progress.TogglePractice{Day: m.Day})
	case key.Matches(msg, m.keys.Completed):
		return m, m.dispatch(progress.ToggleWeekCompleted{Week: week})
	case key.Matches(msg, m.keys.Enjoyed):
		return m, m.dispatch(progress.ToggleWeekEnjoyed{Week: week})
	case key.Matches(msg, m.keys.Bookmarked):
		return m, m.dispatch(progress.ToggleWeekBookmarked{Week: week})

	case key.Matches(msg, m.keys.EditNote):
		if !m.canEdit() {
			m.setError("read-only: subscribe to keep editing your journey")
			return m, nil
		}
		m.openEditor()
		return m, textarea.Blink

	case key.Matches(msg, m.keys.Refresh):
		m.reload()
		m.Message = ""
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) openEditor() {
	ta := textarea.New()
	ta.Placeholder = "How was today's practice?"
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetWidth(max(m.Width-6, 10))
	ta.SetHeight(5)
	ta.SetValue(m.State.Day(m.Day).Note)
	ta.Focus()
	m.Note = &ta
	m.Editing = true
	m.Message = ""
}

func (m *Model) closeEditor() {
	m.Editing = false
	m.Note = nil
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closeEditor()
		return m, nil
	case key.Matches(msg, m.keys.Save):
		note := m.Note.Value()
		m.closeEditor()
		return m, m.dispatch(progress.UpdateDayNote{Day: m.Day, Note: note})
	}
	ta, cmd := m.Note.Update(msg)
	m.Note = &ta
	return m, cmd
}

// dispatch returns a command applying a to the journey
func (m Model) dispatch(a progress.Action) tea.Cmd {
	j := m.Journey
	return func() tea.Msg {
		_, err := j.Dispatch(context.Background(), a)
		return DispatchedMsg{Action: a, Err: err}
	}
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func describe(a progress.Action) string {
	switch a.(type) {
	case progress.TogglePractice:
		return "practice updated"
	case progress.UpdateDayNote:
		return "note saved"
	case progress.ToggleWeekCompleted:
		return "week completion updated"
	case progress.ToggleWeekEnjoyed:
		return "week enjoyment updated"
	case progress.ToggleWeekBookmarked:
		return "bookmark updated"
	default:
		return "saved"
	}
}
