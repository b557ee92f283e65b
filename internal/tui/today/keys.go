package today

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PrevDay    key.Binding
	NextDay    key.Binding
	PrevWeek   key.Binding
	NextWeek   key.Binding
	Today      key.Binding
	Practice   key.Binding
	EditNote   key.Binding
	Completed  key.Binding
	Enjoyed    key.Binding
	Bookmarked key.Binding
	Refresh    key.Binding
	Help       key.Binding
	Quit       key.Binding

	// note editor
	Save   key.Binding
	Cancel key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PrevDay:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev day")),
		NextDay:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next day")),
		PrevWeek:   key.NewBinding(key.WithKeys("[", "up", "k"), key.WithHelp("[", "prev week")),
		NextWeek:   key.NewBinding(key.WithKeys("]", "down", "j"), key.WithHelp("]", "next week")),
		Today:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		Practice:   key.NewBinding(key.WithKeys(" ", "space", "p"), key.WithHelp("space", "toggle practice")),
		EditNote:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "edit note")),
		Completed:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "week completed")),
		Enjoyed:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "week enjoyed")),
		Bookmarked: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bookmark week")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevDay, k.NextDay, k.Practice, k.EditNote, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevDay, k.NextDay, k.PrevWeek, k.NextWeek, k.Today},
		{k.Practice, k.EditNote, k.Completed, k.Enjoyed, k.Bookmarked},
		{k.Refresh, k.Help, k.Quit},
	}
}

// editorKeys is the help shown while the note editor is open.
type editorKeys struct{ keyMap }

func (k editorKeys) ShortHelp() []key.Binding  { return []key.Binding{k.Save, k.Cancel} }
func (k editorKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
