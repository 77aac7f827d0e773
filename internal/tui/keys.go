package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Search   key.Binding
	Facility key.Binding
	Prev     key.Binding
	Next     key.Binding
	Smaller  key.Binding
	Larger   key.Binding
	Group    key.Binding
	Generate key.Binding
	Up       key.Binding
	Down     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Facility: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "facility")),
		Prev:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev page")),
		Next:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next page")),
		Smaller:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "smaller pages")),
		Larger:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "larger pages")),
		Group:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "columns")),
		Generate: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "generate")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Facility, k.Prev, k.Next, k.Group, k.Generate, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Facility, k.Group},
		{k.Prev, k.Next, k.Smaller, k.Larger},
		{k.Up, k.Down},
		{k.Generate, k.Help, k.Quit},
	}
}
