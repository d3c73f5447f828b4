package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	play     key.Binding
	more     key.Binding
	nextPage key.Binding
	prevPage key.Binding
	search   key.Binding
	kind     key.Binding
	back     key.Binding
	toggle   key.Binding
	next     key.Binding
	prev     key.Binding
	shuffle  key.Binding
	repeat   key.Binding
	louder   key.Binding
	quieter  key.Binding
	reload   key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		play:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		more:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more")),
		nextPage: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next page")),
		prevPage: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev page")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		kind:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "catalog")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys(">", "."), key.WithHelp(">", "next")),
		prev:     key.NewBinding(key.WithKeys("<", ","), key.WithHelp("<", "prev")),
		shuffle:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		repeat:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		louder:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "vol up")),
		quieter:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "vol down")),
		reload:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.play, k.toggle, k.search, k.kind, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.play, k.more},
		{k.nextPage, k.prevPage, k.search, k.kind},
		{k.toggle, k.next, k.prev, k.shuffle, k.repeat},
		{k.louder, k.quieter, k.reload, k.quit},
	}
}
