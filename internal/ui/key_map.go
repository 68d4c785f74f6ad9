package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the monitor.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	add    key.Binding
	pause  key.Binding
	resume key.Binding
	stop   key.Binding
	submit key.Binding
	cancel key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		pause:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		resume: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
		stop:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
		cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.add, k.pause, k.resume, k.stop, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.add, k.pause, k.resume, k.stop},
		{k.quit},
	}
}

// inputHelp is shown while a source is being typed.
func (k keyMap) inputHelp() []key.Binding {
	return []key.Binding{k.submit, k.cancel}
}
