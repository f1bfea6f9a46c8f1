package tui

import "github.com/charmbracelet/bubbles/key"

// GlobalKeys are always active.
type GlobalKeys struct {
	Quit      key.Binding
	Up        key.Binding
	Down      key.Binding
	Share     key.Binding
	Telephony key.Binding
	Reconnect key.Binding
}

var globalKeys = GlobalKeys{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("j/k", "navigate"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("j/k", "navigate"),
	),
	Share: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "share link"),
	),
	Telephony: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "call/text"),
	),
	Reconnect: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reconnect"),
	),
}

// PromptKeys are active while the URL prompt is open.
type PromptKeys struct {
	Submit key.Binding
	Cancel key.Binding
}

var promptKeys = PromptKeys{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "send"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "cancel"),
	),
}
