package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytq/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgStatusEvent MsgKind = iota
	MsgEventsClosed
	MsgJobStarted
	MsgControlFailed
)

type jobStarted struct {
	id     string
	source string
	err    error
}

// statusEventMsg is the constructor for [MsgStatusEvent]
func statusEventMsg(ev models.Event) Msg {
	return Msg{kind: MsgStatusEvent, data: ev}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// jobStartedMsg is the constructor for [MsgJobStarted]
func jobStartedMsg(id, source string, err error) Msg {
	return Msg{kind: MsgJobStarted, data: jobStarted{id: id, source: source, err: err}}
}

// controlFailedMsg is the constructor for [MsgControlFailed]
func controlFailedMsg(err error) Msg {
	return Msg{kind: MsgControlFailed, data: err}
}
