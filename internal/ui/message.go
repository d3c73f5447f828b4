package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/marquee/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg is the TUI's message union.
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPageLoaded MsgKind = iota
	MsgTick
)

type pageLoaded struct {
	view tasks.BrowserView
	err  error
}

// pageLoadedMsg is the constructor for [MsgPageLoaded]
func pageLoadedMsg(view tasks.BrowserView, err error) Msg {
	return Msg{kind: MsgPageLoaded, data: pageLoaded{view, err}}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}
