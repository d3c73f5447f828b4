// Package ui implements the interactive catalog browser using bubbletea's Elm architecture.
//
// The screen has two parts:
//  1. the catalog list, one [models.Kind] at a time, backed by a [tasks.Browser]
//  2. a now-playing pane driven by a [player.Player]
//
// Catalog requests run as tea.Cmds and come back as [Msg] values. Responses for a
// query that has since changed are dropped by the browser, so the list never shows
// stale results. Playback time advances on a one second tick while playing.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual
// help rendered by charmbracelet/bubbles/help.
package ui
