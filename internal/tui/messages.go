package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// navigateMsg asks the App to push a route.
type navigateMsg struct{ path string }

// backMsg asks the App to pop one history entry.
type backMsg struct{}

// SessionChangedMsg tells the App the stored session changed outside the
// process, e.g. a logout from another terminal.
type SessionChangedMsg struct{}

// apiResult is implemented by every message carrying a backend response so
// the App can apply the 401 policy in one place.
type apiResult interface {
	apiErr() error
}

func navigate(path string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{path: path} }
}

func goBack() tea.Msg { return backMsg{} }
