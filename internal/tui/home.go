package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdeck/internal/guard"
	"github.com/naveenspark/taskdeck/internal/session"
)

type homeModel struct {
	session session.Service
	width   int
	height  int
}

func newHomeModel(s session.Service) homeModel {
	return homeModel{session: s}
}

func (m homeModel) Update(msg tea.Msg) (homeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "enter" {
			if m.session != nil && m.session.Authenticated() {
				return m, navigate(guard.ProjectsPath)
			}
			return m, navigate(guard.AuthPath)
		}
	}
	return m, nil
}

func (m homeModel) View() string {
	var sb strings.Builder
	sb.WriteString("\n " + titleStyle.Render("Keep your projects and their tasks in one place.") + "\n\n")
	sb.WriteString(" " + normalStyle.Render("Create a project, break it into tasks, and track each one from To Do to Done.") + "\n\n")
	if m.session != nil && m.session.Authenticated() {
		sb.WriteString(" " + dimStyle.Render("press enter to open your projects") + "\n")
	} else {
		sb.WriteString(" " + dimStyle.Render("press enter to sign in or create an account") + "\n")
	}
	return sb.String()
}

func (m homeModel) helpKeys() string {
	return helpEntry("enter", "start")
}
