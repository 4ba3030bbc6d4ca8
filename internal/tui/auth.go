package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdeck/internal/guard"
	"github.com/naveenspark/taskdeck/internal/session"
	"github.com/naveenspark/taskdeck/pkg/client"
)

// missingFieldsMsg is shown when a form is submitted with empty fields.
const missingFieldsMsg = "Please fill in all fields"

type authMode int

const (
	modeRegister authMode = iota
	modeLogin
)

type authField int

const (
	fieldUsername authField = iota
	fieldEmail
	fieldPassword
)

type registeredMsg struct{ err error }

type loggedInMsg struct{ err error }

type authModel struct {
	session    session.Service
	mode       authMode
	values     [3]string
	focus      int // index into activeFields()
	err        string
	notice     string
	submitting bool
	width      int
	height     int
}

// newAuthModel starts on the register form.
func newAuthModel(s session.Service) authModel {
	return authModel{session: s, mode: modeRegister}
}

func (m authModel) activeFields() []authField {
	if m.mode == modeRegister {
		return []authField{fieldUsername, fieldEmail, fieldPassword}
	}
	return []authField{fieldEmail, fieldPassword}
}

func (m authModel) focused() authField {
	fields := m.activeFields()
	if m.focus >= len(fields) {
		return fields[len(fields)-1]
	}
	return fields[m.focus]
}

func (m authModel) Update(msg tea.Msg) (authModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case registeredMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		m.mode = modeLogin
		m.focus = 0
		m.values[fieldPassword] = ""
		m.notice = "account created, sign in to continue"
		return m, nil

	case loggedInMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		m.values = [3]string{}
		m.focus = 0
		m.notice = ""
		return m, navigate(guard.ProjectsPath)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m authModel) handleKey(msg tea.KeyMsg) (authModel, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	n := len(m.activeFields())
	switch msg.String() {
	case "ctrl+t":
		m.toggle()
	case "tab", "down":
		m.focus = (m.focus + 1) % n
	case "shift+tab", "up":
		m.focus = (m.focus - 1 + n) % n
	case "enter":
		return m.submit()
	case "esc":
		return m, navigate(guard.HomePath)
	default:
		f := m.focused()
		m.values[f] = editRune(m.values[f], msg.String())
		m.err = ""
	}
	return m, nil
}

func (m *authModel) toggle() {
	if m.mode == modeRegister {
		m.mode = modeLogin
	} else {
		m.mode = modeRegister
	}
	m.focus = 0
	m.err = ""
	m.notice = ""
}

func (m authModel) submit() (authModel, tea.Cmd) {
	username := strings.TrimSpace(m.values[fieldUsername])
	email := strings.TrimSpace(m.values[fieldEmail])
	password := m.values[fieldPassword]

	m.err = ""
	m.notice = ""
	if email == "" || password == "" || (m.mode == modeRegister && username == "") {
		m.err = missingFieldsMsg
		return m, nil
	}

	m.submitting = true
	s := m.session
	if m.mode == modeRegister {
		return m, func() tea.Msg {
			return registeredMsg{err: s.Register(context.Background(), username, email, password)}
		}
	}
	return m, func() tea.Msg {
		return loggedInMsg{err: s.LogIn(context.Background(), email, password)}
	}
}

func (m authModel) View() string {
	var sb strings.Builder
	sb.WriteString("\n " + titleStyle.Render("Start managing your projects.") + "\n")

	heading := "Register"
	if m.mode == modeLogin {
		heading = "Login"
	}
	sb.WriteString("\n " + sectionHeaderStyle.Render("── "+heading+" ──") + "\n")

	if m.err != "" {
		sb.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	if m.notice != "" {
		sb.WriteString(" " + okStyle.Render(m.notice) + "\n")
	}
	sb.WriteString("\n")

	labels := map[authField]string{fieldUsername: "username", fieldEmail: "email", fieldPassword: "password"}
	var fields []formField
	for _, f := range m.activeFields() {
		fields = append(fields, formField{label: labels[f], value: m.values[f], masked: f == fieldPassword})
	}
	sb.WriteString(renderForm(fields, m.focus))

	if m.submitting {
		sb.WriteString("\n   " + dimStyle.Render("...") + "\n")
	}

	if m.mode == modeRegister {
		sb.WriteString("\n " + dimStyle.Render("Already have an account? ") + accentStyle.Render("ctrl+t sign in") + "\n")
	} else {
		sb.WriteString("\n " + dimStyle.Render("Don't have an account? ") + accentStyle.Render("ctrl+t sign up") + "\n")
	}
	return sb.String()
}

func (m authModel) helpKeys() string {
	return helpEntry("tab", "next") + "  " + helpEntry("enter", "submit") + "  " +
		helpEntry("ctrl+t", "toggle") + "  " + helpEntry("esc", "home")
}
