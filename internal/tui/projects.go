package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdeck/internal/browser"
	"github.com/naveenspark/taskdeck/internal/guard"
	"github.com/naveenspark/taskdeck/internal/optimistic"
	"github.com/naveenspark/taskdeck/pkg/client"
	"github.com/naveenspark/taskdeck/pkg/domain"
)

// listState is the state machine shared by the project and task lists.
type listState int

const (
	stateNormal   listState = iota
	stateAdding             // create form open
	stateDeleting           // delete confirmation
)

// -- messages --

type projectsLoadedMsg struct {
	projects []domain.Project
	err      error
}

type projectCreatedMsg struct {
	project *domain.Project
	err     error
}

type projectDeletedMsg struct {
	id  string
	err error
}

type copiedMsg struct {
	id  string
	err error
}

type openedMsg struct{ err error }

func (m projectsLoadedMsg) apiErr() error { return m.err }
func (m projectCreatedMsg) apiErr() error { return m.err }
func (m projectDeletedMsg) apiErr() error { return m.err }

func projectID(p domain.Project) string { return p.ID }

// -- model --

type projectsModel struct {
	client  *client.Client
	webURL  string
	list    optimistic.List[domain.Project]
	cursor  int
	state   listState
	addName string
	addDesc string
	focus   int // 0=name, 1=description
	loading bool
	err     string
	status  string
	width   int
	height  int
}

func newProjectsModel(c *client.Client, webURL string) projectsModel {
	return projectsModel{client: c, webURL: webURL, list: optimistic.New(projectID)}
}

// enter resets transient state and fetches the list.
func (m projectsModel) enter() (projectsModel, tea.Cmd) {
	m.state = stateNormal
	m.err = ""
	m.status = ""
	m.loading = true
	return m, m.load()
}

func (m projectsModel) load() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		projects, err := c.ListProjects(context.Background())
		return projectsLoadedMsg{projects: projects, err: err}
	}
}

func (m projectsModel) selected() (domain.Project, bool) {
	if m.cursor < 0 || m.cursor >= m.list.Len() {
		return domain.Project{}, false
	}
	return m.list.At(m.cursor), true
}

func (m projectsModel) Update(msg tea.Msg) (projectsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case projectsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		m.list = m.list.Replace(msg.projects)
		if m.cursor >= m.list.Len() {
			m.cursor = 0
		}
		return m, nil

	case projectCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		if msg.project != nil {
			m.list = m.list.Created(*msg.project)
			m.cursor = m.list.Len() - 1
		}
		m.resetForm()
		m.status = "project created"
		return m, nil

	case projectDeletedMsg:
		m.state = stateNormal
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		m.list = m.list.Deleted(msg.id)
		if m.cursor >= m.list.Len() && m.cursor > 0 {
			m.cursor = m.list.Len() - 1
		}
		m.status = "project deleted"
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.err = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.status = "copied " + msg.id
		}
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.err = fmt.Sprintf("open failed: %v", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		m.status = ""
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *projectsModel) resetForm() {
	m.state = stateNormal
	m.addName = ""
	m.addDesc = ""
	m.focus = 0
}

func (m projectsModel) handleKey(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch m.state {
	case stateAdding:
		return m.handleKeyAdding(msg)
	case stateDeleting:
		return m.handleKeyDeleting(msg)
	}

	switch msg.String() {
	case "j", "down":
		if m.cursor < m.list.Len()-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "a":
		m.resetForm()
		m.state = stateAdding
		m.err = ""
	case "d":
		if _, ok := m.selected(); ok {
			m.state = stateDeleting
		}
	case "enter":
		if p, ok := m.selected(); ok {
			return m, navigate(guard.ProjectPath(p.ID))
		}
	case "r":
		m.err = ""
		m.loading = true
		return m, m.load()
	case "c":
		if p, ok := m.selected(); ok {
			id := p.ID
			return m, func() tea.Msg {
				return copiedMsg{id: id, err: clipboard.WriteAll(id)}
			}
		}
	case "o":
		if p, ok := m.selected(); ok && m.webURL != "" {
			target := browser.ProjectURL(m.webURL, p.ID)
			return m, func() tea.Msg {
				return openedMsg{err: browser.Open(target)}
			}
		}
	}
	return m, nil
}

func (m projectsModel) handleKeyAdding(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.focus = 1 - m.focus
	case "enter":
		name := strings.TrimSpace(m.addName)
		desc := strings.TrimSpace(m.addDesc)
		if name == "" || desc == "" {
			m.err = missingFieldsMsg
			return m, nil
		}
		m.err = ""
		m.loading = true
		c := m.client
		return m, func() tea.Msg {
			p, err := c.CreateProject(context.Background(), client.CreateProjectRequest{Name: name, Description: desc})
			return projectCreatedMsg{project: p, err: err}
		}
	case "esc":
		m.resetForm()
		m.err = ""
	default:
		if m.focus == 0 {
			m.addName = editRune(m.addName, msg.String())
		} else {
			m.addDesc = editRune(m.addDesc, msg.String())
		}
	}
	return m, nil
}

func (m projectsModel) handleKeyDeleting(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if p, ok := m.selected(); ok {
			id := p.ID
			c := m.client
			return m, func() tea.Msg {
				return projectDeletedMsg{id: id, err: c.DeleteProject(context.Background(), id)}
			}
		}
		m.state = stateNormal
	case "n", "N", "esc":
		m.state = stateNormal
	}
	return m, nil
}

func (m projectsModel) editing() bool {
	return m.state != stateNormal
}

func (m projectsModel) helpKeys() string {
	switch m.state {
	case stateAdding:
		return helpEntry("tab", "next") + "  " + helpEntry("enter", "create") + "  " + helpEntry("esc", "cancel")
	case stateDeleting:
		return helpEntry("y", "confirm") + "  " + helpEntry("n", "cancel")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("a", "add") + "  " +
		helpEntry("d", "delete") + "  " + helpEntry("c", "copy id") + "  " + helpEntry("o", "browser") + "  " +
		helpEntry("r", "refresh")
}

func (m projectsModel) View() string {
	var sb strings.Builder

	if m.loading && m.list.Len() == 0 && m.state == stateNormal {
		return "\n " + dimStyle.Render("Loading...") + "\n"
	}

	sb.WriteString("\n " + sectionHeaderStyle.Render(fmt.Sprintf("── PROJECTS %d ──", m.list.Len())) + "\n")

	if m.err != "" {
		sb.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	if m.status != "" {
		sb.WriteString(" " + okStyle.Render(m.status) + "\n")
	}

	if m.state == stateAdding {
		sb.WriteString("\n " + titleStyle.Render("Create New Project") + "\n")
		sb.WriteString(renderForm([]formField{
			{label: "name", value: m.addName},
			{label: "description", value: m.addDesc},
		}, m.focus))
		if m.loading {
			sb.WriteString("   " + dimStyle.Render("Creating...") + "\n")
		}
		return sb.String()
	}

	if m.list.Len() == 0 {
		sb.WriteString("   " + dimStyle.Render("No projects yet. Press a to create your first project.") + "\n")
		return sb.String()
	}

	for i, p := range m.list.Items() {
		active := i == m.cursor
		cursor := "  "
		nameStr := normalStyle.Render(truncStr(p.Name, 32))
		if active {
			cursor = accentStyle.Render("▸") + " "
			nameStr = selectedStyle.Render(truncStr(p.Name, 32))
		}
		meta := metaStyle.Render(shortID(p.ID))
		if ts := formatTime(p.CreatedAt); ts != "" {
			meta += metaStyle.Render(" · " + ts)
		}
		fmt.Fprintf(&sb, " %s%s  %s\n", cursor, nameStr, meta)
		if p.Description != "" {
			sb.WriteString("     " + dimStyle.Render(truncStr(oneLine(p.Description), 72)) + "\n")
		}
		if active && m.state == stateDeleting {
			sb.WriteString("   " + rejectStyle.Render("Are you sure you want to delete this project? ") +
				accentStyle.Render("y") + dimStyle.Render("/n") + "\n")
		}
	}
	return sb.String()
}
