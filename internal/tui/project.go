package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/taskdeck/internal/optimistic"
	"github.com/naveenspark/taskdeck/pkg/client"
	"github.com/naveenspark/taskdeck/pkg/domain"
)

// missingTitleMsg is shown when a task is submitted without a title.
const missingTitleMsg = "Please enter a task title"

// Every message below carries the project it was issued for; the details
// view drops results for any other project.

type projectLoadedMsg struct {
	projectID string
	project   *domain.Project
	err       error
}

type tasksLoadedMsg struct {
	projectID string
	tasks     []domain.Task
	err       error
}

type taskCreatedMsg struct {
	projectID string
	task      *domain.Task
	err       error
}

type taskDeletedMsg struct {
	projectID string
	id        string
	err       error
}

func (m projectLoadedMsg) apiErr() error { return m.err }
func (m tasksLoadedMsg) apiErr() error   { return m.err }
func (m taskCreatedMsg) apiErr() error   { return m.err }
func (m taskDeletedMsg) apiErr() error   { return m.err }

func taskID(t domain.Task) string { return t.ID }

type projectModel struct {
	client    *client.Client
	projectID string
	project   *domain.Project
	tasks     optimistic.List[domain.Task]
	cursor    int
	state     listState
	addTitle  string
	addDesc   string
	focus     int // 0=title, 1=description
	loading   bool
	err       string
	status    string
	width     int
	height    int
}

func newProjectModel(c *client.Client) projectModel {
	return projectModel{client: c, tasks: optimistic.New(taskID)}
}

// open switches the view to projectID and fetches the project and its tasks.
func (m projectModel) open(projectID string) (projectModel, tea.Cmd) {
	next := newProjectModel(m.client)
	next.width, next.height = m.width, m.height
	next.projectID = projectID
	next.loading = true
	return next, tea.Batch(next.loadProject(), next.loadTasks())
}

func (m projectModel) loadProject() tea.Cmd {
	c, id := m.client, m.projectID
	return func() tea.Msg {
		p, err := c.GetProject(context.Background(), id)
		return projectLoadedMsg{projectID: id, project: p, err: err}
	}
}

func (m projectModel) loadTasks() tea.Cmd {
	c, id := m.client, m.projectID
	return func() tea.Msg {
		tasks, err := c.ListTasks(context.Background(), id)
		return tasksLoadedMsg{projectID: id, tasks: tasks, err: err}
	}
}

func (m projectModel) selected() (domain.Task, bool) {
	if m.cursor < 0 || m.cursor >= m.tasks.Len() {
		return domain.Task{}, false
	}
	return m.tasks.At(m.cursor), true
}

func (m projectModel) Update(msg tea.Msg) (projectModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case projectLoadedMsg:
		if msg.projectID != m.projectID {
			return m, nil
		}
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		m.project = msg.project
		return m, nil

	case tasksLoadedMsg:
		if msg.projectID != m.projectID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		m.tasks = m.tasks.Replace(msg.tasks)
		if m.cursor >= m.tasks.Len() {
			m.cursor = 0
		}
		return m, nil

	case taskCreatedMsg:
		if msg.projectID != m.projectID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		if msg.task != nil {
			m.tasks = m.tasks.Created(*msg.task)
			m.cursor = m.tasks.Len() - 1
		}
		m.resetForm()
		m.status = "task created"
		return m, nil

	case taskDeletedMsg:
		if msg.projectID != m.projectID {
			return m, nil
		}
		m.state = stateNormal
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		m.tasks = m.tasks.Deleted(msg.id)
		if m.cursor >= m.tasks.Len() && m.cursor > 0 {
			m.cursor = m.tasks.Len() - 1
		}
		m.status = "task deleted"
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.err = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.status = "copied " + msg.id
		}
		return m, nil

	case tea.KeyMsg:
		m.status = ""
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *projectModel) resetForm() {
	m.state = stateNormal
	m.addTitle = ""
	m.addDesc = ""
	m.focus = 0
}

func (m projectModel) handleKey(msg tea.KeyMsg) (projectModel, tea.Cmd) {
	switch m.state {
	case stateAdding:
		return m.handleKeyAdding(msg)
	case stateDeleting:
		return m.handleKeyDeleting(msg)
	}

	switch msg.String() {
	case "j", "down":
		if m.cursor < m.tasks.Len()-1 {
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
	case "r":
		m.err = ""
		m.loading = true
		return m, tea.Batch(m.loadProject(), m.loadTasks())
	case "c":
		if t, ok := m.selected(); ok {
			id := t.ID
			return m, func() tea.Msg {
				return copiedMsg{id: id, err: clipboard.WriteAll(id)}
			}
		}
	case "esc", "backspace":
		return m, goBack
	}
	return m, nil
}

func (m projectModel) handleKeyAdding(msg tea.KeyMsg) (projectModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.focus = 1 - m.focus
	case "enter":
		title := strings.TrimSpace(m.addTitle)
		desc := strings.TrimSpace(m.addDesc)
		if title == "" {
			m.err = missingTitleMsg
			return m, nil
		}
		m.err = ""
		m.loading = true
		c, id := m.client, m.projectID
		return m, func() tea.Msg {
			t, err := c.CreateTask(context.Background(), id, client.CreateTaskRequest{
				Title:       title,
				Description: desc,
				Status:      domain.StatusToDo,
			})
			return taskCreatedMsg{projectID: id, task: t, err: err}
		}
	case "esc":
		m.resetForm()
		m.err = ""
	default:
		if m.focus == 0 {
			m.addTitle = editRune(m.addTitle, msg.String())
		} else {
			m.addDesc = editRune(m.addDesc, msg.String())
		}
	}
	return m, nil
}

func (m projectModel) handleKeyDeleting(msg tea.KeyMsg) (projectModel, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if t, ok := m.selected(); ok {
			c, pid, id := m.client, m.projectID, t.ID
			return m, func() tea.Msg {
				return taskDeletedMsg{projectID: pid, id: id, err: c.DeleteTask(context.Background(), id)}
			}
		}
		m.state = stateNormal
	case "n", "N", "esc":
		m.state = stateNormal
	}
	return m, nil
}

func (m projectModel) editing() bool {
	return m.state != stateNormal
}

func (m projectModel) helpKeys() string {
	switch m.state {
	case stateAdding:
		return helpEntry("tab", "next") + "  " + helpEntry("enter", "create") + "  " + helpEntry("esc", "cancel")
	case stateDeleting:
		return helpEntry("y", "confirm") + "  " + helpEntry("n", "cancel")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("a", "add task") + "  " + helpEntry("d", "delete") + "  " +
		helpEntry("c", "copy id") + "  " + helpEntry("r", "refresh") + "  " + helpEntry("esc", "back")
}

func (m projectModel) View() string {
	var sb strings.Builder

	sb.WriteString("\n")
	if m.project != nil {
		sb.WriteString(" " + titleStyle.Render(m.project.Name) + "\n")
		if m.project.Description != "" {
			sb.WriteString(" " + normalStyle.Render(m.project.Description) + "\n")
		}
	} else if m.loading {
		sb.WriteString(" " + dimStyle.Render("Loading...") + "\n")
	}

	if m.err != "" {
		sb.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	if m.status != "" {
		sb.WriteString(" " + okStyle.Render(m.status) + "\n")
	}

	if m.state == stateAdding {
		sb.WriteString("\n " + titleStyle.Render("Add Task") + "\n")
		sb.WriteString(renderForm([]formField{
			{label: "title", value: m.addTitle},
			{label: "description", value: m.addDesc},
		}, m.focus))
		return sb.String()
	}

	sb.WriteString("\n " + sectionHeaderStyle.Render(fmt.Sprintf("── TASKS %d ──", m.tasks.Len())) + "\n")
	if m.tasks.Len() == 0 && !m.loading {
		sb.WriteString("   " + dimStyle.Render("No tasks yet. Press a to add one.") + "\n")
		return sb.String()
	}

	for i, t := range m.tasks.Items() {
		active := i == m.cursor
		cursor := "  "
		titleStr := normalStyle.Render(truncStr(t.Title, 40))
		if active {
			cursor = accentStyle.Render("▸") + " "
			titleStr = selectedStyle.Render(truncStr(t.Title, 40))
		}
		parts := []string{StatusStyle(t.Status).Render(string(t.Status))}
		if t.Priority != "" {
			parts = append(parts, PriorityStyle(t.Priority).Render(string(t.Priority)))
		}
		if due := formatDue(t.DueDate); due != "" {
			parts = append(parts, metaStyle.Render(due))
		}
		fmt.Fprintf(&sb, " %s%s  %s\n", cursor, titleStr, strings.Join(parts, dimStyle.Render(" · ")))
		if t.Description != "" {
			sb.WriteString("     " + dimStyle.Render(truncStr(oneLine(t.Description), 72)) + "\n")
		}
		if active && m.state == stateDeleting {
			sb.WriteString("   " + rejectStyle.Render("delete this task? ") +
				accentStyle.Render("y") + dimStyle.Render("/n") + "\n")
		}
	}
	return sb.String()
}
