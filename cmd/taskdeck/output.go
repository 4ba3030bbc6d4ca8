package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/taskdeck/internal/tui"
	"github.com/naveenspark/taskdeck/pkg/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#60a5fa")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	metaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boldStyle  = lipgloss.NewStyle().Bold(true)
)

func printUser(w io.Writer, u domain.User) {
	fmt.Fprintf(w, "%s %s\n", boldStyle.Render(u.Username), dimStyle.Render("<"+u.Email+">"))
	fmt.Fprintf(w, "%s\n", metaStyle.Render("id "+u.ID))
}

func printProjects(w io.Writer, projects []domain.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No projects yet. Create your first project with: taskdeck projects create <name> -d <description>"))
		return
	}
	for _, p := range projects {
		fmt.Fprintf(w, "%s  %s\n", metaStyle.Render(p.ID), boldStyle.Render(p.Name))
		if p.Description != "" {
			fmt.Fprintf(w, "    %s\n", dimStyle.Render(p.Description))
		}
	}
}

func printProject(w io.Writer, p domain.Project, tasks []domain.Task) {
	fmt.Fprintf(w, "\n  %s  %s\n", titleStyle.Render(p.Name), metaStyle.Render(p.ID))
	if p.Description != "" {
		fmt.Fprintf(w, "  %s\n", p.Description)
	}
	if p.CreatedAt != nil {
		fmt.Fprintf(w, "  %s\n", metaStyle.Render("created "+p.CreatedAt.Local().Format("Jan 2, 2006 15:04")))
	}
	fmt.Fprintf(w, "\n  %s\n", dimStyle.Render(fmt.Sprintf("Tasks (%d)", len(tasks))))
	printTasks(w, tasks)
	fmt.Fprintln(w)
}

func printTasks(w io.Writer, tasks []domain.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "  "+dimStyle.Render("No tasks yet."))
		return
	}
	for _, t := range tasks {
		parts := []string{tui.StatusStyle(t.Status).Render(string(t.Status))}
		if t.Priority != "" {
			parts = append(parts, tui.PriorityStyle(t.Priority).Render(string(t.Priority)))
		}
		if t.DueDate != nil {
			parts = append(parts, dimStyle.Render("due "+t.DueDate.Format("Jan 2")))
		}
		fmt.Fprintf(w, "  %s  %s  %s\n", metaStyle.Render(t.ID), boldStyle.Render(t.Title),
			strings.Join(parts, dimStyle.Render(" · ")))
		if t.Description != "" {
			fmt.Fprintf(w, "      %s\n", dimStyle.Render(t.Description))
		}
	}
}
