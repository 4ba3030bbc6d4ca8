package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naveenspark/taskdeck/internal/guard"
	"github.com/naveenspark/taskdeck/pkg/client"
	"github.com/naveenspark/taskdeck/pkg/domain"
)

// confirm asks a yes/no question on cmd's input. Anything but y/yes is no.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, err := readLine(bufio.NewReader(cmd.InOrStdin()))
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (c *cli) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"p"},
		Short:   "List and manage projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.listProjects(cmd)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your projects",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.listProjects(cmd)
			},
		},
		c.createProjectCmd(),
		&cobra.Command{
			Use:   "show <project-id>",
			Short: "Show a project and its tasks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.showProject(cmd, args[0])
			},
		},
		c.deleteProjectCmd(),
	)
	return cmd
}

func (c *cli) listProjects(cmd *cobra.Command) error {
	if err := c.deps.requireSignedIn(guard.ProjectsPath); err != nil {
		return err
	}
	projects, err := c.deps.client.ListProjects(cmd.Context())
	if err != nil {
		return displayError(err)
	}
	printProjects(cmd.OutOrStdout(), projects)
	return nil
}

func (c *cli) createProjectCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.deps.requireSignedIn(guard.ProjectsPath); err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			description = strings.TrimSpace(description)
			if name == "" || description == "" {
				return errMissingFields
			}
			p, err := c.deps.client.CreateProject(cmd.Context(), client.CreateProjectRequest{
				Name:        name,
				Description: description,
			})
			if err != nil {
				return displayError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Created project "+p.Name)+" "+metaStyle.Render(p.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description (required)")
	return cmd
}

func (c *cli) showProject(cmd *cobra.Command, id string) error {
	if err := c.deps.requireSignedIn(guard.ProjectPath(id)); err != nil {
		return err
	}
	p, err := c.deps.client.GetProject(cmd.Context(), id)
	if err != nil {
		return displayError(err)
	}
	tasks, err := c.deps.client.ListTasks(cmd.Context(), id)
	if err != nil {
		return displayError(err)
	}
	printProject(cmd.OutOrStdout(), *p, tasks)
	return nil
}

func (c *cli) deleteProjectCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.deps.requireSignedIn(guard.ProjectsPath); err != nil {
				return err
			}
			if !yes && !confirm(cmd, "Are you sure you want to delete this project?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Canceled.")
				return nil
			}
			if err := c.deps.client.DeleteProject(cmd.Context(), args[0]); err != nil {
				return displayError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Deleted project "+args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func (c *cli) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"t"},
		Short:   "List and manage the tasks of a project",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <project-id>",
			Short: "List the tasks of a project",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.deps.requireSignedIn(guard.ProjectPath(args[0])); err != nil {
					return err
				}
				tasks, err := c.deps.client.ListTasks(cmd.Context(), args[0])
				if err != nil {
					return displayError(err)
				}
				printTasks(cmd.OutOrStdout(), tasks)
				return nil
			},
		},
		c.createTaskCmd(),
		&cobra.Command{
			Use:   "delete <task-id>",
			Short: "Delete a task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.deps.requireSignedIn(guard.ProjectsPath); err != nil {
					return err
				}
				if err := c.deps.client.DeleteTask(cmd.Context(), args[0]); err != nil {
					return displayError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Deleted task "+args[0]))
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) createTaskCmd() *cobra.Command {
	var description, status string
	cmd := &cobra.Command{
		Use:   "create <project-id> <title>",
		Short: "Add a task to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]
			if err := c.deps.requireSignedIn(guard.ProjectPath(projectID)); err != nil {
				return err
			}
			title := strings.TrimSpace(args[1])
			if title == "" {
				return errors.New("Please enter a task title") //nolint:staticcheck // shown to the user as is
			}
			st := domain.TaskStatus(status)
			if !domain.ValidStatus(st) {
				return fmt.Errorf("unknown status %q, want one of %s", status, statusList())
			}
			t, err := c.deps.client.CreateTask(cmd.Context(), projectID, client.CreateTaskRequest{
				Title:       title,
				Description: strings.TrimSpace(description),
				Status:      st,
			})
			if err != nil {
				return displayError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Created task "+t.Title)+" "+metaStyle.Render(t.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&status, "status", "s", string(domain.StatusToDo), "Task status: "+statusList())
	return cmd
}

func statusList() string {
	names := make([]string, len(domain.TaskStatuses))
	for i, s := range domain.TaskStatuses {
		names[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(names, ", ")
}
