package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskmaster/internal/model"
)

func newTasksCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "Manage tasks",
		Long: `Task commands. All of them need a stored session.

Examples:
  taskmaster tasks list --status pending --search report
  taskmaster tasks add "Buy milk" --description "2 litres"
  taskmaster tasks edit 12 --status completed
  taskmaster tasks toggle 12
  taskmaster tasks rm 12 --yes`,
	}

	cmd.AddCommand(
		newTasksListCmd(s),
		newTasksAddCmd(s),
		newTasksEditCmd(s),
		newTasksRmCmd(s),
		newTasksToggleCmd(s),
	)
	return cmd
}

func newTasksListCmd(s *state) *cobra.Command {
	var (
		search string
		status string
		page   int
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseTaskStatus(status)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			env, err := s.authenticated(ctx)
			if err != nil {
				return err
			}

			env.Tasks.SetSearch(search)
			env.Tasks.SetStatus(st)
			env.Tasks.SetLimit(limit)
			env.Tasks.SetPage(page)

			snap, err := env.Tasks.List(ctx)
			if err != nil {
				return s.fail(ctx, env, err, "Failed to load tasks")
			}

			out := cmd.OutOrStdout()
			if s.jsonOut {
				return printJSON(out, model.TaskPage{Tasks: snap.Tasks, Pagination: snap.Pagination})
			}
			if len(snap.Tasks) == 0 {
				if snap.Filters.Active() {
					fmt.Fprintln(out, "No tasks found. No task matches your filters.")
				} else {
					fmt.Fprintln(out, "No tasks found. Create one with `taskmaster tasks add <title>`.")
				}
				return nil
			}

			fmt.Fprintln(out, taskTable(snap.Tasks))
			if p := snap.Pagination; p.TotalPages > 0 {
				fmt.Fprintf(out, "Page %d of %d (%d tasks)\n", p.Page, p.TotalPages, p.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "match title or description")
	cmd.Flags().StringVar(&status, "status", "", "pending, in-progress, completed or all")
	cmd.Flags().IntVarP(&page, "page", "p", 0, "page number (server default when 0)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "tasks per page (server default when 0)")
	return cmd
}

func newTasksAddCmd(s *state) *cobra.Command {
	var (
		description string
		status      string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseTaskStatus(status)
			if err != nil {
				return err
			}
			title := strings.TrimSpace(strings.Join(args, " "))
			in := model.NewTaskInput(title, strings.TrimSpace(description), st)

			ctx := cmd.Context()
			env, err := s.authenticated(ctx)
			if err != nil {
				return err
			}

			task, err := env.Tasks.Create(ctx, in)
			if err != nil {
				return s.fail(ctx, env, err, "Failed to create task")
			}
			env.record(ctx, model.LevelSuccess, "Task created successfully")

			if s.jsonOut {
				return printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Task created successfully (#%d)\n", colorGreen("✓"), task.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&status, "status", "", "initial status (server default when empty)")
	return cmd
}

func newTasksEditCmd(s *state) *cobra.Command {
	var (
		title       string
		description string
		status      string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title, description or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			// Only flags given on the command line are sent.
			var in model.TaskInput
			flags := cmd.Flags()
			if flags.Changed("title") {
				t := strings.TrimSpace(title)
				in.Title = &t
			}
			if flags.Changed("description") {
				d := strings.TrimSpace(description)
				in.Description = &d
			}
			if flags.Changed("status") {
				st, err := model.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				in.Status = &st
			}
			if in.Title == nil && in.Description == nil && in.Status == nil {
				return fmt.Errorf("nothing to change; pass --title, --description or --status")
			}

			ctx := cmd.Context()
			env, err := s.authenticated(ctx)
			if err != nil {
				return err
			}

			task, err := env.Tasks.Update(ctx, id, in)
			if err != nil {
				return s.fail(ctx, env, err, "Failed to update task")
			}
			env.record(ctx, model.LevelSuccess, "Task updated successfully")

			if s.jsonOut {
				return printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Task updated successfully\n\n", colorGreen("✓"))
			printTask(cmd.OutOrStdout(), *task)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	return cmd
}

func newTasksRmCmd(s *state) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Long: `Delete a task. This cannot be undone; you are asked to confirm unless
--yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			env, err := s.authenticated(ctx)
			if err != nil {
				return err
			}

			var promptErr error
			confirm := func(t model.Task) bool {
				if yes {
					return true
				}
				ok, err := confirmDelete(t)
				promptErr = err
				return ok
			}

			deleted, err := env.Tasks.Delete(ctx, id, confirm)
			if promptErr != nil {
				return promptErr
			}
			if err != nil {
				return s.fail(ctx, env, err, "Failed to delete task")
			}
			if !deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			env.record(ctx, model.LevelSuccess, "Task deleted successfully")
			fmt.Fprintf(cmd.OutOrStdout(), "%s Task deleted successfully\n", colorGreen("✓"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func newTasksToggleCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Advance a task to its next status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			env, err := s.authenticated(ctx)
			if err != nil {
				return err
			}

			task, err := env.Tasks.ToggleStatus(ctx, id)
			if err != nil {
				return s.fail(ctx, env, err, "Failed to update status")
			}
			msg := "Task marked as " + strings.ToLower(strings.ReplaceAll(string(task.Status), "_", " "))
			env.record(ctx, model.LevelSuccess, msg)

			if s.jsonOut {
				return printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", colorGreen("✓"), msg)
			return nil
		},
	}
}

func confirmDelete(t model.Task) (bool, error) {
	title := fmt.Sprintf("Delete task #%d?", t.ID)
	if t.Title != "" {
		title = fmt.Sprintf("Delete task %q?", t.Title)
	}
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description("This cannot be undone.").
		Affirmative("Yes, delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	return ok, err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
