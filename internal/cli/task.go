package cli

import (
	"fmt"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"

	"dayplan/internal/model"
	"dayplan/internal/planner"
)

func newTaskCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  `Add, list, complete and remove the tasks that get placed into the plan.`,
	}
	cmd.AddCommand(
		newTaskAddCmd(opts),
		newTaskListCmd(opts),
		newTaskDoneCmd(opts),
		newTaskRemoveCmd(opts),
	)
	return cmd
}

func newTaskAddCmd(opts *rootOptions) *cobra.Command {
	var (
		title    string
		duration int
		priority string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePriority(priority)
			if err != nil {
				return goerr.Wrap(err, "invalid --priority", goerr.V("priority", priority))
			}
			if duration <= 0 {
				return goerr.Wrap(planner.ErrInvalidDuration, "invalid --duration", goerr.V("duration", duration))
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}

			t, err := a.store.AddTask(ctx, planner.NewTask{
				Title:             title,
				EstimatedDuration: duration,
				Priority:          p,
			})
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), t)
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Added task %q (%s)", t.Title, t.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().IntVar(&duration, "duration", 30, "Estimated duration in minutes")
	cmd.Flags().StringVar(&priority, "priority", string(model.PriorityMedium), "Priority: low, medium or high")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}

			list := a.store.Snapshot().Tasks
			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), list)
			}
			printTasks(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func newTaskDoneCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}

			completed := true
			t, err := a.store.UpdateTask(ctx, args[0], model.TaskPatch{Completed: &completed})
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), t)
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Completed %q", t.Title))
			return nil
		},
	}
}

func newTaskRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}

			id := args[0]
			if !slices.ContainsFunc(a.store.Snapshot().Tasks, func(t model.Task) bool { return t.ID == id }) {
				return goerr.Wrap(planner.ErrTaskNotFound, "remove task", goerr.V("task_id", id))
			}
			a.store.DeleteTask(ctx, id)

			printSuccess(cmd.OutOrStdout(), "Removed task "+id)
			return nil
		},
	}
}
