package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

// Task command flags.
var (
	tasksFlagCategory int64
	tasksFlagSearch   string

	addFlagCategory    int64
	addFlagPriority    string
	addFlagDue         string
	addFlagDescription string
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"ls"},
	Short:   "List tasks grouped by category",
	Long: `List tasks grouped by category. Incomplete tasks come first, then by
priority.

Examples:
  taskflow tasks
  taskflow tasks --category 2
  taskflow tasks --search "slides"`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

var addCmd = &cobra.Command{
	Use:   "add TITLE...",
	Short: "Add a task",
	Long: `Add a task. The due date accepts YYYY-MM-DD or phrases such as
"tomorrow" or "next friday".

Examples:
  taskflow add Buy milk --category 3
  taskflow add "Prepare slides" -c 2 -p urgent --due "next friday"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var toggleCmd = &cobra.Command{
	Use:     "toggle ID",
	Aliases: []string{"done"},
	Short:   "Mark a task done, or reopen it",
	Args:    cobra.ExactArgs(1),
	RunE:    runToggle,
}

var rmCmd = &cobra.Command{
	Use:   "rm ID...",
	Short: "Delete tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every completed task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDashboard(cmd, func(d *service.Dashboard) error {
			d.ClearCompleted(cmd.Context())
			return nil
		})
	},
}

func init() {
	tasksCmd.Flags().Int64VarP(&tasksFlagCategory, "category", "c", 0, "Only tasks of this category id")
	tasksCmd.Flags().StringVarP(&tasksFlagSearch, "search", "s", "", "Only tasks whose title or description contains this text")

	addCmd.Flags().Int64VarP(&addFlagCategory, "category", "c", 0, "Category id (required)")
	addCmd.Flags().StringVarP(&addFlagPriority, "priority", "p", string(model.PriorityMedium), "low, medium, high or urgent")
	addCmd.Flags().StringVar(&addFlagDue, "due", "", "Due date")
	addCmd.Flags().StringVarP(&addFlagDescription, "description", "d", "", "Description")
}

func runTasks(cmd *cobra.Command, args []string) error {
	return withDashboard(cmd, func(d *service.Dashboard) error {
		if cmd.Flags().Changed("category") {
			d.SetActiveCategory(&tasksFlagCategory)
		}
		d.SetSearchQuery(tasksFlagSearch)
		fmt.Fprint(cmd.OutOrStdout(), renderDashboard(d.Header(), d.Groups(), time.Now()))
		return nil
	})
}

func runAdd(cmd *cobra.Command, args []string) error {
	priority, ok := model.ParsePriority(addFlagPriority)
	if !ok {
		return fmt.Errorf("priority must be low, medium, high or urgent")
	}
	draft := model.TaskDraft{
		Title:       strings.Join(args, " "),
		Description: addFlagDescription,
		CategoryID:  addFlagCategory,
		Priority:    priority,
	}
	if addFlagDue != "" {
		due, err := model.ParseDueDate(addFlagDue, time.Now())
		if err != nil {
			return err
		}
		draft.DueDate = &due
	}

	return withDashboard(cmd, func(d *service.Dashboard) error {
		task, ok := d.CreateTask(cmd.Context(), draft)
		if !ok {
			return errReported
		}
		fmt.Fprint(cmd.OutOrStdout(), renderTask(task, time.Now()))
		return nil
	})
}

func runToggle(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	return withDashboard(cmd, func(d *service.Dashboard) error {
		task, ok := d.ToggleTask(cmd.Context(), id)
		if !ok {
			return errReported
		}
		fmt.Fprint(cmd.OutOrStdout(), renderTask(task, time.Now()))
		return nil
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseTaskID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return withDashboard(cmd, func(d *service.Dashboard) error {
		failed := false
		for _, id := range ids {
			if !d.DeleteTask(cmd.Context(), id) {
				failed = true
			}
		}
		if failed {
			return errReported
		}
		return nil
	})
}

func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}
