package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aura-network/aura/internal/app/productivity"
	"github.com/aura-network/aura/internal/domain"
	"github.com/aura-network/aura/internal/infra/clock"
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskToggleCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskRemoveCmd)

	rootCmd.AddCommand(focusCmd)
	focusCmd.AddCommand(focusLogCmd)
	focusCmd.AddCommand(focusHistoryCmd)
	focusCmd.AddCommand(focusClearCmd)

	taskAddCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	taskAddCmd.Flags().String("at", "", "Due time (HH:MM)")
	taskListCmd.Flags().StringP("filter", "f", "all", "all, active or completed")
	focusLogCmd.Flags().StringP("label", "l", "", "Session label (default \"Focus Session\")")
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage a user's task list",
}

// ─── task add / list ────────────────────────────────────────────────────────

var taskAddCmd = &cobra.Command{
	Use:   "add USER TEXT...",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskAdd,
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	due, _ := cmd.Flags().GetString("due")
	at, _ := cmd.Flags().GetString("at")

	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	t, err := d.Productivity().AddTask(cmd.Context(), args[0], domain.NewTask{
		Text:    strings.Join(args[1:], " "),
		DueDate: due,
		DueTime: at,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Task queued: %s (%s)\n", t.Text, t.ID)
	return nil
}

var taskListCmd = &cobra.Command{
	Use:   "list USER",
	Short: "List a user's tasks, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskList,
}

func runTaskList(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("filter")
	filter, err := domain.ParseTaskFilter(raw)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	tasks, err := d.Productivity().Tasks(cmd.Context(), args[0], filter)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
		return nil
	}

	clk, err := clock.New(cfg.Calendar.Timezone)
	if err != nil {
		return err
	}
	printTasks(cmd.OutOrStdout(), tasks, clk.Today())
	return nil
}

func printTasks(w io.Writer, tasks []domain.Task, today string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTASK\tDUE")
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		due := t.DueDate
		if due == today {
			due = "Today"
		}
		if t.DueTime != "" {
			due += " @ " + t.DueTime
		}
		if t.Overdue(today) {
			due += " (late)"
		}
		fmt.Fprintf(tw, "%s\t[%s]\t%s\t%s\n", t.ID, done, t.Text, due)
	}
	tw.Flush()
}

// ─── task toggle / done / rm ────────────────────────────────────────────────

var taskToggleCmd = &cobra.Command{
	Use:   "toggle USER TASK",
	Short: "Flip a task between open and completed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTaskChange(cmd, args, (*productivity.Service).ToggleTask)
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done USER TASK",
	Short: "Complete a task and collect its reward",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTaskChange(cmd, args, (*productivity.Service).CompleteTask)
	},
}

type taskChange func(*productivity.Service, context.Context, string, string) (productivity.TaskUpdate, error)

func runTaskChange(cmd *cobra.Command, args []string, change taskChange) error {
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	upd, err := change(d.Productivity(), cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case !upd.Task.Completed:
		fmt.Fprintf(out, "↩️  Reopened: %s\n", upd.Task.Text)
	case upd.Activity != nil:
		fmt.Fprintf(out, "✅ Done: %s (+%d points, streak %d)\n",
			upd.Task.Text, upd.Activity.PointsEarned, upd.Activity.Streak.After)
		for _, a := range upd.Activity.Unlocked {
			fmt.Fprintf(out, "🏆 %s (+%d Credits)\n", a.Title, a.Reward)
		}
	default:
		fmt.Fprintf(out, "✅ Done: %s (already rewarded)\n", upd.Task.Text)
	}
	return nil
}

var taskRemoveCmd = &cobra.Command{
	Use:   "rm USER TASK",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskRemove,
}

func runTaskRemove(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Productivity().DeleteTask(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Task %s deleted\n", args[1])
	return nil
}

// ─── focus ──────────────────────────────────────────────────────────────────

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Record focus sessions and browse the history",
}

var focusLogCmd = &cobra.Command{
	Use:   "log USER MINUTES",
	Short: "Record a finished focus session",
	Args:  cobra.ExactArgs(2),
	RunE:  runFocusLog,
}

func runFocusLog(cmd *cobra.Command, args []string) error {
	minutes, err := strconv.ParseFloat(args[1], 64)
	if err != nil || minutes <= 0 {
		return fmt.Errorf("minutes must be a positive number, got %q", args[1])
	}
	label, _ := cmd.Flags().GetString("label")

	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Productivity().CompleteFocusSession(cmd.Context(), args[0], minutes, label)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "🧠 Focus session logged: +%d points, streak %d\n",
		res.PointsEarned, res.Streak.After)
	return nil
}

var focusHistoryCmd = &cobra.Command{
	Use:   "history USER",
	Short: "Show the most recent focus sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runFocusHistory,
}

func runFocusHistory(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	h, err := d.Productivity().History(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(h) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No focus sessions yet.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tMINUTES\tLABEL")
	for _, s := range h {
		fmt.Fprintf(tw, "%s\t%g\t%s\n", s.CompletedAt.Local().Format("2006-01-02 15:04"), s.Minutes, s.Label)
	}
	return tw.Flush()
}

var focusClearCmd = &cobra.Command{
	Use:   "clear USER",
	Short: "Purge the focus history",
	Args:  cobra.ExactArgs(1),
	RunE:  runFocusClear,
}

func runFocusClear(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Productivity().ClearHistory(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✅ Focus history cleared")
	return nil
}
