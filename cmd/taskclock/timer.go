package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Track time on tasks",
}

var timerStartCmd = &cobra.Command{
	Use:   "start [task-id]",
	Short: "Start your timer on a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimerStart,
}

var timerFinishCmd = &cobra.Command{
	Use:   "finish [task-id]",
	Short: "Stop your running timer on a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimerFinish,
}

var timerLogCmd = &cobra.Command{
	Use:   "log [task-id]",
	Short: "Record time already spent on a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimerLog,
}

var timerListCmd = &cobra.Command{
	Use:   "list [task-id]",
	Short: "Show the time logs of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimerList,
}

var (
	logMinutes int
	logStarted string
)

func init() {
	timerCmd.AddCommand(timerStartCmd, timerFinishCmd, timerLogCmd, timerListCmd)

	timerLogCmd.Flags().IntVar(&logMinutes, "minutes", 0, "Minutes spent (required)")
	timerLogCmd.Flags().StringVar(&logStarted, "started", "", "Start time, RFC 3339 (defaults to now minus the minutes)")
	timerLogCmd.MarkFlagRequired("minutes")
}

func runTimerStart(cmd *cobra.Command, args []string) error {
	id, err := newClient().StartTimer(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Started timer %s on task %s\n", truncateID(id), args[0])
	return nil
}

func runTimerFinish(cmd *cobra.Command, args []string) error {
	minutes, err := newClient().FinishTimer(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Logged %s on task %s\n", formatMinutes(minutes), args[0])
	return nil
}

func runTimerLog(cmd *cobra.Command, args []string) error {
	started := time.Now().Add(-time.Duration(logMinutes) * time.Minute)
	if logStarted != "" {
		t, err := time.Parse(time.RFC3339, logStarted)
		if err != nil {
			return fmt.Errorf("invalid --started: %w", err)
		}
		started = t
	}
	entry, err := newClient().LogTime(cmd.Context(), args[0], started, logMinutes)
	if err != nil {
		return err
	}
	fmt.Printf("Logged %s on task %s (entry %s)\n", formatMinutes(logMinutes), args[0], truncateID(entry.ID))
	return nil
}

func runTimerList(cmd *cobra.Command, args []string) error {
	entries, err := newClient().TimeLogs(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No time logs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tSTARTED\tDURATION")
	for _, e := range entries {
		dur := "running"
		if e.DurationMinutes != nil {
			dur = formatMinutes(*e.DurationMinutes)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", truncateID(e.ID), e.UserID, e.StartedAt.Local().Format("2006-01-02 15:04"), dur)
	}
	w.Flush()
	return nil
}
