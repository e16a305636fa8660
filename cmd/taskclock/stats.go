package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report logged time",
}

var statsTopCmd = &cobra.Command{
	Use:   "top [n]",
	Short: "Show the n tasks with the most logged time",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatsTop,
}

var statsMonthCmd = &cobra.Command{
	Use:   "month",
	Short: "Show your logged time in the previous calendar month",
	RunE:  runStatsMonth,
}

func init() {
	statsCmd.AddCommand(statsTopCmd, statsMonthCmd)
}

func runStatsTop(cmd *cobra.Command, args []string) error {
	n := 5
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("n must be an integer: %w", err)
		}
		n = v
	}

	top, err := newClient().TopByLoggedTime(cmd.Context(), n)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		fmt.Println("No time logged")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTITLE\tLOGGED")
	for i, t := range top {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, truncateID(t.TaskID), truncate(t.Title, 40), formatMinutes(t.TotalMinutes))
	}
	w.Flush()
	return nil
}

func runStatsMonth(cmd *cobra.Command, args []string) error {
	m, err := newClient().PrevMonthTime(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("User:   %s\n", m.UserID)
	fmt.Printf("Period: %s to %s\n", m.From, m.To)
	fmt.Printf("Logged: %s\n", formatMinutes(m.TotalMinutes))
	return nil
}
