package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fentz26/taskclock/internal/models"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskSearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Find tasks whose title contains text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskSearch,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign [task-id] [user-id]",
	Short: "Make a user the owner of a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskAssign,
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete [task-id]",
	Short: "Mark a task completed and notify its commenters",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskComplete,
}

var taskMoveCmd = &cobra.Command{
	Use:   "move [task-id] [status]",
	Short: "Move a task to another status (open, in-progress, completed, canceled, archived)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskMove,
}

var taskCommentCmd = &cobra.Command{
	Use:   "comment [task-id] [text]",
	Short: "Comment on a task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskComment,
}

var taskCommentsCmd = &cobra.Command{
	Use:   "comments [task-id]",
	Short: "List the comments of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskComments,
}

var taskAttachCmd = &cobra.Command{
	Use:   "attach [task-id] [file-name]",
	Short: "Get an upload URL for a task attachment",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskAttach,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [task-id]",
	Short: "Delete a task with its comments and time logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

var (
	taskTitle  string
	taskDesc   string
	taskStatus string
	taskOwner  string
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskSearchCmd, taskShowCmd, taskAssignCmd, taskCompleteCmd,
		taskMoveCmd, taskCommentCmd, taskCommentsCmd, taskAttachCmd, taskDeleteCmd)

	taskAddCmd.Flags().StringVar(&taskTitle, "title", "", "Task title (required)")
	taskAddCmd.Flags().StringVar(&taskDesc, "desc", "", "Task description")
	taskAddCmd.MarkFlagRequired("title")

	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status")
	taskListCmd.Flags().StringVar(&taskOwner, "owner", "", "Filter by owner user ID")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	task, err := newClient().CreateTask(cmd.Context(), taskTitle, taskDesc)
	if err != nil {
		return err
	}
	fmt.Printf("Created task: %s\n", task.ID)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	c := newClient()
	tasks, err := c.ListTasks(cmd.Context(), parseStatus(taskStatus))
	if err != nil {
		return err
	}
	if taskOwner != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if t.OwnerID == taskOwner {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	printTasks(tasks)
	return nil
}

func runTaskSearch(cmd *cobra.Command, args []string) error {
	tasks, err := newClient().SearchTasks(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	printTasks(tasks)
	return nil
}

func printTasks(tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tOWNER")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", truncateID(t.ID), truncate(t.Title, 40), t.Status, t.OwnerID)
	}
	w.Flush()
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	view, err := newClient().GetTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	t := view.Task
	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Title)
	fmt.Printf("Description: %s\n", t.Description)
	fmt.Printf("Status:      %s\n", t.Status)
	if t.OwnerID != "" {
		fmt.Printf("Owner:       %s\n", t.OwnerID)
	}
	if t.CreatedBy != "" {
		fmt.Printf("Created By:  %s\n", t.CreatedBy)
	}
	fmt.Printf("Logged:      %s\n", formatMinutes(view.TotalMinutes))
	fmt.Printf("Created:     %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:     %s\n", t.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	if _, err := newClient().AssignTask(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Assigned task %s to %s\n", args[0], args[1])
	return nil
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	if _, err := newClient().CompleteTask(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Completed task %s\n", args[0])
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	task, err := newClient().TransitionTask(cmd.Context(), args[0], parseStatus(args[1]))
	if err != nil {
		return err
	}
	fmt.Printf("Task %s is now %s\n", args[0], task.Status)
	return nil
}

func runTaskComment(cmd *cobra.Command, args []string) error {
	comment, err := newClient().AddComment(cmd.Context(), args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Printf("Added comment %s\n", truncateID(comment.ID))
	return nil
}

func runTaskComments(cmd *cobra.Command, args []string) error {
	comments, err := newClient().Comments(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		fmt.Println("No comments")
		return nil
	}
	for _, c := range comments {
		fmt.Printf("[%s] %s: %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04"), c.AuthorID, c.Text)
	}
	return nil
}

func runTaskAttach(cmd *cobra.Command, args []string) error {
	up, err := newClient().RequestUpload(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Attachment: %s\n", up.Attachment.ID)
	fmt.Printf("Upload URL: %s\n", up.UploadURL)
	fmt.Printf("Expires:    %s\n", up.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	if err := newClient().DeleteTask(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted task %s\n", args[0])
	return nil
}

// --- Helpers ---

// parseStatus accepts "in-progress" as well as "IN_PROGRESS".
func parseStatus(s string) models.TaskStatus {
	return models.TaskStatus(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
