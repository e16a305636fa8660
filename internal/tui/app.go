// Package tui provides the interactive terminal UI for taskclock.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/taskclock/internal/models"
)

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	taskItemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

const (
	modeList   = "list"
	modeDetail = "detail"
	modeStats  = "stats"
)

const requestTimeout = 10 * time.Second

var filters = []models.TaskStatus{"", models.TaskStatusOpen, models.TaskStatusInProgress, models.TaskStatusCompleted, models.TaskStatusCanceled, models.TaskStatusArchived}
var filterNames = []string{"ALL", "OPEN", "IN PROGRESS", "DONE", "CANCELED", "ARCHIVED"}

// App is the main TUI application model.
type App struct {
	api          API
	user         string
	tasks        []TaskItem
	selectedIdx  int
	input        textinput.Model
	viewport     viewport.Model
	table        table.Model
	width        int
	height       int
	mode         string
	detail       *TaskDetail
	stats        *Stats
	topN         int
	message      string
	filterIdx    int
	loading      bool
	serverOnline bool
	suggestions  *Suggestions
}

// New creates the TUI for api. user is shown in the header.
func New(api API, user string) *App {
	ti := textinput.New()
	ti.Placeholder = "add <title> | start | finish | log <min> | complete | move <status> | comment <text>"
	ti.CharLimit = 256
	ti.Width = 80

	return &App{
		api:         api,
		user:        user,
		input:       ti,
		viewport:    viewport.New(80, 20),
		table:       newStatsTable(10),
		mode:        modeList,
		topN:        defaultTopN,
		suggestions: NewSuggestions(),
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.fetchTasks(),
		a.checkServer(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.input.Focused() {
			return a.updateInput(msg)
		}
		return a.updateKeys(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 4
		a.viewport.Width = msg.Width
		a.viewport.Height = max(msg.Height-10, 5)
		a.table.SetHeight(max(msg.Height-14, 5))

	case tasksLoadedMsg:
		a.loading = false
		a.tasks = msg.tasks
		if a.selectedIdx >= len(a.tasks) {
			a.selectedIdx = max(0, len(a.tasks)-1)
		}

	case taskDetailLoadedMsg:
		a.detail = msg.detail
		a.viewport.SetContent(renderDetail(msg.detail))
		a.viewport.GotoTop()

	case statsLoadedMsg:
		a.stats = msg.stats
		a.table.SetRows(statsRows(msg.stats.Top))

	case serverStatusMsg:
		a.serverOnline = msg.online

	case commandResultMsg:
		a.message = msg.message
		return a, a.refresh()

	case errMsg:
		a.loading = false
		a.message = "Error: " + msg.err.Error()
	}
	return a, nil
}

func (a *App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return a, tea.Quit

	case "esc":
		if a.mode != modeList {
			a.mode = modeList
			a.detail = nil
			return a, a.fetchTasks()
		}

	case ":", "/":
		a.input.Focus()
		if msg.String() == "/" {
			a.input.SetValue("/")
			a.input.CursorEnd()
			a.suggestions.Update("/", a.tasks)
		}
		return a, textinput.Blink

	case "@":
		a.input.Focus()
		a.input.SetValue("@")
		a.input.CursorEnd()
		a.suggestions.Update("@", a.tasks)
		return a, textinput.Blink

	case "up", "k":
		if a.mode == modeList && a.selectedIdx > 0 {
			a.selectedIdx--
		}

	case "down", "j":
		if a.mode == modeList && a.selectedIdx < len(a.tasks)-1 {
			a.selectedIdx++
		}

	case "tab":
		if a.mode == modeList {
			a.filterIdx = (a.filterIdx + 1) % len(filters)
			return a, a.fetchTasks()
		}

	case "enter":
		if a.mode == modeList && len(a.tasks) > 0 {
			a.mode = modeDetail
			return a, a.fetchTaskDetail(a.tasks[a.selectedIdx].ID)
		}

	case "s":
		a.mode = modeStats
		return a, a.fetchStats()

	case "r":
		return a, a.refresh()

	case "+", "=":
		if a.mode == modeStats {
			a.topN++
			return a, a.fetchStats()
		}

	case "-":
		if a.mode == modeStats && a.topN > 1 {
			a.topN--
			return a, a.fetchStats()
		}
	}

	var cmd tea.Cmd
	switch a.mode {
	case modeDetail:
		a.viewport, cmd = a.viewport.Update(msg)
	case modeStats:
		a.table, cmd = a.table.Update(msg)
	}
	return a, cmd
}

func (a *App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit

	case "esc":
		if a.suggestions.IsVisible() {
			a.suggestions.Dismiss()
			return a, nil
		}
		a.input.SetValue("")
		a.input.Blur()
		return a, nil

	case "up":
		if a.suggestions.IsVisible() {
			a.suggestions.Prev()
			return a, nil
		}

	case "down":
		if a.suggestions.IsVisible() {
			a.suggestions.Next()
			return a, nil
		}

	case "tab":
		if selected := a.suggestions.Selected(); selected != nil {
			a.acceptSuggestion(selected)
		}
		return a, nil

	case "enter":
		if selected := a.suggestions.Selected(); selected != nil && selected.Type == "command" {
			a.acceptSuggestion(selected)
			return a, nil
		}
		line := strings.TrimSpace(a.input.Value())
		a.input.SetValue("")
		a.input.Blur()
		a.suggestions.Update("", nil)
		if line == "" {
			return a, nil
		}
		return a, a.executeCommand(line)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.suggestions.Update(a.input.Value(), a.tasks)
	return a, cmd
}

func (a *App) acceptSuggestion(item *SuggestionItem) {
	if item.Type == "task" {
		a.input.SetValue("@" + item.Text)
	} else {
		a.input.SetValue(item.Text + " ")
	}
	a.input.CursorEnd()
	a.suggestions.Dismiss()
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	server := onlineStyle.Render("● API")
	if !a.serverOnline {
		server = offlineStyle.Render("○ API")
	}
	header := titleStyle.Render("taskclock") + "  " + server
	if a.user != "" {
		header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render("@"+a.user)
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 0)) + "\n")

	contentHeight := max(a.height-8, 5)

	switch a.mode {
	case modeList:
		b.WriteString(lipgloss.NewStyle().Foreground(mutedColor).Render(fmt.Sprintf(" Filter: [%s]", filterNames[a.filterIdx])) + "\n")
		b.WriteString(a.renderTaskList(contentHeight - 1))
	case modeDetail:
		if a.detail == nil {
			b.WriteString("\n  Loading task...\n")
		} else {
			b.WriteString(a.viewport.View())
		}
	case modeStats:
		b.WriteString(a.renderStats())
	}

	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()))
	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	var status string
	switch {
	case a.input.Focused():
		status = " Enter:run | Tab:complete | Esc:cancel"
	case a.mode == modeList:
		status = fmt.Sprintf(" Tasks: %d | ↑↓:nav | Enter:open | Tab:filter | s:stats | ::command | r:refresh | q:quit", len(a.tasks))
	case a.mode == modeDetail:
		status = " ↑↓:scroll | ::command | r:refresh | Esc:back | q:quit"
	case a.mode == modeStats:
		status = fmt.Sprintf(" Top %d | +/-:change | r:refresh | Esc:back | q:quit", a.topN)
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

func (a *App) renderTaskList(height int) string {
	if a.loading {
		return "\n  Loading tasks...\n"
	}
	if len(a.tasks) == 0 {
		return "\n  No tasks found. Press : and type add <title> to create one.\n"
	}

	var lines []string
	for i, task := range a.tasks {
		owner := ""
		if task.OwnerID != "" {
			owner = "  " + helpStyle.Render(task.OwnerID)
		}
		if i == a.selectedIdx {
			lines = append(lines, selectedStyle.Render(fmt.Sprintf("▶ %s  %s", formatStatusPlain(task.Status), task.Title)))
		} else {
			lines = append(lines, taskItemStyle.Render(fmt.Sprintf("  %s  %s", formatStatus(task.Status), task.Title))+owner)
		}
	}

	// Keep the selection in view
	if len(lines) > height && height > 0 {
		start := 0
		if a.selectedIdx >= height {
			start = a.selectedIdx - height + 1
		}
		lines = lines[start : start+height]
	}
	return strings.Join(lines, "\n") + "\n"
}

func renderDetail(d *TaskDetail) string {
	var b strings.Builder
	t := d.Task
	b.WriteString(fmt.Sprintf("\n  %s\n", lipgloss.NewStyle().Bold(true).Render(t.Title)))
	b.WriteString(fmt.Sprintf("  ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf("  Status: %s\n", formatStatus(t.Status)))
	if t.OwnerID != "" {
		b.WriteString(fmt.Sprintf("  Owner: %s\n", t.OwnerID))
	}
	b.WriteString(fmt.Sprintf("  Logged: %s\n", formatMinutes(d.TotalMinutes)))
	if t.Description != "" {
		b.WriteString("\n  " + t.Description + "\n")
	}

	b.WriteString("\n  " + lipgloss.NewStyle().Bold(true).Foreground(secondaryColor).Render("Time logs") + "\n")
	if len(d.TimeLogs) == 0 {
		b.WriteString("  " + helpStyle.Render("none") + "\n")
	}
	for _, e := range d.TimeLogs {
		dur := lipgloss.NewStyle().Foreground(warningColor).Render("running")
		if e.DurationMinutes != nil {
			dur = formatMinutes(*e.DurationMinutes)
		}
		b.WriteString(fmt.Sprintf("    • %s  %-12s %s\n", e.StartedAt.Local().Format("2006-01-02 15:04"), e.UserID, dur))
	}

	b.WriteString("\n  " + lipgloss.NewStyle().Bold(true).Foreground(secondaryColor).Render("Comments") + "\n")
	if len(d.Comments) == 0 {
		b.WriteString("  " + helpStyle.Render("none") + "\n")
	}
	for _, c := range d.Comments {
		b.WriteString(fmt.Sprintf("    %s %s: %s\n", helpStyle.Render(c.CreatedAt.Local().Format("01-02 15:04")), c.AuthorID, c.Text))
	}
	return b.String()
}

func formatStatus(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusOpen:
		return lipgloss.NewStyle().Foreground(warningColor).Render("○ OPEN")
	case models.TaskStatusInProgress:
		return lipgloss.NewStyle().Foreground(cyanColor).Render("◐ IN PROGRESS")
	case models.TaskStatusCompleted:
		return lipgloss.NewStyle().Foreground(successColor).Render("● DONE")
	case models.TaskStatusCanceled:
		return lipgloss.NewStyle().Foreground(errorColor).Render("✗ CANCELED")
	case models.TaskStatusArchived:
		return lipgloss.NewStyle().Foreground(mutedColor).Render("▪ ARCHIVED")
	default:
		return string(status)
	}
}

func formatStatusPlain(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusOpen:
		return "○"
	case models.TaskStatusInProgress:
		return "◐"
	case models.TaskStatusCompleted:
		return "●"
	case models.TaskStatusCanceled:
		return "✗"
	case models.TaskStatusArchived:
		return "▪"
	default:
		return "?"
	}
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}

func (a *App) refresh() tea.Cmd {
	switch a.mode {
	case modeDetail:
		if a.detail != nil {
			return a.fetchTaskDetail(a.detail.Task.ID)
		}
	case modeStats:
		return a.fetchStats()
	}
	return a.fetchTasks()
}

func (a *App) fetchTasks() tea.Cmd {
	a.loading = true
	status := filters[a.filterIdx]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		tasks, err := a.api.ListTasks(ctx, status)
		if err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{toItems(tasks)}
	}
}

func (a *App) fetchTaskDetail(taskID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		view, err := a.api.GetTask(ctx, taskID)
		if err != nil {
			return errMsg{err}
		}
		detail := &TaskDetail{Task: view.Task, TotalMinutes: view.TotalMinutes}
		detail.TimeLogs, _ = a.api.TimeLogs(ctx, taskID)
		detail.Comments, _ = a.api.Comments(ctx, taskID)
		return taskDetailLoadedMsg{detail}
	}
}

func (a *App) fetchStats() tea.Cmd {
	n := a.topN
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		top, err := a.api.TopByLoggedTime(ctx, n)
		if err != nil {
			return errMsg{err}
		}
		month, err := a.api.PrevMonthTime(ctx)
		if err != nil {
			return errMsg{err}
		}
		return statsLoadedMsg{&Stats{N: n, Top: top, LastMonth: month}}
	}
}

func (a *App) checkServer() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		h, err := a.api.Health(ctx)
		return serverStatusMsg{online: err == nil && h.OK}
	}
}

// targetTask is the task commands apply to: the open detail, else the
// list selection.
func (a *App) targetTask() (string, bool) {
	if a.mode == modeDetail && a.detail != nil {
		return a.detail.Task.ID, true
	}
	if len(a.tasks) == 0 {
		return "", false
	}
	return a.tasks[a.selectedIdx].ID, true
}

func (a *App) executeCommand(input string) tea.Cmd {
	if strings.HasPrefix(input, "@") {
		id := strings.TrimPrefix(input, "@")
		a.mode = modeDetail
		a.detail = nil
		return a.fetchTaskDetail(id)
	}

	parts := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		return nil
	}
	cmd, args := parts[0], parts[1:]
	rest := strings.Join(args, " ")

	switch cmd {
	case "q", "quit", "exit":
		return tea.Quit
	case "top":
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return result("Usage: top <n>")
			}
			a.topN = n
		}
		a.mode = modeStats
		return a.fetchStats()
	}

	if cmd == "search" {
		a.mode = modeList
	}

	taskID, haveTask := a.targetTask()
	needsTask := cmd != "add" && cmd != "search"
	if needsTask && !haveTask {
		return result("No task selected")
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		switch cmd {
		case "add":
			if rest == "" {
				return commandResultMsg{"Usage: add <title>"}
			}
			task, err := a.api.CreateTask(ctx, rest, "")
			if err != nil {
				return errMsg{err}
			}
			return commandResultMsg{fmt.Sprintf("✓ Created task: %s", shortID(task.ID))}

		case "search":
			if rest == "" {
				return commandResultMsg{"Usage: search <text>"}
			}
			tasks, err := a.api.SearchTasks(ctx, rest)
			if err != nil {
				return errMsg{err}
			}
			return tasksLoadedMsg{toItems(tasks)}

		case "start":
			if _, err := a.api.StartTimer(ctx, taskID); err != nil {
				return errMsg{err}
			}
			return commandResultMsg{"✓ Timer started"}

		case "finish", "stop":
			minutes, err := a.api.FinishTimer(ctx, taskID)
			if err != nil {
				return errMsg{err}
			}
			return commandResultMsg{fmt.Sprintf("✓ Logged %s", formatMinutes(minutes))}

		case "log":
			if len(args) != 1 {
				return commandResultMsg{"Usage: log <minutes>"}
			}
			minutes, err := strconv.Atoi(args[0])
			if err != nil {
				return commandResultMsg{"Usage: log <minutes>"}
			}
			if _, err := a.api.LogTime(ctx, taskID, time.Now().Add(-time.Duration(minutes)*time.Minute), minutes); err != nil {
				return errMsg{err}
			}
			return commandResultMsg{fmt.Sprintf("✓ Logged %s", formatMinutes(minutes))}

		case "complete", "done":
			if _, err := a.api.CompleteTask(ctx, taskID); err != nil {
				return errMsg{err}
			}
			return commandResultMsg{"✓ Task completed"}

		case "move":
			if len(args) != 1 {
				return commandResultMsg{"Usage: move <status>"}
			}
			status := models.TaskStatus(strings.ToUpper(strings.ReplaceAll(args[0], "-", "_")))
			task, err := a.api.TransitionTask(ctx, taskID, status)
			if err != nil {
				return errMsg{err}
			}
			return commandResultMsg{fmt.Sprintf("✓ Task is %s", task.Status)}

		case "assign":
			if len(args) != 1 {
				return commandResultMsg{"Usage: assign <user>"}
			}
			if _, err := a.api.AssignTask(ctx, taskID, args[0]); err != nil {
				return errMsg{err}
			}
			return commandResultMsg{fmt.Sprintf("✓ Assigned to %s", args[0])}

		case "comment":
			if rest == "" {
				return commandResultMsg{"Usage: comment <text>"}
			}
			if _, err := a.api.AddComment(ctx, taskID, rest); err != nil {
				return errMsg{err}
			}
			return commandResultMsg{"✓ Comment added"}

		default:
			return commandResultMsg{fmt.Sprintf("Unknown: %s (try: add, start, finish, complete, comment)", cmd)}
		}
	}
}

func result(message string) tea.Cmd {
	return func() tea.Msg { return commandResultMsg{message} }
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
