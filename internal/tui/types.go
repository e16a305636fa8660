package tui

import (
	"context"
	"time"

	"github.com/fentz26/taskclock/internal/client"
	"github.com/fentz26/taskclock/internal/models"
)

// API is the part of the taskclock API the TUI drives. *client.Client
// implements it.
type API interface {
	ListTasks(ctx context.Context, status models.TaskStatus) ([]models.Task, error)
	SearchTasks(ctx context.Context, query string) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*client.TaskView, error)
	CreateTask(ctx context.Context, title, description string) (*models.Task, error)
	AssignTask(ctx context.Context, id, userID string) (*models.Task, error)
	CompleteTask(ctx context.Context, id string) (*models.Task, error)
	TransitionTask(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error)
	AddComment(ctx context.Context, id, text string) (*models.Comment, error)
	Comments(ctx context.Context, id string) ([]models.Comment, error)
	StartTimer(ctx context.Context, id string) (string, error)
	FinishTimer(ctx context.Context, id string) (int, error)
	LogTime(ctx context.Context, id string, startedAt time.Time, minutes int) (*models.TimeLogEntry, error)
	TimeLogs(ctx context.Context, id string) ([]models.TimeLogEntry, error)
	TopByLoggedTime(ctx context.Context, n int) ([]models.TaskTotal, error)
	PrevMonthTime(ctx context.Context) (*client.MonthlyTotal, error)
	Health(ctx context.Context) (*client.Health, error)
}

var _ API = (*client.Client)(nil)

// TaskItem is a row of the task list.
type TaskItem struct {
	ID      string
	Title   string
	Status  models.TaskStatus
	OwnerID string
}

// TaskDetail is everything shown on the detail screen.
type TaskDetail struct {
	Task         models.Task
	TotalMinutes int
	TimeLogs     []models.TimeLogEntry
	Comments     []models.Comment
}

// Stats is the dashboard content.
type Stats struct {
	N         int
	Top       []models.TaskTotal
	LastMonth *client.MonthlyTotal
}

type commandResultMsg struct {
	message string
}

type errMsg struct {
	err error
}

type tasksLoadedMsg struct {
	tasks []TaskItem
}

type taskDetailLoadedMsg struct {
	detail *TaskDetail
}

type statsLoadedMsg struct {
	stats *Stats
}

type serverStatusMsg struct {
	online bool
}

func toItems(tasks []models.Task) []TaskItem {
	items := make([]TaskItem, len(tasks))
	for i, t := range tasks {
		items[i] = TaskItem{ID: t.ID, Title: t.Title, Status: t.Status, OwnerID: t.OwnerID}
	}
	return items
}
