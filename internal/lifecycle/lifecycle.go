// Package lifecycle owns task state: creation, edits, assignment, status
// transitions and comments.
//
// Every mutation commits through the store first; hooks run afterwards, in
// registration order, and cannot undo it.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/clock"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/fentz26/taskclock/internal/store"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the lifecycle needs. *store.Store implements it.
type Store interface {
	CreateTask(ctx context.Context, title, description, createdBy string, now time.Time) (*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, filter store.TaskFilter) ([]models.Task, error)
	UpdateTaskFields(ctx context.Context, id string, title, description *string, now time.Time) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	AssignTask(ctx context.Context, taskID, userID string, now time.Time) (*models.Task, *models.User, error)
	TransitionTask(ctx context.Context, taskID string, to models.TaskStatus, now time.Time, check func(from models.TaskStatus) error) (*models.Task, error)
	CompleteTask(ctx context.Context, taskID string, now time.Time, check func(from models.TaskStatus) error) (*store.CompleteResult, error)
	AddComment(ctx context.Context, taskID, authorID, text string, now time.Time) (*store.CommentResult, error)
	ListComments(ctx context.Context, taskID string) ([]models.Comment, error)
}

// Lifecycle runs task operations.
type Lifecycle struct {
	store Store
	clock clock.Clock
	log   *logrus.Logger
	hooks []Hook
}

// New creates a Lifecycle. A nil clock uses the system clock.
func New(s Store, c clock.Clock, log *logrus.Logger, hooks ...Hook) *Lifecycle {
	if c == nil {
		c = clock.System{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Lifecycle{store: s, clock: c, log: log, hooks: hooks}
}

// Use appends hooks.
func (l *Lifecycle) Use(hooks ...Hook) {
	l.hooks = append(l.hooks, hooks...)
}

// Create adds an OPEN task.
func (l *Lifecycle) Create(ctx context.Context, in CreateTaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	task, err := l.store.CreateTask(ctx, in.Title, in.Description, in.CreatedBy, l.clock.Now())
	if err != nil {
		return nil, err
	}
	l.emit(ctx, Event{Kind: EventTaskCreated, Task: task, TaskID: task.ID})
	return task, nil
}

// Update edits title and description.
func (l *Lifecycle) Update(ctx context.Context, in UpdateTaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	task, err := l.store.UpdateTaskFields(ctx, in.TaskID, in.Title, in.Description, l.clock.Now())
	if err != nil {
		return nil, err
	}
	l.emit(ctx, Event{Kind: EventTaskUpdated, Task: task, TaskID: task.ID})
	return task, nil
}

// Get returns a task.
func (l *Lifecycle) Get(ctx context.Context, taskID string) (*models.Task, error) {
	return l.store.GetTask(ctx, taskID)
}

// List returns tasks matching filter.
func (l *Lifecycle) List(ctx context.Context, filter ListFilter) ([]models.Task, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return l.store.ListTasks(ctx, store.TaskFilter{Status: filter.Status, OwnerID: filter.OwnerID})
}

// Search returns tasks whose title contains query, ignoring case.
// A blank query matches every task.
func (l *Lifecycle) Search(ctx context.Context, query string) ([]models.Task, error) {
	return l.store.ListTasks(ctx, store.TaskFilter{Query: strings.TrimSpace(query)})
}

// Delete removes a task and everything attached to it.
func (l *Lifecycle) Delete(ctx context.Context, taskID string) error {
	if err := l.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	l.emit(ctx, Event{Kind: EventTaskDeleted, TaskID: taskID})
	return nil
}

// Assign makes in.UserID the owner of the task. The status is unchanged.
func (l *Lifecycle) Assign(ctx context.Context, in AssignInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	type assigned struct {
		task *models.Task
		user *models.User
	}
	res, err := store.RetryOnce(func() (assigned, error) {
		task, user, err := l.store.AssignTask(ctx, in.TaskID, in.UserID, l.clock.Now())
		return assigned{task, user}, err
	})
	if err != nil {
		return nil, err
	}

	l.emit(ctx, Event{
		Kind:       EventTaskAssigned,
		Task:       res.task,
		TaskID:     res.task.ID,
		Recipients: []models.User{*res.user},
	})
	return res.task, nil
}

// Complete marks a task COMPLETED and tells everyone who commented on it.
// Completing an already completed task succeeds and notifies again.
func (l *Lifecycle) Complete(ctx context.Context, taskID string) (*models.Task, error) {
	var from models.TaskStatus
	res, err := store.RetryOnce(func() (*store.CompleteResult, error) {
		return l.store.CompleteTask(ctx, taskID, l.clock.Now(), func(current models.TaskStatus) error {
			from = current
			if current == models.TaskStatusCompleted || current.CanTransitionTo(models.TaskStatusCompleted) {
				return nil
			}
			return invalidTransition(current, models.TaskStatusCompleted)
		})
	})
	if err != nil {
		return nil, err
	}

	l.emit(ctx, Event{
		Kind:       EventTaskCompleted,
		Task:       res.Task,
		TaskID:     res.Task.ID,
		From:       from,
		Recipients: res.Commenters,
	})
	return res.Task, nil
}

// Transition moves a task to status to. COMPLETED goes through Complete.
func (l *Lifecycle) Transition(ctx context.Context, taskID string, to models.TaskStatus) (*models.Task, error) {
	if !to.Valid() {
		return nil, apperr.Invalid(map[string]string{"status": "unknown status " + string(to)})
	}
	if to == models.TaskStatusCompleted {
		return l.Complete(ctx, taskID)
	}

	var from models.TaskStatus
	task, err := store.RetryOnce(func() (*models.Task, error) {
		return l.store.TransitionTask(ctx, taskID, to, l.clock.Now(), func(current models.TaskStatus) error {
			from = current
			if !current.CanTransitionTo(to) {
				return invalidTransition(current, to)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	l.emit(ctx, Event{Kind: EventTaskTransitioned, Task: task, TaskID: task.ID, From: from})
	return task, nil
}

// AddComment attaches a comment to a task and tells the owner.
func (l *Lifecycle) AddComment(ctx context.Context, in CommentInput) (*models.Comment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	res, err := store.RetryOnce(func() (*store.CommentResult, error) {
		return l.store.AddComment(ctx, in.TaskID, in.AuthorID, in.Text, l.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	ev := Event{Kind: EventCommentAdded, Task: res.Task, TaskID: res.Task.ID, Comment: res.Comment}
	if res.Owner != nil {
		ev.Recipients = []models.User{*res.Owner}
	}
	l.emit(ctx, ev)
	return res.Comment, nil
}

// Comments returns the comments of a task.
func (l *Lifecycle) Comments(ctx context.Context, taskID string) ([]models.Comment, error) {
	if _, err := l.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return l.store.ListComments(ctx, taskID)
}

func (l *Lifecycle) emit(ctx context.Context, ev Event) {
	for _, h := range l.hooks {
		if err := h(ctx, ev); err != nil {
			l.log.WithError(err).WithFields(logrus.Fields{
				"event":   string(ev.Kind),
				"task_id": ev.TaskID,
			}).Warn("post-commit hook failed")
		}
	}
}

func invalidTransition(from, to models.TaskStatus) error {
	return &apperr.Error{
		Kind: apperr.InvalidState,
		Msg:  apperr.ErrInvalidTransition.Msg,
		Fields: map[string]string{
			"from": string(from),
			"to":   string(to),
		},
	}
}
