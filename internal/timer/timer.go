// Package timer implements the start/finish protocol for time tracking.
//
// Each (task, user) pair has at most one running entry. Durations are whole
// minutes, truncated toward zero.
package timer

import (
	"context"
	"strings"
	"time"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/audit"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/fentz26/taskclock/internal/store"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the controller needs. *store.Store implements it.
type Store interface {
	StartTimer(ctx context.Context, taskID, userID string, now time.Time) (*models.TimeLogEntry, error)
	FinishTimer(ctx context.Context, taskID, userID string, compute func(start time.Time) (int, error)) (*models.TimeLogEntry, error)
	LogTime(ctx context.Context, taskID, userID string, startedAt time.Time, minutes int) (*models.TimeLogEntry, error)
	ListTimeLogs(ctx context.Context, taskID string) ([]models.TimeLogEntry, error)
}

// Auditor records decisions. *audit.Recorder implements it.
type Auditor interface {
	Record(ctx context.Context, action string, inputs any, outcome, taskID, details string) (*models.AuditEntry, error)
}

// LogTimeInput is a manually entered, already finished session.
type LogTimeInput struct {
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
	Minutes   int       `json:"minutes"`
}

// Validate checks the input before any store access.
func (in LogTimeInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.TaskID) == "" {
		fields["task_id"] = "missed value"
	}
	if strings.TrimSpace(in.UserID) == "" {
		fields["user_id"] = "missed value"
	}
	if in.StartedAt.IsZero() {
		fields["started_at"] = "missed value"
	}
	if in.Minutes <= 0 {
		fields["minutes"] = "must be positive"
	}
	return apperr.Invalid(fields)
}

// Controller runs timer operations against a Store.
type Controller struct {
	store Store
	audit Auditor
	log   *logrus.Logger
}

// New creates a controller. auditor may be nil.
func New(s Store, auditor Auditor, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{store: s, audit: auditor, log: log}
}

// Start opens a timer for (taskID, userID) at now and returns the entry id.
func (c *Controller) Start(ctx context.Context, taskID, userID string, now time.Time) (string, error) {
	entry, err := store.RetryOnce(func() (*models.TimeLogEntry, error) {
		return c.store.StartTimer(ctx, taskID, userID, now)
	})
	if err != nil {
		return "", err
	}

	c.log.WithFields(logrus.Fields{"op": "timer.start", "task_id": taskID, "user_id": userID}).Debug("timer started")
	c.record(ctx, "timer.start", map[string]any{"task_id": taskID, "user_id": userID, "started_at": now}, taskID, "entry "+entry.ID)
	return entry.ID, nil
}

// Finish closes the running timer for (taskID, userID) at now and returns
// the persisted duration in minutes.
func (c *Controller) Finish(ctx context.Context, taskID, userID string, now time.Time) (int, error) {
	entry, err := store.RetryOnce(func() (*models.TimeLogEntry, error) {
		return c.store.FinishTimer(ctx, taskID, userID, func(start time.Time) (int, error) {
			return Minutes(start, now)
		})
	})
	if err != nil {
		return 0, err
	}

	minutes := *entry.DurationMinutes
	c.log.WithFields(logrus.Fields{"op": "timer.finish", "task_id": taskID, "user_id": userID, "minutes": minutes}).Debug("timer finished")
	c.record(ctx, "timer.finish", map[string]any{"task_id": taskID, "user_id": userID, "finished_at": now}, taskID, "entry "+entry.ID)
	return minutes, nil
}

// LogTime stores a finished session entered by hand.
func (c *Controller) LogTime(ctx context.Context, in LogTimeInput) (*models.TimeLogEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	entry, err := store.RetryOnce(func() (*models.TimeLogEntry, error) {
		return c.store.LogTime(ctx, in.TaskID, in.UserID, in.StartedAt, in.Minutes)
	})
	if err != nil {
		return nil, err
	}
	c.record(ctx, "timer.log", in, in.TaskID, "entry "+entry.ID)
	return entry, nil
}

// List returns the time logs of a task.
func (c *Controller) List(ctx context.Context, taskID string) ([]models.TimeLogEntry, error) {
	return c.store.ListTimeLogs(ctx, taskID)
}

// Minutes returns the whole minutes between start and end.
func Minutes(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, apperr.ErrInvalidTimeRange
	}
	return int(end.Sub(start) / time.Minute), nil
}

func (c *Controller) record(ctx context.Context, action string, inputs any, taskID, details string) {
	if c.audit == nil {
		return
	}
	if _, err := c.audit.Record(ctx, action, inputs, audit.OutcomeSuccess, taskID, details); err != nil {
		c.log.WithError(err).WithField("op", action).Warn("audit record failed")
	}
}
