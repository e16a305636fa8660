package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/fentz26/taskclock/internal/audit"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/fentz26/taskclock/internal/notify"
)

// EventKind names a committed change.
type EventKind string

const (
	EventTaskCreated      EventKind = "task.created"
	EventTaskUpdated      EventKind = "task.updated"
	EventTaskDeleted      EventKind = "task.deleted"
	EventTaskAssigned     EventKind = "task.assigned"
	EventTaskCompleted    EventKind = "task.completed"
	EventTaskTransitioned EventKind = "task.transitioned"
	EventCommentAdded     EventKind = "comment.added"
)

// Event describes a change after it was committed.
type Event struct {
	Kind EventKind
	// Task is nil for EventTaskDeleted.
	Task   *models.Task
	TaskID string
	From   models.TaskStatus
	// Recipients are the users to tell about the change.
	Recipients []models.User
	Comment    *models.Comment
}

// Hook runs after a change is committed. Its error is logged, never returned
// to the caller of the lifecycle operation.
type Hook func(ctx context.Context, ev Event) error

// Notification texts.
const (
	SubjectAssigned  = "New Task"
	SubjectCompleted = "Task that you commented on is completed"
	BodyCompleted    = "The task you commented on has been marked as completed."
	SubjectComment   = "New Comment"
)

// Messages builds the notifications for ev, one per recipient with an e-mail.
func Messages(ev Event) []notify.Message {
	var subject, body string
	switch ev.Kind {
	case EventTaskAssigned:
		subject, body = SubjectAssigned, fmt.Sprintf("Task with id %s is assigned to you", ev.TaskID)
	case EventTaskCompleted:
		subject, body = SubjectCompleted, BodyCompleted
	case EventCommentAdded:
		if ev.Comment == nil {
			return nil
		}
		subject, body = SubjectComment, ev.Comment.Text
	default:
		return nil
	}

	var msgs []notify.Message
	for _, u := range ev.Recipients {
		if u.Email == "" {
			continue
		}
		msgs = append(msgs, notify.Message{To: u.Email, Subject: subject, Body: body})
	}
	return msgs
}

// NotifyHook sends the notifications of each event through n.
func NotifyHook(n notify.Notifier) Hook {
	return func(ctx context.Context, ev Event) error {
		var errs []error
		for _, msg := range Messages(ev) {
			if err := n.Notify(ctx, msg); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Auditor records decisions. *audit.Recorder implements it.
type Auditor interface {
	Record(ctx context.Context, action string, inputs any, outcome, taskID, details string) (*models.AuditEntry, error)
}

// AuditHook writes one decision record per event.
func AuditHook(a Auditor) Hook {
	return func(ctx context.Context, ev Event) error {
		inputs := map[string]any{"task_id": ev.TaskID}
		details := string(ev.Kind)
		if ev.Task != nil {
			inputs["status"] = ev.Task.Status
			inputs["owner_id"] = ev.Task.OwnerID
		}
		if ev.From != "" {
			details = fmt.Sprintf("%s -> %s", ev.From, ev.Task.Status)
		}
		if ev.Comment != nil {
			inputs["comment_id"] = ev.Comment.ID
		}
		recipients := make([]string, 0, len(ev.Recipients))
		for _, u := range ev.Recipients {
			recipients = append(recipients, u.ID)
		}
		inputs["recipients"] = recipients

		_, err := a.Record(ctx, string(ev.Kind), inputs, audit.OutcomeSuccess, ev.TaskID, details)
		return err
	}
}
