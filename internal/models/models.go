// Package models defines the core domain types for taskclock.
package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "OPEN"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCanceled   TaskStatus = "CANCELED"
	TaskStatusArchived   TaskStatus = "ARCHIVED"
)

// TaskStatuses lists every status in lifecycle order.
var TaskStatuses = []TaskStatus{
	TaskStatusOpen,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusCanceled,
	TaskStatusArchived,
}

var transitions = map[TaskStatus][]TaskStatus{
	TaskStatusOpen:       {TaskStatusInProgress, TaskStatusCompleted, TaskStatusCanceled, TaskStatusArchived},
	TaskStatusInProgress: {TaskStatusOpen, TaskStatusCompleted, TaskStatusCanceled, TaskStatusArchived},
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s TaskStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Task is a unit of work that time is tracked against.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	OwnerID     string     `json:"owner_id,omitempty"`
	Completed   bool       `json:"is_completed"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// User mirrors an identity issued by the identity provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// TimeLogEntry is one tracked session. A nil DurationMinutes means the timer
// is still running.
type TimeLogEntry struct {
	ID              string    `json:"id"`
	TaskID          string    `json:"task_id"`
	UserID          string    `json:"user_id"`
	StartedAt       time.Time `json:"started_at"`
	DurationMinutes *int      `json:"duration_minutes"`
}

// Open reports whether the entry is a running timer.
func (e *TimeLogEntry) Open() bool {
	return e.DurationMinutes == nil
}

// Comment is an immutable note on a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is the metadata row for an object uploaded to the blob store.
type Attachment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	OwnerID    string    `json:"owner_id"`
	FileName   string    `json:"file_name"`
	ObjectKey  string    `json:"object_key"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// TaskTotal is the logged time of one task.
type TaskTotal struct {
	TaskID       string `json:"task_id"`
	Title        string `json:"title"`
	TotalMinutes int    `json:"total_minutes"`
}

// AuditEntry is a decision record for a state-mutating action.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	TaskID     string    `json:"task_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
