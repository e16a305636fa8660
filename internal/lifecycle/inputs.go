package lifecycle

import (
	"strings"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/models"
)

const maxTitleLen = 200

// CreateTaskInput creates an OPEN task.
type CreateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by,omitempty"`
}

func (in *CreateTaskInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	fields := map[string]string{}
	validateTitle(in.Title, fields)
	return apperr.Invalid(fields)
}

// UpdateTaskInput edits title and description. Nil fields are left as is.
type UpdateTaskInput struct {
	TaskID      string  `json:"-"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (in *UpdateTaskInput) Validate() error {
	fields := map[string]string{}
	if in.TaskID == "" {
		fields["task_id"] = "missed value"
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
		validateTitle(t, fields)
	}
	if in.Title == nil && in.Description == nil {
		fields["title"] = "nothing to update"
	}
	return apperr.Invalid(fields)
}

// AssignInput sets the owner of a task.
type AssignInput struct {
	TaskID string `json:"-"`
	UserID string `json:"user_id"`
}

func (in *AssignInput) Validate() error {
	fields := map[string]string{}
	if in.TaskID == "" {
		fields["task_id"] = "missed value"
	}
	if strings.TrimSpace(in.UserID) == "" {
		fields["user_id"] = "missed value"
	}
	return apperr.Invalid(fields)
}

// CommentInput adds a comment to a task.
type CommentInput struct {
	TaskID   string `json:"-"`
	AuthorID string `json:"-"`
	Text     string `json:"text"`
}

func (in *CommentInput) Validate() error {
	if strings.TrimSpace(in.Text) == "" {
		return apperr.ErrEmptyText
	}
	fields := map[string]string{}
	if in.TaskID == "" {
		fields["task_id"] = "missed value"
	}
	if in.AuthorID == "" {
		fields["author_id"] = "missed value"
	}
	return apperr.Invalid(fields)
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status  models.TaskStatus
	OwnerID string
}

func (f ListFilter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return apperr.Invalid(map[string]string{"status": "unknown status " + string(f.Status)})
	}
	return nil
}

func validateTitle(title string, fields map[string]string) {
	switch {
	case title == "":
		fields["title"] = "missed value"
	case len(title) > maxTitleLen:
		fields["title"] = "too long"
	}
}
