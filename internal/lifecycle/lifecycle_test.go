package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/audit"
	"github.com/fentz26/taskclock/internal/clock"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/fentz26/taskclock/internal/notify"
	"github.com/fentz26/taskclock/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var t0 = time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)

// outbox records notifications synchronously.
type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (o *outbox) Notify(ctx context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

type fixture struct {
	lc     *Lifecycle
	store  *store.Store
	outbox *outbox
	hook   *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "lifecycle.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	for _, u := range []models.User{{ID: "u1", Email: "u1@example.com"}, {ID: "u2", Email: "u2@example.com"}, {ID: "u3"}} {
		if _, err := s.UpsertUser(ctx, u.ID, u.Email, t0); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
	}

	logger, hook := test.NewNullLogger()
	out := &outbox{}
	lc := New(s, clock.NewManual(t0), logger, NotifyHook(out))
	return &fixture{lc: lc, store: s, outbox: out, hook: hook}
}

func (f *fixture) createTask(t *testing.T) *models.Task {
	t.Helper()
	task, err := f.lc.Create(context.Background(), CreateTaskInput{Title: "  Ship release  ", CreatedBy: "u1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return task
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	task := f.createTask(t)
	if task.Title != "Ship release" || task.Status != models.TaskStatusOpen || task.Completed {
		t.Errorf("Unexpected task: %+v", task)
	}

	_, err := f.lc.Create(context.Background(), CreateTaskInput{Title: "   "})
	if !errors.Is(err, apperr.Validation) || apperr.FieldsOf(err)["title"] == "" {
		t.Errorf("Expected title validation error, got %v", err)
	}
}

func TestCompleteNotifiesDistinctCommenters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	for _, author := range []string{"u1", "u2", "u1"} {
		if _, err := f.lc.AddComment(ctx, CommentInput{TaskID: task.ID, AuthorID: author, Text: "progress"}); err != nil {
			t.Fatalf("AddComment failed: %v", err)
		}
	}
	// Unassigned task: comments notify nobody
	if len(f.outbox.msgs) != 0 {
		t.Fatalf("Expected no comment notifications, got %d", len(f.outbox.msgs))
	}

	done, err := f.lc.Complete(ctx, task.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if done.Status != models.TaskStatusCompleted || !done.Completed {
		t.Errorf("Expected completed task, got %+v", done)
	}
	if len(f.outbox.msgs) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(f.outbox.msgs))
	}
	for _, m := range f.outbox.msgs {
		if m.Subject != SubjectCompleted || m.Body != BodyCompleted {
			t.Errorf("Unexpected message: %+v", m)
		}
	}

	// Completing again is accepted and notifies again
	if _, err := f.lc.Complete(ctx, task.ID); err != nil {
		t.Fatalf("Repeat Complete failed: %v", err)
	}
	if len(f.outbox.msgs) != 4 {
		t.Errorf("Expected 4 notifications after repeat, got %d", len(f.outbox.msgs))
	}
}

func TestCompleteSkipsCommentersWithoutEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	f.lc.AddComment(ctx, CommentInput{TaskID: task.ID, AuthorID: "u3", Text: "x"})
	f.lc.AddComment(ctx, CommentInput{TaskID: task.ID, AuthorID: "u2", Text: "y"})
	f.lc.Complete(ctx, task.ID)

	if len(f.outbox.msgs) != 1 || f.outbox.msgs[0].To != "u2@example.com" {
		t.Errorf("Expected one message to u2, got %+v", f.outbox.msgs)
	}
}

func TestEmptyCommentRejectedBeforeStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	for _, text := range []string{"", "   \n\t"} {
		_, err := f.lc.AddComment(ctx, CommentInput{TaskID: task.ID, AuthorID: "u1", Text: text})
		if !errors.Is(err, apperr.ErrEmptyText) {
			t.Errorf("Expected EmptyText for %q, got %v", text, err)
		}
	}
	// Rejected even for a task that does not exist
	if _, err := f.lc.AddComment(ctx, CommentInput{TaskID: "missing", AuthorID: "u1"}); !errors.Is(err, apperr.ErrEmptyText) {
		t.Errorf("Expected EmptyText, got %v", err)
	}

	comments, _ := f.store.ListComments(ctx, task.ID)
	if len(comments) != 0 {
		t.Errorf("Expected no comments persisted, got %d", len(comments))
	}
	if len(f.outbox.msgs) != 0 {
		t.Errorf("Expected no notifications, got %d", len(f.outbox.msgs))
	}
}

func TestCommentNotifiesOwnerOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	if _, err := f.lc.Assign(ctx, AssignInput{TaskID: task.ID, UserID: "u2"}); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	f.outbox.msgs = nil

	c, err := f.lc.AddComment(ctx, CommentInput{TaskID: task.ID, AuthorID: "u1", Text: "please review"})
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if c.Text != "please review" || c.AuthorID != "u1" {
		t.Errorf("Unexpected comment: %+v", c)
	}
	if len(f.outbox.msgs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(f.outbox.msgs))
	}
	m := f.outbox.msgs[0]
	if m.To != "u2@example.com" || m.Subject != SubjectComment || m.Body != "please review" {
		t.Errorf("Unexpected message: %+v", m)
	}

	comments, _ := f.lc.Comments(ctx, task.ID)
	if len(comments) != 1 {
		t.Errorf("Expected 1 comment, got %d", len(comments))
	}
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)
	f.lc.Transition(ctx, task.ID, models.TaskStatusInProgress)

	got, err := f.lc.Assign(ctx, AssignInput{TaskID: task.ID, UserID: "u2"})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if got.OwnerID != "u2" || got.Status != models.TaskStatusInProgress {
		t.Errorf("Unexpected task after assign: %+v", got)
	}
	if len(f.outbox.msgs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(f.outbox.msgs))
	}
	if want := "Task with id " + task.ID + " is assigned to you"; f.outbox.msgs[0].Body != want || f.outbox.msgs[0].Subject != SubjectAssigned {
		t.Errorf("Unexpected message: %+v", f.outbox.msgs[0])
	}

	if _, err := f.lc.Assign(ctx, AssignInput{TaskID: task.ID, UserID: "ghost"}); !errors.Is(err, apperr.ErrUserNotFound) {
		t.Errorf("Expected UserNotFound, got %v", err)
	}
	if _, err := f.lc.Assign(ctx, AssignInput{TaskID: "missing", UserID: "u2"}); !errors.Is(err, apperr.ErrTaskNotFound) {
		t.Errorf("Expected TaskNotFound, got %v", err)
	}
	if _, err := f.lc.Assign(ctx, AssignInput{TaskID: task.ID}); !errors.Is(err, apperr.Validation) {
		t.Errorf("Expected Validation, got %v", err)
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name  string
		path  []models.TaskStatus
		to    models.TaskStatus
		allow bool
	}{
		{"open to in progress", nil, models.TaskStatusInProgress, true},
		{"in progress back to open", []models.TaskStatus{models.TaskStatusInProgress}, models.TaskStatusOpen, true},
		{"open to canceled", nil, models.TaskStatusCanceled, true},
		{"in progress to archived", []models.TaskStatus{models.TaskStatusInProgress}, models.TaskStatusArchived, true},
		{"canceled is terminal", []models.TaskStatus{models.TaskStatusCanceled}, models.TaskStatusOpen, false},
		{"archived cannot complete", []models.TaskStatus{models.TaskStatusArchived}, models.TaskStatusCompleted, false},
		{"completed cannot reopen", []models.TaskStatus{models.TaskStatusCompleted}, models.TaskStatusInProgress, false},
		{"open to open", nil, models.TaskStatusOpen, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			task := f.createTask(t)
			for _, s := range tt.path {
				if _, err := f.lc.Transition(ctx, task.ID, s); err != nil {
					t.Fatalf("setup transition to %s failed: %v", s, err)
				}
			}

			got, err := f.lc.Transition(ctx, task.ID, tt.to)
			if tt.allow {
				if err != nil {
					t.Fatalf("Transition failed: %v", err)
				}
				if got.Status != tt.to || got.Completed != (tt.to == models.TaskStatusCompleted) {
					t.Errorf("Unexpected task: %+v", got)
				}
				return
			}
			if !errors.Is(err, apperr.InvalidState) || !errors.Is(err, apperr.ErrInvalidTransition) {
				t.Errorf("Expected InvalidTransition, got %v", err)
			}
		})
	}
}

func TestTransitionUnknownStatus(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t)

	if _, err := f.lc.Transition(context.Background(), task.ID, "DONE"); !errors.Is(err, apperr.Validation) {
		t.Errorf("Expected Validation, got %v", err)
	}
	if _, err := f.lc.Complete(context.Background(), "missing"); !errors.Is(err, apperr.ErrTaskNotFound) {
		t.Errorf("Expected TaskNotFound, got %v", err)
	}
}

func TestNotifierFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)
	f.lc.Assign(ctx, AssignInput{TaskID: task.ID, UserID: "u2"})

	f.outbox.err = errors.New("mail server down")
	c, err := f.lc.AddComment(ctx, CommentInput{TaskID: task.ID, AuthorID: "u1", Text: "still here"})
	if err != nil {
		t.Fatalf("AddComment must succeed when notification fails: %v", err)
	}

	comments, _ := f.store.ListComments(ctx, task.ID)
	if len(comments) != 1 || comments[0].ID != c.ID {
		t.Errorf("Comment should be persisted, got %+v", comments)
	}
	entry := f.hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel || entry.Data["event"] != string(EventCommentAdded) {
		t.Errorf("Expected a logged hook failure, got %+v", entry)
	}
}

func TestUpdateListSearchDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)
	f.lc.Create(ctx, CreateTaskInput{Title: "Write docs"})

	desc := "with changelog"
	got, err := f.lc.Update(ctx, UpdateTaskInput{TaskID: task.ID, Description: &desc})
	if err != nil || got.Description != desc {
		t.Fatalf("Update: %v %+v", err, got)
	}
	if _, err := f.lc.Update(ctx, UpdateTaskInput{TaskID: task.ID}); !errors.Is(err, apperr.Validation) {
		t.Errorf("Expected Validation for empty update, got %v", err)
	}

	hits, err := f.lc.Search(ctx, "SHIP")
	if err != nil || len(hits) != 1 || hits[0].ID != task.ID {
		t.Errorf("Search: %v %+v", err, hits)
	}
	if all, err := f.lc.Search(ctx, " "); err != nil || len(all) != 2 {
		t.Errorf("Blank query should match every task, got %d %v", len(all), err)
	}

	open, _ := f.lc.List(ctx, ListFilter{Status: models.TaskStatusOpen})
	if len(open) != 2 {
		t.Errorf("Expected 2 open tasks, got %d", len(open))
	}
	if _, err := f.lc.List(ctx, ListFilter{Status: "bogus"}); !errors.Is(err, apperr.Validation) {
		t.Errorf("Expected Validation for unknown status, got %v", err)
	}

	if err := f.lc.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := f.lc.Get(ctx, task.ID); !errors.Is(err, apperr.NotFound) {
		t.Errorf("Expected NotFound after delete, got %v", err)
	}
	if _, err := f.lc.Comments(ctx, task.ID); !errors.Is(err, apperr.NotFound) {
		t.Errorf("Expected NotFound for comments of deleted task, got %v", err)
	}
}

func TestAuditHook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clk := clock.NewManual(t0)
	f.lc.Use(AuditHook(audit.NewRecorder(f.store, clk)))

	task := f.createTask(t)
	clk.Advance(time.Second)
	f.lc.Transition(ctx, task.ID, models.TaskStatusInProgress)
	clk.Advance(time.Second)
	f.lc.Complete(ctx, task.ID)

	entries, err := f.store.ListAudit(ctx, task.ID)
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 audit entries, got %d", len(entries))
	}
	if entries[2].Action != string(EventTaskCompleted) || entries[2].Details != "IN_PROGRESS -> COMPLETED" {
		t.Errorf("Unexpected entry: %+v", entries[2])
	}
}

func TestMessages(t *testing.T) {
	ev := Event{Kind: EventTaskDeleted, TaskID: "t1", Recipients: []models.User{{ID: "u1", Email: "a@b"}}}
	if len(Messages(ev)) != 0 {
		t.Error("Deletion sends no notifications")
	}
	ev = Event{Kind: EventCommentAdded, TaskID: "t1", Recipients: []models.User{{ID: "u1", Email: "a@b"}}}
	if len(Messages(ev)) != 0 {
		t.Error("Comment events without a comment send nothing")
	}
}

// lockedStore fails every AssignTask with a lock error.
type lockedStore struct {
	Store
	calls int
}

func (s *lockedStore) AssignTask(ctx context.Context, taskID, userID string, now time.Time) (*models.Task, *models.User, error) {
	s.calls++
	return nil, nil, errors.New("database is locked")
}

func TestAssignRetriesOnce(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ls := &lockedStore{}
	lc := New(ls, clock.NewManual(t0), logger)

	_, err := lc.Assign(context.Background(), AssignInput{TaskID: "t1", UserID: "u1"})
	if !errors.Is(err, apperr.ErrConcurrentUpdate) {
		t.Errorf("Expected ErrConcurrentUpdate, got %v", err)
	}
	if ls.calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", ls.calls)
	}
}
