package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/models"
)

func minutesSince(now time.Time) func(time.Time) (int, error) {
	return func(start time.Time) (int, error) {
		return int(now.Sub(start) / time.Minute), nil
	}
}

func TestStartAndFinishTimer(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task, _ := s.CreateTask(ctx, "T", "", "u1", t0)

	entry, err := s.StartTimer(ctx, task.ID, "u1", t0)
	if err != nil {
		t.Fatalf("StartTimer failed: %v", err)
	}
	if !entry.Open() {
		t.Error("New entry should be open")
	}

	if _, err := s.StartTimer(ctx, task.ID, "u1", t0); !errors.Is(err, apperr.ErrTimerAlreadyRunning) {
		t.Errorf("Expected ErrTimerAlreadyRunning, got %v", err)
	}
	// Another user may run their own timer on the same task
	if _, err := s.StartTimer(ctx, task.ID, "u2", t0); err != nil {
		t.Errorf("StartTimer for second user failed: %v", err)
	}

	open, err := s.GetOpenTimer(ctx, task.ID, "u1")
	if err != nil || open.ID != entry.ID {
		t.Fatalf("GetOpenTimer: %v %+v", err, open)
	}

	finished, err := s.FinishTimer(ctx, task.ID, "u1", minutesSince(t0.Add(90*time.Second)))
	if err != nil {
		t.Fatalf("FinishTimer failed: %v", err)
	}
	if finished.DurationMinutes == nil || *finished.DurationMinutes != 1 {
		t.Errorf("Expected 1 minute, got %v", finished.DurationMinutes)
	}

	if _, err := s.FinishTimer(ctx, task.ID, "u1", minutesSince(t0)); !errors.Is(err, apperr.ErrNoRunningTimer) {
		t.Errorf("Expected ErrNoRunningTimer, got %v", err)
	}
	if _, err := s.GetOpenTimer(ctx, task.ID, "u1"); !errors.Is(err, apperr.ErrNoRunningTimer) {
		t.Errorf("Expected ErrNoRunningTimer, got %v", err)
	}

	// A new session may start once the previous one is closed
	if _, err := s.StartTimer(ctx, task.ID, "u1", t0.Add(time.Hour)); err != nil {
		t.Errorf("Restart failed: %v", err)
	}
}

func TestOpenTimerUniqueIndex(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task, _ := s.CreateTask(ctx, "T", "", "u1", t0)
	if _, err := s.StartTimer(ctx, task.ID, "u1", t0); err != nil {
		t.Fatalf("StartTimer failed: %v", err)
	}

	// A second open row written without the in-transaction check must still
	// be rejected by the index.
	dup := &models.TimeLogEntry{ID: "dup", TaskID: task.ID, UserID: "u1", StartedAt: t0.Add(time.Minute)}
	if err := s.insertOpenTimer(ctx, s.db, dup); !errors.Is(err, apperr.ErrTimerAlreadyRunning) {
		t.Errorf("Expected ErrTimerAlreadyRunning from the index, got %v", err)
	}

	// Other users and finished rows are not constrained
	other := &models.TimeLogEntry{ID: "other", TaskID: task.ID, UserID: "u2", StartedAt: t0}
	if err := s.insertOpenTimer(ctx, s.db, other); err != nil {
		t.Errorf("Open timer for another user should be allowed: %v", err)
	}
	if _, err := s.FinishTimer(ctx, task.ID, "u1", minutesSince(t0.Add(time.Hour))); err != nil {
		t.Fatalf("FinishTimer failed: %v", err)
	}
	if err := s.insertOpenTimer(ctx, s.db, dup); err != nil {
		t.Errorf("Open timer after finish should be allowed: %v", err)
	}
}

func TestFinishTimerComputeError(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task, _ := s.CreateTask(ctx, "T", "", "u1", t0)
	s.StartTimer(ctx, task.ID, "u1", t0)

	_, err := s.FinishTimer(ctx, task.ID, "u1", func(time.Time) (int, error) {
		return 0, apperr.ErrInvalidTimeRange
	})
	if !errors.Is(err, apperr.ErrInvalidTimeRange) {
		t.Errorf("Expected ErrInvalidTimeRange, got %v", err)
	}
	if _, err := s.GetOpenTimer(ctx, task.ID, "u1"); err != nil {
		t.Errorf("Entry should still be open: %v", err)
	}
}

func TestStartTimerUnknownTask(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.StartTimer(context.Background(), "missing", "u1", t0); !errors.Is(err, apperr.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestLogTimeAndTotals(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	a, _ := s.CreateTask(ctx, "A", "", "u1", t0)
	b, _ := s.CreateTask(ctx, "B", "", "u1", t0)

	s.LogTime(ctx, a.ID, "u1", t0, 30)
	s.LogTime(ctx, a.ID, "u1", t0.Add(time.Hour), 45)
	s.LogTime(ctx, b.ID, "u2", t0, 10)
	// Open entries are not counted
	s.StartTimer(ctx, a.ID, "u1", t0)

	total, err := s.SumDurationForTask(ctx, a.ID)
	if err != nil {
		t.Fatalf("SumDurationForTask failed: %v", err)
	}
	if total != 75 {
		t.Errorf("Expected 75, got %d", total)
	}
	if total, _ := s.SumDurationForTask(ctx, "none"); total != 0 {
		t.Errorf("Expected 0 for a task without entries, got %d", total)
	}

	totals, err := s.TaskTotals(ctx)
	if err != nil {
		t.Fatalf("TaskTotals failed: %v", err)
	}
	got := map[string]int{}
	for _, tt := range totals {
		got[tt.Title] = tt.TotalMinutes
	}
	if len(got) != 2 || got["A"] != 75 || got["B"] != 10 {
		t.Errorf("Unexpected totals: %+v", totals)
	}
}

func TestSumDurationForUserBetween(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task, _ := s.CreateTask(ctx, "T", "", "u1", t0)
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s.LogTime(ctx, task.ID, "u1", from, 20)                    // first instant, included
	s.LogTime(ctx, task.ID, "u1", to.Add(-time.Nanosecond), 5) // last instant, included
	s.LogTime(ctx, task.ID, "u1", to, 100)                     // excluded
	s.LogTime(ctx, task.ID, "u2", from, 7)                     // other user

	total, err := s.SumDurationForUserBetween(ctx, "u1", from, to)
	if err != nil {
		t.Fatalf("SumDurationForUserBetween failed: %v", err)
	}
	if total != 25 {
		t.Errorf("Expected 25, got %d", total)
	}
}
