package timer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/audit"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/fentz26/taskclock/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var t0 = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

func newTestController(t *testing.T) (*Controller, *store.Store, string) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "timer.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	task, err := s.CreateTask(context.Background(), "T", "", "u1", t0)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	logger, _ := test.NewNullLogger()
	return New(s, audit.NewRecorder(s, nil), logger), s, task.ID
}

func TestStartFinish(t *testing.T) {
	c, s, taskID := newTestController(t)
	ctx := context.Background()

	id, err := c.Start(ctx, taskID, "u1", t0)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if id == "" {
		t.Error("Entry id should not be empty")
	}

	minutes, err := c.Finish(ctx, taskID, "u1", t0.Add(90*time.Second))
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if minutes != 1 {
		t.Errorf("Expected 1 minute for 90s, got %d", minutes)
	}

	entries, _ := s.ListAudit(ctx, taskID)
	if len(entries) != 2 {
		t.Errorf("Expected 2 audit entries, got %d", len(entries))
	}
}

func TestStartTwiceConflicts(t *testing.T) {
	c, _, taskID := newTestController(t)
	ctx := context.Background()

	c.Start(ctx, taskID, "u1", t0)
	_, err := c.Start(ctx, taskID, "u1", t0.Add(time.Minute))
	if !errors.Is(err, apperr.Conflict) || !errors.Is(err, apperr.ErrTimerAlreadyRunning) {
		t.Errorf("Expected TimerAlreadyRunning conflict, got %v", err)
	}
}

func TestFinishWithoutStart(t *testing.T) {
	c, _, taskID := newTestController(t)

	_, err := c.Finish(context.Background(), taskID, "u1", t0)
	if !errors.Is(err, apperr.InvalidState) || !errors.Is(err, apperr.ErrNoRunningTimer) {
		t.Errorf("Expected NoRunningTimer, got %v", err)
	}
}

func TestStartUnknownTask(t *testing.T) {
	c, _, _ := newTestController(t)

	_, err := c.Start(context.Background(), "missing", "u1", t0)
	if !errors.Is(err, apperr.ErrTaskNotFound) {
		t.Errorf("Expected TaskNotFound, got %v", err)
	}
}

func TestFinishBeforeStart(t *testing.T) {
	c, s, taskID := newTestController(t)
	ctx := context.Background()

	c.Start(ctx, taskID, "u1", t0)
	_, err := c.Finish(ctx, taskID, "u1", t0.Add(-time.Second))
	if !errors.Is(err, apperr.ErrInvalidTimeRange) {
		t.Errorf("Expected InvalidTimeRange, got %v", err)
	}
	if _, err := s.GetOpenTimer(ctx, taskID, "u1"); err != nil {
		t.Errorf("Timer should still be running: %v", err)
	}
}

func TestMinutes(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"zero", 0, 0},
		{"59s", 59 * time.Second, 0},
		{"60s", time.Minute, 1},
		{"90s", 90 * time.Second, 1},
		{"2h", 2 * time.Hour, 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Minutes(t0, t0.Add(tt.elapsed))
			if err != nil {
				t.Fatalf("Minutes failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Minutes(%v) = %d, want %d", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestConcurrentStarts(t *testing.T) {
	c, s, taskID := newTestController(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		errs []error
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Start(ctx, taskID, "u1", t0)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				oks++
			} else {
				errs = append(errs, err)
			}
		}()
	}
	wg.Wait()

	if oks != 1 {
		t.Errorf("Expected exactly one successful start, got %d", oks)
	}
	for _, err := range errs {
		if !errors.Is(err, apperr.Conflict) {
			t.Errorf("Expected Conflict, got %v", err)
		}
	}
	logs, _ := s.ListTimeLogs(ctx, taskID)
	if len(logs) != 1 {
		t.Errorf("Expected one entry, got %d", len(logs))
	}
}

func TestLogTimeValidation(t *testing.T) {
	c, _, taskID := newTestController(t)
	ctx := context.Background()

	_, err := c.LogTime(ctx, LogTimeInput{TaskID: taskID, UserID: "u1", StartedAt: t0, Minutes: 0})
	if !errors.Is(err, apperr.Validation) {
		t.Errorf("Expected Validation, got %v", err)
	}
	if f := apperr.FieldsOf(err); f["minutes"] == "" {
		t.Errorf("Expected minutes field error, got %v", f)
	}

	_, err = c.LogTime(ctx, LogTimeInput{TaskID: taskID, UserID: "u1", Minutes: 5})
	if f := apperr.FieldsOf(err); f["started_at"] == "" {
		t.Errorf("Expected started_at field error, got %v", err)
	}

	entry, err := c.LogTime(ctx, LogTimeInput{TaskID: taskID, UserID: "u1", StartedAt: t0, Minutes: 25})
	if err != nil {
		t.Fatalf("LogTime failed: %v", err)
	}
	if entry.DurationMinutes == nil || *entry.DurationMinutes != 25 {
		t.Errorf("Unexpected entry: %+v", entry)
	}

	list, _ := c.List(ctx, taskID)
	if len(list) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(list))
	}
}

// flakyStore fails the first N calls with a lock error.
type flakyStore struct {
	Store
	failures int
	calls    int
}

func (f *flakyStore) StartTimer(ctx context.Context, taskID, userID string, now time.Time) (*models.TimeLogEntry, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("database is locked")
	}
	return &models.TimeLogEntry{ID: "e1", TaskID: taskID, UserID: userID, StartedAt: now}, nil
}

func TestStartRetriesTransientOnce(t *testing.T) {
	logger, _ := test.NewNullLogger()

	fs := &flakyStore{failures: 1}
	c := New(fs, nil, logger)
	id, err := c.Start(context.Background(), "t1", "u1", t0)
	if err != nil || id != "e1" {
		t.Errorf("Expected success after one retry, got %q %v", id, err)
	}
	if fs.calls != 2 {
		t.Errorf("Expected 2 calls, got %d", fs.calls)
	}

	fs = &flakyStore{failures: 2}
	c = New(fs, nil, logger)
	_, err = c.Start(context.Background(), "t1", "u1", t0)
	if !errors.Is(err, apperr.ErrConcurrentUpdate) {
		t.Errorf("Expected ErrConcurrentUpdate, got %v", err)
	}
	if fs.calls != 2 {
		t.Errorf("Expected exactly 2 calls, got %d", fs.calls)
	}
}

type failingAuditor struct{}

func (failingAuditor) Record(context.Context, string, any, string, string, string) (*models.AuditEntry, error) {
	return nil, errors.New("disk full")
}

func TestAuditFailureIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	c := New(&flakyStore{}, failingAuditor{}, logger)

	if _, err := c.Start(context.Background(), "t1", "u1", t0); err != nil {
		t.Fatalf("Audit failure must not fail Start: %v", err)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.WarnLevel {
		t.Errorf("Expected a warning, got %+v", entry)
	}
}
