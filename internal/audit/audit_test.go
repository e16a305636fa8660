package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/taskclock/internal/clock"
	"github.com/fentz26/taskclock/internal/store"
)

func TestRecord(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	task, _ := s.CreateTask(ctx, "T", "", "u1", now)

	r := NewRecorder(s, clock.NewManual(now))
	inputs := map[string]string{"task_id": task.ID, "user_id": "u1"}
	entry, err := r.Record(ctx, "timer.start", inputs, OutcomeSuccess, task.ID, "started")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if entry.InputsHash != HashInputs(inputs) {
		t.Errorf("Unexpected hash %s", entry.InputsHash)
	}
	if !entry.Timestamp.Equal(now) {
		t.Errorf("Expected timestamp from clock, got %v", entry.Timestamp)
	}

	entries, _ := s.ListAudit(ctx, task.ID)
	if len(entries) != 1 || entries[0].Action != "timer.start" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}

func TestHashInputs(t *testing.T) {
	a := HashInputs(map[string]int{"a": 1, "b": 2})
	b := HashInputs(map[string]int{"b": 2, "a": 1})
	if a != b {
		t.Error("Hash should not depend on map order")
	}
	if len(a) != 64 {
		t.Errorf("Expected hex sha256, got %q", a)
	}
	if HashInputs(func() {}) != "hash_error" {
		t.Error("Unencodable inputs should yield hash_error")
	}
}
