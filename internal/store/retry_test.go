package store

import (
	"errors"
	"testing"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/lib/pq"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("sqlite: step: SQLITE_BUSY"), true},
		{&pq.Error{Code: "40001"}, true},
		{&pq.Error{Code: "40P01"}, true},
		{&pq.Error{Code: "23505"}, false},
		{apperr.ErrTaskNotFound, false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRetryOnce(t *testing.T) {
	locked := errors.New("database is locked")

	calls := 0
	v, err := RetryOnce(func() (int, error) {
		calls++
		if calls == 1 {
			return 0, locked
		}
		return 42, nil
	})
	if err != nil || v != 42 || calls != 2 {
		t.Errorf("Expected success on retry, got %d %v after %d calls", v, err, calls)
	}

	calls = 0
	_, err = RetryOnce(func() (int, error) {
		calls++
		return 0, locked
	})
	if !errors.Is(err, apperr.ErrConcurrentUpdate) || calls != 2 {
		t.Errorf("Expected ErrConcurrentUpdate after 2 calls, got %v after %d", err, calls)
	}

	calls = 0
	_, err = RetryOnce(func() (int, error) {
		calls++
		return 0, apperr.ErrNoRunningTimer
	})
	if !errors.Is(err, apperr.ErrNoRunningTimer) || calls != 1 {
		t.Errorf("Non-transient errors must not be retried, got %v after %d", err, calls)
	}
}
