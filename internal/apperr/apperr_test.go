package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrTaskNotFound, NotFound},
		{ErrUserNotFound, NotFound},
		{ErrTimerAlreadyRunning, Conflict},
		{ErrConcurrentUpdate, Conflict},
		{ErrNoRunningTimer, InvalidState},
		{ErrInvalidTimeRange, InvalidState},
		{ErrInvalidTransition, InvalidState},
		{ErrEmptyText, Validation},
		{fmt.Errorf("start timer: %w", ErrTimerAlreadyRunning), Conflict},
		{errors.New("disk I/O error"), nil},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.kind {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.kind)
		}
	}
}

func TestIsMatchesSentinelCopies(t *testing.T) {
	withFields := &Error{Kind: InvalidState, Msg: ErrInvalidTransition.Msg, Fields: map[string]string{"from": "CANCELED"}}
	if !errors.Is(withFields, ErrInvalidTransition) {
		t.Error("Copy with fields should match its sentinel")
	}
	if errors.Is(ErrTaskNotFound, ErrUserNotFound) {
		t.Error("Different sentinels of one kind must not match")
	}
}

func TestInvalid(t *testing.T) {
	if Invalid(nil) != nil {
		t.Error("Empty fields should yield nil")
	}
	err := Invalid(map[string]string{"title": "missed value", "b": "x"})
	if !errors.Is(err, Validation) {
		t.Errorf("Expected Validation kind, got %v", err)
	}
	if err.Error() != "invalid input (b: x, title: missed value)" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if FieldsOf(err)["title"] != "missed value" {
		t.Errorf("Unexpected fields %v", FieldsOf(err))
	}
	if FieldsOf(errors.New("x")) != nil {
		t.Error("Plain errors carry no fields")
	}
}
