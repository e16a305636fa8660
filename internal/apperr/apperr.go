// Package apperr defines the error kinds surfaced by taskclock operations.
//
// Every failure returned from the lifecycle, timer and aggregation layers is
// either one of the kinds below (possibly wrapped) or an infrastructure error.
// Callers classify with errors.Is(err, apperr.NotFound) or KindOf(err).
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds.
var (
	NotFound     = errors.New("not found")
	Conflict     = errors.New("conflict")
	InvalidState = errors.New("invalid state")
	Validation   = errors.New("validation failed")
)

// Named failures.
var (
	ErrTaskNotFound    = &Error{Kind: NotFound, Msg: "task not found"}
	ErrUserNotFound    = &Error{Kind: NotFound, Msg: "user not found"}
	ErrTimeLogNotFound = &Error{Kind: NotFound, Msg: "time log not found"}

	ErrTimerAlreadyRunning = &Error{Kind: Conflict, Msg: "timer already running"}
	ErrConcurrentUpdate    = &Error{Kind: Conflict, Msg: "concurrent update, try again"}

	ErrNoRunningTimer    = &Error{Kind: InvalidState, Msg: "no running timer"}
	ErrInvalidTimeRange  = &Error{Kind: InvalidState, Msg: "finish time is before start time"}
	ErrInvalidTransition = &Error{Kind: InvalidState, Msg: "status transition not allowed"}

	ErrEmptyText = &Error{Kind: Validation, Msg: "text must not be empty", Fields: map[string]string{"text": "missed value"}}
)

// Error is an inspectable failure of a known kind.
type Error struct {
	Kind   error
	Msg    string
	Fields map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	if len(e.Fields) == 0 {
		return e.Msg
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s (%s)", e.Msg, strings.Join(parts, ", "))
}

func (e *Error) Unwrap() error { return e.Kind }

// Is matches another *Error of the same kind and message, so a sentinel
// still matches after fields were attached to a copy of it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Msg == e.Msg
}

// Invalid builds a Validation error from per-field messages.
// It returns nil when fields is empty so callers can return it directly.
func Invalid(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{Kind: Validation, Msg: "invalid input", Fields: fields}
}

// Invalidf builds a Validation error with a formatted message.
func Invalidf(format string, args ...any) error {
	return &Error{Kind: Validation, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or nil for infrastructure errors.
func KindOf(err error) error {
	for _, k := range []error{NotFound, Conflict, InvalidState, Validation} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// FieldsOf returns the per-field messages carried by err, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
