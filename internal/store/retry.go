package store

import (
	"fmt"

	"github.com/fentz26/taskclock/internal/apperr"
)

// RetryOnce runs fn and repeats it once when the first attempt fails with a
// transient error. A second transient failure is reported as
// apperr.ErrConcurrentUpdate.
func RetryOnce[T any](fn func() (T, error)) (T, error) {
	v, err := fn()
	if !IsTransient(err) {
		return v, err
	}
	v, err = fn()
	if IsTransient(err) {
		var zero T
		return zero, fmt.Errorf("%w: %v", apperr.ErrConcurrentUpdate, err)
	}
	return v, err
}
