package service

import (
	"errors"
	"fmt"

	"github.com/Varun5711/shortbox/internal/validation"
)

// ValidationError reports the first invalid field of a creation request.
type ValidationError = validation.Error

var (
	ErrValidation = validation.ErrInvalid

	// ErrDuplicateCustomCode is returned when a user-chosen redirect code is
	// already taken. Custom codes are never retried.
	ErrDuplicateCustomCode = errors.New("custom short code already in use")

	// ErrAllocationExhausted means every generated candidate collided. It is
	// transient; the caller may try again.
	ErrAllocationExhausted = errors.New("could not allocate a unique short code")

	ErrStore = errors.New("store failure")
)

// StoreError wraps any persistence failure other than a short-code
// collision. errors.Is(err, ErrStore) holds for it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}
