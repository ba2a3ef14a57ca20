package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Varun5711/shortbox/internal/metrics"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/storage"
)

const DefaultMaxAttempts = 5

// maxRedraws bounds how often a candidate already proposed in the same
// Allocate call is drawn again before it is used anyway.
const maxRedraws = 32

// CodeSource produces candidate short codes. *idgen.Generator implements it.
type CodeSource interface {
	Generate() string
}

// InsertFunc tries to persist an entity under code. It must return an error
// matching storage.ErrDuplicateShortCode when the code is taken.
type InsertFunc func(ctx context.Context, code string) error

// Allocator pairs a code source with a store insert and retries on
// collision up to maxAttempts times.
type Allocator struct {
	codes       CodeSource
	maxAttempts int
	metrics     *metrics.Metrics
}

func NewAllocator(codes CodeSource, maxAttempts int, m *metrics.Metrics) *Allocator {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{
		codes:       codes,
		maxAttempts: maxAttempts,
		metrics:     m,
	}
}

func (a *Allocator) MaxAttempts() int {
	return a.maxAttempts
}

// Allocate returns the code that was inserted and how many inserts it took.
// Only a short-code collision is retried; any other failure aborts with a
// *StoreError.
func (a *Allocator) Allocate(ctx context.Context, kind models.Kind, insert InsertFunc) (string, int, error) {
	proposed := make(map[string]struct{}, a.maxAttempts)

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", attempt - 1, &StoreError{Op: "allocate " + kind.String(), Err: err}
		}

		code := a.candidate(proposed)
		proposed[code] = struct{}{}

		err := insert(ctx, code)
		switch {
		case err == nil:
			a.metrics.AllocationAttempt(kind.String(), "success")
			return code, attempt, nil
		case errors.Is(err, storage.ErrDuplicateShortCode):
			a.metrics.AllocationAttempt(kind.String(), "collision")
		default:
			a.metrics.AllocationAttempt(kind.String(), "error")
			return "", attempt, &StoreError{Op: "insert " + kind.String(), Err: err}
		}
	}

	a.metrics.AllocationAttempt(kind.String(), "exhausted")
	return "", a.maxAttempts, fmt.Errorf("%s after %d attempts: %w", kind, a.maxAttempts, ErrAllocationExhausted)
}

// AllocateCustom performs exactly one insert under a caller-chosen code.
func (a *Allocator) AllocateCustom(ctx context.Context, kind models.Kind, code string, insert InsertFunc) error {
	err := insert(ctx, code)
	switch {
	case err == nil:
		a.metrics.AllocationAttempt(kind.String(), "success")
		return nil
	case errors.Is(err, storage.ErrDuplicateShortCode):
		a.metrics.AllocationAttempt(kind.String(), "collision")
		return fmt.Errorf("%q: %w", code, ErrDuplicateCustomCode)
	default:
		a.metrics.AllocationAttempt(kind.String(), "error")
		return &StoreError{Op: "insert " + kind.String(), Err: err}
	}
}

func (a *Allocator) candidate(proposed map[string]struct{}) string {
	code := a.codes.Generate()
	for i := 0; i < maxRedraws; i++ {
		if _, seen := proposed[code]; !seen {
			break
		}
		code = a.codes.Generate()
	}
	return code
}
