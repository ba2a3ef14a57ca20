package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/shortbox/internal/lock"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/metrics"
)

type Purger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// Locker guards a run so only one worker purges at a time.
type Locker interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Job deletes rows that expired more than Grace ago. Entries inside the grace
// window are already invisible to lookups; they are only kept so a purge
// never races a request that resolved just before expiry.
type Job struct {
	store   Purger
	lock    Locker
	grace   time.Duration
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewJob builds a job. lock may be nil when only one worker runs.
func NewJob(store Purger, lock Locker, grace time.Duration, log *logger.Logger, m *metrics.Metrics) *Job {
	if log == nil {
		log = logger.Nop()
	}
	return &Job{
		store:   store,
		lock:    lock,
		grace:   grace,
		now:     time.Now,
		log:     log,
		metrics: m,
	}
}

// Run purges once. It returns the number of rows deleted; a run skipped
// because another worker holds the lock deletes nothing and is not an error.
func (j *Job) Run(ctx context.Context) (int64, error) {
	var deleted int64
	purge := func(ctx context.Context) error {
		before := j.now().UTC().Add(-j.grace)
		n, err := j.store.PurgeExpired(ctx, before)
		if err != nil {
			return fmt.Errorf("failed to purge expired entries: %w", err)
		}
		deleted = n
		return nil
	}

	var err error
	if j.lock != nil {
		err = j.lock.Run(ctx, purge)
	} else {
		err = purge(ctx)
	}

	if errors.Is(err, lock.ErrLockNotAcquired) {
		j.log.Info("Cleanup already running elsewhere, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	j.metrics.Purged(deleted)
	if deleted > 0 {
		j.log.Info("Deleted %d expired entries", deleted)
	} else {
		j.log.Info("No expired entries found")
	}

	return deleted, nil
}
