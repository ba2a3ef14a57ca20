package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Varun5711/shortbox/internal/logger"
)

var (
	ErrLockNotAcquired = errors.New("failed to acquire lock")
	ErrLockNotHeld     = errors.New("lock is not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// DistributedLock is a single-holder SETNX lock. Each instance carries its
// own random token so only the holder can release or extend it.
type DistributedLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
	log    *logger.Logger
}

type Option func(*DistributedLock)

// WithLogger reports release failures from Run.
func WithLogger(log *logger.Logger) Option {
	return func(l *DistributedLock) { l.log = log }
}

func NewDistributedLock(client *redis.Client, key string, ttl time.Duration, opts ...Option) *DistributedLock {
	l := &DistributedLock{
		client: client,
		key:    key,
		value:  uuid.NewString(),
		ttl:    ttl,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	result, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, err
	}
	return result, nil
}

func (l *DistributedLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int64()
	if err != nil {
		return err
	}

	if result == 0 {
		return ErrLockNotHeld
	}

	return nil
}

func (l *DistributedLock) Extend(ctx context.Context) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.value, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}

	if result == 0 {
		return ErrLockNotHeld
	}

	return nil
}

// Run executes fn only if the lock can be taken, and releases it afterwards.
// It returns ErrLockNotAcquired when another holder has it.
func (l *DistributedLock) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	acquired, err := l.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire %s: %w", l.key, err)
	}
	if !acquired {
		return ErrLockNotAcquired
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.Release(releaseCtx); err != nil {
			l.log.Warn("Failed to release lock %s, it stays held for up to %v: %v", l.key, l.ttl, err)
		}
	}()

	return fn(ctx)
}
