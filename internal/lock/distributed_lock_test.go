package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Varun5711/shortbox/internal/logger"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping lock test. Set INTEGRATION_TEST=true to run")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get endpoint: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestDistributedLock_SingleHolder(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	first := NewDistributedLock(rdb, "lock:test", time.Minute)
	second := NewDistributedLock(rdb, "lock:test", time.Minute)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got %v, %v", ok, err)
	}
	if ok, err := second.Acquire(ctx); err != nil || ok {
		t.Fatalf("expected second acquire to fail, got %v, %v", ok, err)
	}

	if err := second.Release(ctx); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("expected non-holder release to fail, got %v", err)
	}
	if err := first.Extend(ctx); err != nil {
		t.Errorf("expected holder to extend, got %v", err)
	}
	if err := first.Release(ctx); err != nil {
		t.Errorf("expected holder release to succeed, got %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Error("expected lock to be free after release")
	}
}

func TestDistributedLock_Run(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	holder := NewDistributedLock(rdb, "lock:run", time.Minute)
	other := NewDistributedLock(rdb, "lock:run", time.Minute)

	err := holder.Run(ctx, func(ctx context.Context) error {
		if err := other.Run(ctx, func(context.Context) error { return nil }); !errors.Is(err, ErrLockNotAcquired) {
			t.Errorf("expected nested run to be refused, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ran := false
	if err := other.Run(ctx, func(context.Context) error { ran = true; return nil }); err != nil || !ran {
		t.Errorf("expected lock released after run, got ran=%v err=%v", ran, err)
	}
}

func TestDistributedLock_RunLogsLostLock(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "lock.log")
	t.Setenv("LOG_FILE", path)
	log := logger.New("lock-test")

	l := NewDistributedLock(rdb, "lock:lost", time.Minute, WithLogger(log))
	err := l.Run(ctx, func(ctx context.Context) error {
		// Another holder took over after our TTL ran out.
		return rdb.Set(ctx, "lock:lost", "someone-else", time.Minute).Err()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "Failed to release lock lock:lost") {
		t.Errorf("expected release failure to be logged, got %q", data)
	}
	if v, _ := rdb.Get(ctx, "lock:lost").Result(); v != "someone-else" {
		t.Errorf("release must not delete another holder's lock, got %q", v)
	}
}
