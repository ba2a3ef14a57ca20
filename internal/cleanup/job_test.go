package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Varun5711/shortbox/internal/lock"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/storage"
)

type heldLock struct{}

func (heldLock) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return lock.ErrLockNotAcquired
}

type freeLock struct{ runs int }

func (l *freeLock) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	l.runs++
	return fn(ctx)
}

type failingStore struct{}

func (failingStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestJobRun(t *testing.T) {
	now := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStorage()
	ctx := context.Background()

	longAgo := now.Add(-48 * time.Hour)
	recently := now.Add(-time.Hour)
	for code, exp := range map[string]*time.Time{"old": &longAgo, "recent": &recently, "forever": nil} {
		if _, err := store.InsertRedirect(ctx, &models.RedirectEntry{ShortCode: code, OriginalURL: "https://example.com", ExpiresAt: exp}); err != nil {
			t.Fatal(err)
		}
	}

	l := &freeLock{}
	job := NewJob(store, l, 24*time.Hour, logger.Nop(), nil)
	job.now = func() time.Time { return now }

	n, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged row, got %d", n)
	}
	if l.runs != 1 {
		t.Errorf("expected purge to run under the lock")
	}

	redirects, _, _, _ := store.Counts()
	if redirects != 2 {
		t.Errorf("expected 2 redirects to survive, got %d", redirects)
	}
}

func TestJobRun_LockHeld(t *testing.T) {
	n, err := NewJob(failingStore{}, heldLock{}, time.Hour, nil, nil).Run(context.Background())
	if err != nil || n != 0 {
		t.Errorf("expected silent skip, got n=%d err=%v", n, err)
	}
}

func TestJobRun_StoreError(t *testing.T) {
	if _, err := NewJob(failingStore{}, nil, time.Hour, nil, nil).Run(context.Background()); err == nil {
		t.Error("expected store error")
	}
}
