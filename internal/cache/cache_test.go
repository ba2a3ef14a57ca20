package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/storage"
)

var base = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// countingStore counts lookups that reach the backing store.
type countingStore struct {
	*storage.MemoryStorage
	redirects int
	lists     int
}

func (s *countingStore) FindActiveRedirect(ctx context.Context, code string, now time.Time) (*models.RedirectEntry, error) {
	s.redirects++
	return s.MemoryStorage.FindActiveRedirect(ctx, code, now)
}

func (s *countingStore) FindActiveList(ctx context.Context, code string, now time.Time) (*models.LinkList, error) {
	s.lists++
	return s.MemoryStorage.FindActiveList(ctx, code, now)
}

func newCountingStore(t *testing.T) *countingStore {
	t.Helper()
	ctx := context.Background()
	store := &countingStore{MemoryStorage: storage.NewMemoryStorage()}
	soon := base.Add(10 * time.Second)

	if _, err := store.InsertRedirect(ctx, &models.RedirectEntry{ShortCode: "abcdef", OriginalURL: "https://example.com"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := store.InsertRedirect(ctx, &models.RedirectEntry{ShortCode: "soon01", OriginalURL: "https://soon.example", ExpiresAt: &soon}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := store.InsertListWithItems(ctx, &models.LinkList{ShortCode: "lst001"}, []models.LinkListItem{{URL: "https://a.com"}}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return store
}

func TestLookupCache_L1HitIsCaseInsensitive(t *testing.T) {
	store := newCountingStore(t)
	c := NewLookupCache(store, nil, Config{L1Capacity: 10, L1TTL: time.Minute}, nil, nil)
	ctx := context.Background()

	for _, code := range []string{"abcdef", "ABCDEF", "AbCdEf"} {
		got, err := c.FindActiveRedirect(ctx, code, base)
		if err != nil {
			t.Fatalf("lookup %q failed: %v", code, err)
		}
		if got.OriginalURL != "https://example.com" {
			t.Errorf("unexpected url %q", got.OriginalURL)
		}
	}

	if store.redirects != 1 {
		t.Errorf("expected a single store lookup, got %d", store.redirects)
	}
}

func TestLookupCache_RechecksExpirationOnHit(t *testing.T) {
	store := newCountingStore(t)
	c := NewLookupCache(store, nil, Config{L1Capacity: 10, L1TTL: time.Hour}, nil, nil)
	ctx := context.Background()

	if _, err := c.FindActiveRedirect(ctx, "soon01", base); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}

	_, err := c.FindActiveRedirect(ctx, "soon01", base.Add(10*time.Second))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected cached entry to expire, got %v", err)
	}
	if store.redirects != 2 {
		t.Errorf("expected expired hit to fall through to the store, got %d lookups", store.redirects)
	}
}

func TestLookupCache_MissesAreNotCached(t *testing.T) {
	store := newCountingStore(t)
	c := NewLookupCache(store, nil, Config{L1Capacity: 10, L1TTL: time.Minute}, nil, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.FindActiveRedirect(ctx, "nothere", base); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}

	if store.redirects != 2 {
		t.Errorf("expected every miss to reach the store, got %d", store.redirects)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestLookupCache_NamespacesDoNotCollide(t *testing.T) {
	store := newCountingStore(t)
	c := NewLookupCache(store, nil, Config{L1Capacity: 10, L1TTL: time.Minute}, nil, nil)
	ctx := context.Background()

	if _, err := c.FindActiveList(ctx, "lst001", base); err != nil {
		t.Fatalf("list lookup failed: %v", err)
	}
	if _, err := c.FindActiveRedirect(ctx, "lst001", base); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected list entry not to answer a redirect lookup, got %v", err)
	}
}

func TestLookupCache_ReturnsCopies(t *testing.T) {
	store := newCountingStore(t)
	c := NewLookupCache(store, nil, Config{L1Capacity: 10, L1TTL: time.Minute}, nil, nil)
	ctx := context.Background()

	first, _ := c.FindActiveRedirect(ctx, "abcdef", base)
	first.OriginalURL = "https://mutated.example"

	second, _ := c.FindActiveRedirect(ctx, "abcdef", base)
	if second.OriginalURL != "https://example.com" {
		t.Errorf("expected cached value isolated from callers, got %q", second.OriginalURL)
	}
}

func TestLookupCache_ListItemsAreCopied(t *testing.T) {
	store := newCountingStore(t)
	c := NewLookupCache(store, nil, Config{L1Capacity: 10, L1TTL: time.Minute}, nil, nil)
	ctx := context.Background()

	first, err := c.FindActiveList(ctx, "lst001", base)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	first.Items[0].URL = "https://mutated.example"

	second, err := c.FindActiveList(ctx, "lst001", base)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if second.Items[0].URL != "https://a.com" {
		t.Fatalf("fetched list shares items with the cache: %q", second.Items[0].URL)
	}
	second.Items[0].URL = "https://mutated-again.example"

	third, _ := c.FindActiveList(ctx, "lst001", base)
	if third.Items[0].URL != "https://a.com" {
		t.Errorf("cached list shares items with callers: %q", third.Items[0].URL)
	}
	if store.lists != 1 {
		t.Errorf("expected a single store lookup, got %d", store.lists)
	}
}

func TestTTLFor(t *testing.T) {
	c := &LookupCache{l2TTL: time.Hour}
	soon := base.Add(5 * time.Minute)
	past := base.Add(-time.Second)

	if got := c.ttlFor(nil, base); got != time.Hour {
		t.Errorf("lifetime entry: expected 1h, got %v", got)
	}
	if got := c.ttlFor(&soon, base); got != 5*time.Minute {
		t.Errorf("expiring entry: expected 5m, got %v", got)
	}
	if got := c.ttlFor(&past, base); got > 0 {
		t.Errorf("expired entry: expected non-positive ttl, got %v", got)
	}
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping redis cache test. Set INTEGRATION_TEST=true to run")
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
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestLookupCache_L2(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	store := newCountingStore(t)

	warm := NewLookupCache(store, rdb, Config{L1Capacity: 10, L1TTL: time.Minute, L2TTL: time.Hour}, nil, nil)
	if _, err := warm.FindActiveList(ctx, "lst001", base); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}

	ttl, err := rdb.TTL(ctx, cacheKey(models.KindList, "lst001")).Result()
	if err != nil || ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected L2 entry with ttl up to 1h, got %v (%v)", ttl, err)
	}

	// A second process with a cold L1 is served from redis.
	cold := NewLookupCache(store, rdb, Config{L1Capacity: 10, L1TTL: time.Minute, L2TTL: time.Hour}, nil, nil)
	got, err := cold.FindActiveList(ctx, "LST001", base)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].URL != "https://a.com" {
		t.Errorf("unexpected items from L2: %+v", got.Items)
	}
	if store.lists != 1 {
		t.Errorf("expected one store lookup across both caches, got %d", store.lists)
	}

	// The L2 TTL never outlives the entry.
	if _, err := warm.FindActiveRedirect(ctx, "soon01", base); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	ttl, err = rdb.TTL(ctx, cacheKey(models.KindRedirect, "soon01")).Result()
	if err != nil || ttl > 10*time.Second {
		t.Errorf("expected ttl capped at 10s, got %v (%v)", ttl, err)
	}
}
