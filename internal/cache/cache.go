package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/Varun5711/shortbox/internal/dispatch"
	"github.com/Varun5711/shortbox/internal/expiry"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/metrics"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/shortcode"
)

const keyPrefix = "shortbox:"

type Config struct {
	L1Capacity int
	L1TTL      time.Duration
	L2TTL      time.Duration
}

// LookupCache is a read-through cache in front of a dispatch.Lookup. L1 is
// an in-process expirable LRU, L2 an optional redis. Only active entries are
// cached and every hit is checked against the caller's now again.
type LookupCache struct {
	next    dispatch.Lookup
	l1      *expirable.LRU[string, any]
	l2      *redis.Client
	l2TTL   time.Duration
	metrics *metrics.Metrics
	log     *logger.Logger
}

var _ dispatch.Lookup = (*LookupCache)(nil)

// NewLookupCache wraps next. rdb may be nil to run with L1 only.
func NewLookupCache(next dispatch.Lookup, rdb *redis.Client, cfg Config, m *metrics.Metrics, log *logger.Logger) *LookupCache {
	if cfg.L1Capacity <= 0 {
		cfg.L1Capacity = 10000
	}
	if log == nil {
		log = logger.Nop()
	}

	return &LookupCache{
		next:    next,
		l1:      expirable.NewLRU[string, any](cfg.L1Capacity, nil, cfg.L1TTL),
		l2:      rdb,
		l2TTL:   cfg.L2TTL,
		metrics: m,
		log:     log,
	}
}

func (c *LookupCache) FindActiveRedirect(ctx context.Context, code string, now time.Time) (*models.RedirectEntry, error) {
	return read(ctx, c, cacheKey(models.KindRedirect, code), now,
		func(e *models.RedirectEntry) *time.Time { return e.ExpiresAt },
		func() (*models.RedirectEntry, error) { return c.next.FindActiveRedirect(ctx, code, now) },
	)
}

func (c *LookupCache) FindActiveList(ctx context.Context, code string, now time.Time) (*models.LinkList, error) {
	return read(ctx, c, cacheKey(models.KindList, code), now,
		func(l *models.LinkList) *time.Time { return l.ExpiresAt },
		func() (*models.LinkList, error) { return c.next.FindActiveList(ctx, code, now) },
	)
}

func (c *LookupCache) FindActiveClip(ctx context.Context, code string, now time.Time) (*models.ClipboardEntry, error) {
	return read(ctx, c, cacheKey(models.KindClip, code), now,
		func(e *models.ClipboardEntry) *time.Time { return e.ExpiresAt },
		func() (*models.ClipboardEntry, error) { return c.next.FindActiveClip(ctx, code, now) },
	)
}

// Len reports the number of L1 entries.
func (c *LookupCache) Len() int {
	return c.l1.Len()
}

func read[T any](ctx context.Context, c *LookupCache, key string, now time.Time, expiresAt func(*T) *time.Time, fetch func() (*T, error)) (*T, error) {
	if v, ok := c.l1.Get(key); ok {
		if entity, ok := v.(*T); ok && !expiry.IsExpired(expiresAt(entity), now) {
			c.metrics.CacheLookup("l1", true)
			return clone(entity), nil
		}
		c.l1.Remove(key)
	}
	c.metrics.CacheLookup("l1", false)

	if c.l2 != nil {
		entity, err := readL2[T](ctx, c.l2, key)
		switch {
		case err != nil:
			c.log.Warn("L2 cache read failed for %s: %v", key, err)
		case entity != nil && !expiry.IsExpired(expiresAt(entity), now):
			c.metrics.CacheLookup("l2", true)
			c.l1.Add(key, entity)
			return clone(entity), nil
		default:
			c.metrics.CacheLookup("l2", false)
		}
	}

	entity, err := fetch()
	if err != nil {
		return nil, err
	}

	c.l1.Add(key, clone(entity))

	if c.l2 != nil {
		if ttl := c.ttlFor(expiresAt(entity), now); ttl > 0 {
			if err := writeL2(ctx, c.l2, key, entity, ttl); err != nil {
				c.log.Warn("L2 cache write failed for %s: %v", key, err)
			}
		}
	}

	return entity, nil
}

// clone copies entity so callers never share memory with an L1 entry. List
// items are copied too.
func clone[T any](entity *T) *T {
	out := *entity
	if list, ok := any(&out).(*models.LinkList); ok {
		list.Items = append([]models.LinkListItem(nil), list.Items...)
	}
	return &out
}

// ttlFor caps the L2 TTL at the time left before the entry expires.
func (c *LookupCache) ttlFor(expiresAt *time.Time, now time.Time) time.Duration {
	ttl := c.l2TTL
	if expiresAt != nil {
		if left := expiresAt.Sub(now); left < ttl {
			ttl = left
		}
	}
	return ttl
}

func readL2[T any](ctx context.Context, rdb *redis.Client, key string) (*T, error) {
	data, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entity T
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

func writeL2(ctx context.Context, rdb *redis.Client, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, data, ttl).Err()
}

func cacheKey(kind models.Kind, code string) string {
	return keyPrefix + kind.String() + ":" + shortcode.Fold(code)
}
