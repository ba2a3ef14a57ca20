package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/shortcode"
)

// MemoryStorage keeps every namespace in process memory. It is used by
// tests and STORAGE_DRIVER=memory development runs.
type MemoryStorage struct {
	mu        sync.RWMutex
	nextID    int64
	redirects map[string]*models.RedirectEntry
	lists     map[string]*models.LinkList
	clips     map[string]*models.ClipboardEntry
}

var _ Store = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		redirects: make(map[string]*models.RedirectEntry),
		lists:     make(map[string]*models.LinkList),
		clips:     make(map[string]*models.ClipboardEntry),
	}
}

func (s *MemoryStorage) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStorage) InsertRedirect(ctx context.Context, entry *models.RedirectEntry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := shortcode.Fold(entry.ShortCode)
	if _, exists := s.redirects[key]; exists {
		return 0, fmt.Errorf("redirect %q: %w", entry.ShortCode, ErrDuplicateShortCode)
	}

	stored := *entry
	stored.ID = s.id()
	stored.ShortCode = key
	s.redirects[key] = &stored
	return stored.ID, nil
}

func (s *MemoryStorage) FindActiveRedirect(ctx context.Context, code string, now time.Time) (*models.RedirectEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.redirects[shortcode.Fold(code)]
	if !exists || !entry.IsActive(now) {
		return nil, ErrNotFound
	}

	out := *entry
	return &out, nil
}

func (s *MemoryStorage) InsertListWithItems(ctx context.Context, list *models.LinkList, items []models.LinkListItem) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := shortcode.Fold(list.ShortCode)
	if _, exists := s.lists[key]; exists {
		return 0, fmt.Errorf("list %q: %w", list.ShortCode, ErrDuplicateShortCode)
	}

	// Validate every item before anything becomes visible.
	for i, item := range items {
		if item.URL == "" {
			return 0, fmt.Errorf("failed to insert list item %d: %w", i, errEmptyItemURL)
		}
	}

	stored := *list
	stored.ID = s.id()
	stored.ShortCode = key
	stored.Items = make([]models.LinkListItem, len(items))
	for i, item := range items {
		item.ID = s.id()
		item.ListID = stored.ID
		item.Position = i
		stored.Items[i] = item
	}

	s.lists[key] = &stored
	return stored.ID, nil
}

func (s *MemoryStorage) FindActiveList(ctx context.Context, code string, now time.Time) (*models.LinkList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, exists := s.lists[shortcode.Fold(code)]
	if !exists || !list.IsActive(now) {
		return nil, ErrNotFound
	}

	out := *list
	out.Items = append([]models.LinkListItem(nil), list.Items...)
	return &out, nil
}

func (s *MemoryStorage) InsertClip(ctx context.Context, entry *models.ClipboardEntry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := shortcode.Fold(entry.ShortCode)
	if _, exists := s.clips[key]; exists {
		return 0, fmt.Errorf("clip %q: %w", entry.ShortCode, ErrDuplicateShortCode)
	}

	stored := *entry
	stored.ID = s.id()
	stored.ShortCode = key
	s.clips[key] = &stored
	return stored.ID, nil
}

func (s *MemoryStorage) FindActiveClip(ctx context.Context, code string, now time.Time) (*models.ClipboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.clips[shortcode.Fold(code)]
	if !exists || !entry.IsActive(now) {
		return nil, ErrNotFound
	}

	out := *entry
	return &out, nil
}

func (s *MemoryStorage) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for k, e := range s.redirects {
		if e.ExpiresAt != nil && e.ExpiresAt.Before(before) {
			delete(s.redirects, k)
			deleted++
		}
	}
	for k, l := range s.lists {
		if l.ExpiresAt != nil && l.ExpiresAt.Before(before) {
			delete(s.lists, k)
			deleted++
		}
	}
	for k, c := range s.clips {
		if c.ExpiresAt != nil && c.ExpiresAt.Before(before) {
			delete(s.clips, k)
			deleted++
		}
	}

	return deleted, nil
}

// Counts reports how many rows each namespace holds, expired ones included.
func (s *MemoryStorage) Counts() (redirects, lists, items, clips int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.lists {
		items += len(l.Items)
	}
	return len(s.redirects), len(s.lists), items, len(s.clips)
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
