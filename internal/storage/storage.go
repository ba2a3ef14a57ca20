package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Varun5711/shortbox/internal/models"
)

var (
	// ErrNotFound is returned by the FindActive* lookups when no row matches
	// or the matching row has expired.
	ErrNotFound = errors.New("entry not found or expired")

	// ErrDuplicateShortCode is returned when an insert hits the short-code
	// uniqueness constraint of its namespace. Any other failure is wrapped
	// and returned as-is.
	ErrDuplicateShortCode = errors.New("short code already exists")
)

type RedirectStore interface {
	InsertRedirect(ctx context.Context, entry *models.RedirectEntry) (int64, error)
	FindActiveRedirect(ctx context.Context, code string, now time.Time) (*models.RedirectEntry, error)
}

type LinkListStore interface {
	// InsertListWithItems writes the list and all of its items atomically.
	InsertListWithItems(ctx context.Context, list *models.LinkList, items []models.LinkListItem) (int64, error)
	// FindActiveList returns the list with its items ordered by position.
	FindActiveList(ctx context.Context, code string, now time.Time) (*models.LinkList, error)
}

type ClipboardStore interface {
	InsertClip(ctx context.Context, entry *models.ClipboardEntry) (int64, error)
	FindActiveClip(ctx context.Context, code string, now time.Time) (*models.ClipboardEntry, error)
}

// Store is the full persistence boundary.
type Store interface {
	RedirectStore
	LinkListStore
	ClipboardStore

	// PurgeExpired physically deletes entries whose expiration is before the
	// given instant and reports how many were removed.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Item URLs must be non-empty. SQL backends enforce this with a CHECK
// constraint, so a bad item fails mid-transaction and rolls the list back.
var errEmptyItemURL = errors.New("list item url must not be empty")
