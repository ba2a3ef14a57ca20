package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Varun5711/shortbox/internal/models"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("redirect lookup is case-insensitive", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now().Truncate(time.Millisecond)

		_, err := store.InsertRedirect(ctx, &models.RedirectEntry{
			OriginalURL: "https://example.com",
			ShortCode:   "AbCdEf",
			CreatedAt:   now,
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		for _, code := range []string{"abcdef", "ABCDEF", "AbCdEf"} {
			got, err := store.FindActiveRedirect(ctx, code, now)
			if err != nil {
				t.Fatalf("lookup %q failed: %v", code, err)
			}
			if got.OriginalURL != "https://example.com" {
				t.Errorf("lookup %q: unexpected url %q", code, got.OriginalURL)
			}
			if got.ShortCode != "abcdef" {
				t.Errorf("lookup %q: expected folded stored code, got %q", code, got.ShortCode)
			}
		}
	})

	t.Run("duplicate short code in any case", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if _, err := store.InsertRedirect(ctx, &models.RedirectEntry{OriginalURL: "https://a.example", ShortCode: "promo"}); err != nil {
			t.Fatalf("first insert failed: %v", err)
		}

		_, err := store.InsertRedirect(ctx, &models.RedirectEntry{OriginalURL: "https://b.example", ShortCode: "PROMO"})
		if !errors.Is(err, ErrDuplicateShortCode) {
			t.Fatalf("expected ErrDuplicateShortCode, got %v", err)
		}
	})

	t.Run("custom code keeps original case", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		custom := "MyPromo"

		_, err := store.InsertRedirect(ctx, &models.RedirectEntry{
			OriginalURL:     "https://example.com",
			ShortCode:       "mypromo",
			CustomShortCode: &custom,
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		got, err := store.FindActiveRedirect(ctx, "MYPROMO", time.Now())
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if got.CustomShortCode == nil || *got.CustomShortCode != "MyPromo" {
			t.Errorf("expected custom code MyPromo, got %v", got.CustomShortCode)
		}
	})

	t.Run("expired redirect is not found", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now().Truncate(time.Millisecond)
		expired := now.Add(-time.Second)

		_, err := store.InsertRedirect(ctx, &models.RedirectEntry{
			OriginalURL: "https://example.com",
			ShortCode:   "gone12",
			ExpiresAt:   &expired,
			CreatedAt:   now.Add(-time.Hour),
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		if _, err := store.FindActiveRedirect(ctx, "gone12", now); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		// The row still exists, so the code stays taken.
		_, err = store.InsertRedirect(ctx, &models.RedirectEntry{OriginalURL: "https://other.example", ShortCode: "gone12"})
		if !errors.Is(err, ErrDuplicateShortCode) {
			t.Fatalf("expected expired code to remain reserved, got %v", err)
		}
	})

	t.Run("missing code is not found", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		if _, err := store.FindActiveRedirect(ctx, "nothere", now); !errors.Is(err, ErrNotFound) {
			t.Errorf("redirect: expected ErrNotFound, got %v", err)
		}
		if _, err := store.FindActiveList(ctx, "nothere", now); !errors.Is(err, ErrNotFound) {
			t.Errorf("list: expected ErrNotFound, got %v", err)
		}
		if _, err := store.FindActiveClip(ctx, "nothere", now); !errors.Is(err, ErrNotFound) {
			t.Errorf("clip: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list items keep insertion order", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now().Truncate(time.Millisecond)
		expires := now.Add(time.Hour)

		items := []models.LinkListItem{
			{URL: "https://one.example", Title: "One"},
			{URL: "https://two.example", Title: "Two", Description: "second"},
			{URL: "https://three.example"},
		}

		id, err := store.InsertListWithItems(ctx, &models.LinkList{ShortCode: "ordered", ExpiresAt: &expires, CreatedAt: now}, items)
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		got, err := store.FindActiveList(ctx, "ORDERED", now)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if got.ID != id {
			t.Errorf("expected id %d, got %d", id, got.ID)
		}
		if len(got.Items) != len(items) {
			t.Fatalf("expected %d items, got %d", len(items), len(got.Items))
		}
		for i, item := range got.Items {
			if item.URL != items[i].URL || item.Title != items[i].Title || item.Description != items[i].Description {
				t.Errorf("item %d: got %+v, want %+v", i, item, items[i])
			}
			if item.Position != i {
				t.Errorf("item %d: expected position %d, got %d", i, i, item.Position)
			}
		}
	})

	t.Run("list insert is atomic", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		items := []models.LinkListItem{
			{URL: "https://one.example"},
			{URL: ""},
			{URL: "https://three.example"},
		}

		_, err := store.InsertListWithItems(ctx, &models.LinkList{ShortCode: "broken"}, items)
		if err == nil {
			t.Fatal("expected insert to fail on the second item")
		}
		if errors.Is(err, ErrDuplicateShortCode) {
			t.Fatalf("item failure must not look like a collision: %v", err)
		}

		if _, err := store.FindActiveList(ctx, "broken", time.Now()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected no list header after rollback, got %v", err)
		}

		// The code was never taken, so a valid retry succeeds with only its own items.
		valid := []models.LinkListItem{{URL: "https://only.example"}}
		if _, err := store.InsertListWithItems(ctx, &models.LinkList{ShortCode: "broken"}, valid); err != nil {
			t.Fatalf("retry after rollback failed: %v", err)
		}
		got, err := store.FindActiveList(ctx, "broken", time.Now())
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if len(got.Items) != 1 {
			t.Errorf("expected 1 item after retry, got %d", len(got.Items))
		}
	})

	t.Run("duplicate list code", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		items := []models.LinkListItem{{URL: "https://one.example"}}

		if _, err := store.InsertListWithItems(ctx, &models.LinkList{ShortCode: "lst123"}, items); err != nil {
			t.Fatalf("first insert failed: %v", err)
		}
		_, err := store.InsertListWithItems(ctx, &models.LinkList{ShortCode: "LST123"}, items)
		if !errors.Is(err, ErrDuplicateShortCode) {
			t.Fatalf("expected ErrDuplicateShortCode, got %v", err)
		}
	})

	t.Run("clip round trip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		content := "line one\nline two <b>not html</b>"

		if _, err := store.InsertClip(ctx, &models.ClipboardEntry{Content: content, ShortCode: "clip01"}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		got, err := store.FindActiveClip(ctx, "CLIP01", time.Now())
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if got.Content != content {
			t.Errorf("expected content %q, got %q", content, got.Content)
		}

		_, err = store.InsertClip(ctx, &models.ClipboardEntry{Content: "other", ShortCode: "clip01"})
		if !errors.Is(err, ErrDuplicateShortCode) {
			t.Fatalf("expected ErrDuplicateShortCode, got %v", err)
		}
	})

	t.Run("namespaces are independent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if _, err := store.InsertRedirect(ctx, &models.RedirectEntry{OriginalURL: "https://example.com", ShortCode: "shared"}); err != nil {
			t.Fatalf("redirect insert failed: %v", err)
		}
		if _, err := store.InsertListWithItems(ctx, &models.LinkList{ShortCode: "shared"}, []models.LinkListItem{{URL: "https://example.com"}}); err != nil {
			t.Fatalf("list insert failed: %v", err)
		}
		if _, err := store.InsertClip(ctx, &models.ClipboardEntry{Content: "text", ShortCode: "shared"}); err != nil {
			t.Fatalf("clip insert failed: %v", err)
		}
	})

	t.Run("purge expired", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now().Truncate(time.Millisecond)
		old := now.Add(-48 * time.Hour)
		recent := now.Add(-time.Minute)

		mustInsertRedirect(t, store, "old001", &old)
		mustInsertRedirect(t, store, "rec001", &recent)
		mustInsertRedirect(t, store, "life01", nil)
		if _, err := store.InsertListWithItems(ctx, &models.LinkList{ShortCode: "oldlst", ExpiresAt: &old},
			[]models.LinkListItem{{URL: "https://one.example"}, {URL: "https://two.example"}}); err != nil {
			t.Fatalf("list insert failed: %v", err)
		}
		if _, err := store.InsertClip(ctx, &models.ClipboardEntry{Content: "x", ShortCode: "oldclp", ExpiresAt: &old}); err != nil {
			t.Fatalf("clip insert failed: %v", err)
		}

		deleted, err := store.PurgeExpired(ctx, now.Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("purge failed: %v", err)
		}
		if deleted != 3 {
			t.Errorf("expected 3 purged rows, got %d", deleted)
		}

		// Purged codes are free again; recent ones are still reserved.
		mustInsertRedirect(t, store, "old001", nil)
		if _, err := store.InsertRedirect(ctx, &models.RedirectEntry{OriginalURL: "https://x.example", ShortCode: "rec001"}); !errors.Is(err, ErrDuplicateShortCode) {
			t.Errorf("expected recently expired code to survive purge, got %v", err)
		}
		if _, err := store.FindActiveRedirect(ctx, "life01", now); err != nil {
			t.Errorf("expected lifetime entry to survive purge, got %v", err)
		}
	})
}

func mustInsertRedirect(t *testing.T, store Store, code string, expiresAt *time.Time) {
	t.Helper()
	_, err := store.InsertRedirect(context.Background(), &models.RedirectEntry{
		OriginalURL: "https://example.com/" + code,
		ShortCode:   code,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		t.Fatalf("insert %q failed: %v", code, err)
	}
}
