package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Varun5711/shortbox/internal/models"
)

var sqliteDBCounter atomic.Int64

func newTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()

	dsn := fmt.Sprintf("file:test%d?mode=memory&cache=shared", sqliteDBCounter.Add(1))
	store, err := NewSQLiteStorage(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return newTestSQLite(t)
	})
}

func TestSQLiteStorage_FailedListLeavesNoRows(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	_, err := store.InsertListWithItems(ctx, &models.LinkList{ShortCode: "broken"}, []models.LinkListItem{
		{URL: "https://one.example"},
		{URL: ""},
		{URL: "https://three.example"},
	})
	if err == nil {
		t.Fatal("expected CHECK constraint to reject the second item")
	}

	assertCount(t, store.db, "link_lists", 0)
	assertCount(t, store.db, "list_items", 0)
}

func TestSQLiteStorage_ExpirationBoundary(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)
	expires := now.Add(time.Second)

	mustInsertRedirect(t, store, "edge01", &expires)

	if _, err := store.FindActiveRedirect(ctx, "edge01", now); err != nil {
		t.Errorf("expected entry active before expiration, got %v", err)
	}
	if _, err := store.FindActiveRedirect(ctx, "edge01", expires); err != ErrNotFound {
		t.Errorf("expected entry dead at its expiration instant, got %v", err)
	}
}

func assertCount(t *testing.T, db *sql.DB, table string, want int) {
	t.Helper()

	var got int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&got); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	if got != want {
		t.Errorf("expected %d rows in %s, got %d", want, table, got)
	}
}
