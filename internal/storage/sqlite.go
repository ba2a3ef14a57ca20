package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/shortcode"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStorage serves local SQLite files through modernc.org/sqlite and
// remote Turso databases through libsql, picked from the DSN. Timestamps
// are stored as unix milliseconds so both drivers compare them the same way.
type SQLiteStorage struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQLiteStorage)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS shortened_urls (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	original_url      TEXT    NOT NULL,
	short_code        TEXT    NOT NULL UNIQUE,
	custom_short_code TEXT,
	expiration_date   INTEGER,
	qr_code_path      TEXT    NOT NULL DEFAULT '',
	created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shortened_urls_expiration ON shortened_urls(expiration_date);

CREATE TABLE IF NOT EXISTS link_lists (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	short_code      TEXT    NOT NULL UNIQUE,
	expiration_date INTEGER,
	qr_code_path    TEXT    NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_link_lists_expiration ON link_lists(expiration_date);

CREATE TABLE IF NOT EXISTS list_items (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	list_id     INTEGER NOT NULL REFERENCES link_lists(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	url         TEXT    NOT NULL CHECK (length(url) > 0),
	title       TEXT    NOT NULL DEFAULT '',
	description TEXT    NOT NULL DEFAULT '',
	UNIQUE (list_id, position)
);

CREATE TABLE IF NOT EXISTS clipboard_entries (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	content         TEXT    NOT NULL,
	short_code      TEXT    NOT NULL UNIQUE,
	expiration_date INTEGER,
	qr_code_path    TEXT    NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clipboard_entries_expiration ON clipboard_entries(expiration_date);
`

func NewSQLiteStorage(ctx context.Context, dsn string) (*SQLiteStorage, error) {
	driverName := "sqlite"
	if strings.Contains(dsn, "libsql://") || strings.Contains(dsn, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}

	// Every connection to an in-memory database is a separate database.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	s := &SQLiteStorage{db: db, driver: driverName}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStorage) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(sqliteSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate %s schema: %w", s.driver, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) InsertRedirect(ctx context.Context, entry *models.RedirectEntry) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shortened_urls (original_url, short_code, custom_short_code, expiration_date, qr_code_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.OriginalURL,
		shortcode.Fold(entry.ShortCode),
		entry.CustomShortCode,
		toMillis(entry.ExpiresAt),
		entry.QRCodePath,
		createdAt(entry.CreatedAt).UnixMilli(),
	)
	if err != nil {
		return 0, sqliteInsertError("redirect", err)
	}

	return res.LastInsertId()
}

func (s *SQLiteStorage) FindActiveRedirect(ctx context.Context, code string, now time.Time) (*models.RedirectEntry, error) {
	var (
		entry      models.RedirectEntry
		custom     sql.NullString
		expiration sql.NullInt64
		created    int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, original_url, short_code, custom_short_code, expiration_date, qr_code_path, created_at
		FROM shortened_urls
		WHERE short_code = ?
		AND (expiration_date IS NULL OR expiration_date > ?)
	`, shortcode.Fold(code), now.UnixMilli()).Scan(
		&entry.ID,
		&entry.OriginalURL,
		&entry.ShortCode,
		&custom,
		&expiration,
		&entry.QRCodePath,
		&created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redirect: %w", err)
	}

	if custom.Valid {
		entry.CustomShortCode = &custom.String
	}
	entry.ExpiresAt = fromMillis(expiration)
	entry.CreatedAt = time.UnixMilli(created).UTC()

	return &entry, nil
}

func (s *SQLiteStorage) InsertListWithItems(ctx context.Context, list *models.LinkList, items []models.LinkListItem) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO link_lists (short_code, expiration_date, qr_code_path, created_at)
		VALUES (?, ?, ?, ?)
	`, shortcode.Fold(list.ShortCode), toMillis(list.ExpiresAt), list.QRCodePath, createdAt(list.CreatedAt).UnixMilli())
	if err != nil {
		return 0, sqliteInsertError("list", err)
	}

	listID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read list id: %w", err)
	}

	for i, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO list_items (list_id, position, url, title, description)
			VALUES (?, ?, ?, ?, ?)
		`, listID, i, item.URL, item.Title, item.Description)
		if err != nil {
			return 0, fmt.Errorf("failed to insert list item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return listID, nil
}

func (s *SQLiteStorage) FindActiveList(ctx context.Context, code string, now time.Time) (*models.LinkList, error) {
	var (
		list       models.LinkList
		expiration sql.NullInt64
		created    int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, short_code, expiration_date, qr_code_path, created_at
		FROM link_lists
		WHERE short_code = ?
		AND (expiration_date IS NULL OR expiration_date > ?)
	`, shortcode.Fold(code), now.UnixMilli()).Scan(
		&list.ID,
		&list.ShortCode,
		&expiration,
		&list.QRCodePath,
		&created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}

	list.ExpiresAt = fromMillis(expiration)
	list.CreatedAt = time.UnixMilli(created).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, list_id, position, url, title, description
		FROM list_items
		WHERE list_id = ?
		ORDER BY position
	`, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get list items: %w", err)
	}
	defer rows.Close()

	list.Items = make([]models.LinkListItem, 0)
	for rows.Next() {
		var item models.LinkListItem
		if err := rows.Scan(&item.ID, &item.ListID, &item.Position, &item.URL, &item.Title, &item.Description); err != nil {
			return nil, fmt.Errorf("failed to scan list item: %w", err)
		}
		list.Items = append(list.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating list items: %w", err)
	}

	return &list, nil
}

func (s *SQLiteStorage) InsertClip(ctx context.Context, entry *models.ClipboardEntry) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO clipboard_entries (content, short_code, expiration_date, qr_code_path, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		entry.Content,
		shortcode.Fold(entry.ShortCode),
		toMillis(entry.ExpiresAt),
		entry.QRCodePath,
		createdAt(entry.CreatedAt).UnixMilli(),
	)
	if err != nil {
		return 0, sqliteInsertError("clip", err)
	}

	return res.LastInsertId()
}

func (s *SQLiteStorage) FindActiveClip(ctx context.Context, code string, now time.Time) (*models.ClipboardEntry, error) {
	var (
		entry      models.ClipboardEntry
		expiration sql.NullInt64
		created    int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, content, short_code, expiration_date, qr_code_path, created_at
		FROM clipboard_entries
		WHERE short_code = ?
		AND (expiration_date IS NULL OR expiration_date > ?)
	`, shortcode.Fold(code), now.UnixMilli()).Scan(
		&entry.ID,
		&entry.Content,
		&entry.ShortCode,
		&expiration,
		&entry.QRCodePath,
		&created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clip: %w", err)
	}

	entry.ExpiresAt = fromMillis(expiration)
	entry.CreatedAt = time.UnixMilli(created).UTC()

	return &entry, nil
}

func (s *SQLiteStorage) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := before.UnixMilli()

	// Foreign keys are off by default in SQLite, so items go first.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM list_items WHERE list_id IN (
			SELECT id FROM link_lists WHERE expiration_date IS NOT NULL AND expiration_date < ?
		)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to purge list items: %w", err)
	}

	var total int64
	for _, table := range []string{"shortened_urls", "link_lists", "clipboard_entries"} {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE expiration_date IS NOT NULL AND expiration_date < ?",
			cutoff,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to purge %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return total, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// sqliteInsertError recognises a short-code unique violation from either
// driver. libsql only exposes the message text.
func sqliteInsertError(kind string, err error) error {
	msg := err.Error()
	onShortCode := strings.Contains(msg, ".short_code")

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE && onShortCode {
		return fmt.Errorf("%s: %w", kind, ErrDuplicateShortCode)
	}
	if strings.Contains(msg, "UNIQUE constraint failed") && onShortCode {
		return fmt.Errorf("%s: %w", kind, ErrDuplicateShortCode)
	}

	return fmt.Errorf("failed to insert %s: %w", kind, err)
}

func toMillis(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
