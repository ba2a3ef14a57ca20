package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/shortbox/internal/database"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/shortcode"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Unique indexes that guard each short-code namespace.
var pgShortCodeIndexes = map[string]bool{
	"shortened_urls_short_code_key":    true,
	"link_lists_short_code_key":        true,
	"clipboard_entries_short_code_key": true,
}

type PostgresStorage struct {
	db *database.DBManager
}

var _ Store = (*PostgresStorage)(nil)

func NewPostgresStorage(db *database.DBManager) *PostgresStorage {
	return &PostgresStorage{
		db: db,
	}
}

func (s *PostgresStorage) InsertRedirect(ctx context.Context, entry *models.RedirectEntry) (int64, error) {
	query := `
		INSERT INTO shortened_urls (original_url, short_code, custom_short_code, expiration_date, qr_code_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := s.db.Write().QueryRow(ctx, query,
		entry.OriginalURL,
		shortcode.Fold(entry.ShortCode),
		entry.CustomShortCode,
		entry.ExpiresAt,
		entry.QRCodePath,
		createdAt(entry.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, pgInsertError("redirect", err)
	}

	return id, nil
}

func (s *PostgresStorage) FindActiveRedirect(ctx context.Context, code string, now time.Time) (*models.RedirectEntry, error) {
	query := `
		SELECT id, original_url, short_code, custom_short_code, expiration_date, qr_code_path, created_at
		FROM shortened_urls
		WHERE LOWER(short_code) = $1
		AND (expiration_date IS NULL OR expiration_date > $2)
	`

	var entry models.RedirectEntry
	err := s.db.Read().QueryRow(ctx, query, shortcode.Fold(code), now).Scan(
		&entry.ID,
		&entry.OriginalURL,
		&entry.ShortCode,
		&entry.CustomShortCode,
		&entry.ExpiresAt,
		&entry.QRCodePath,
		&entry.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redirect: %w", err)
	}

	return &entry, nil
}

func (s *PostgresStorage) InsertListWithItems(ctx context.Context, list *models.LinkList, items []models.LinkListItem) (int64, error) {
	var listID int64

	err := s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO link_lists (short_code, expiration_date, qr_code_path, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, shortcode.Fold(list.ShortCode), list.ExpiresAt, list.QRCodePath, createdAt(list.CreatedAt)).Scan(&listID)
		if err != nil {
			return pgInsertError("list", err)
		}

		for i, item := range items {
			_, err := tx.Exec(ctx, `
				INSERT INTO list_items (list_id, position, url, title, description)
				VALUES ($1, $2, $3, $4, $5)
			`, listID, i, item.URL, item.Title, item.Description)
			if err != nil {
				return fmt.Errorf("failed to insert list item %d: %w", i, err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return listID, nil
}

func (s *PostgresStorage) FindActiveList(ctx context.Context, code string, now time.Time) (*models.LinkList, error) {
	// Header and items are read from the same pool so a lagging replica
	// cannot return a header without its items.
	pool := s.db.Read()

	var list models.LinkList
	err := pool.QueryRow(ctx, `
		SELECT id, short_code, expiration_date, qr_code_path, created_at
		FROM link_lists
		WHERE LOWER(short_code) = $1
		AND (expiration_date IS NULL OR expiration_date > $2)
	`, shortcode.Fold(code), now).Scan(
		&list.ID,
		&list.ShortCode,
		&list.ExpiresAt,
		&list.QRCodePath,
		&list.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}

	rows, err := pool.Query(ctx, `
		SELECT id, list_id, position, url, title, description
		FROM list_items
		WHERE list_id = $1
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

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating list items: %w", err)
	}

	return &list, nil
}

func (s *PostgresStorage) InsertClip(ctx context.Context, entry *models.ClipboardEntry) (int64, error) {
	query := `
		INSERT INTO clipboard_entries (content, short_code, expiration_date, qr_code_path, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := s.db.Write().QueryRow(ctx, query,
		entry.Content,
		shortcode.Fold(entry.ShortCode),
		entry.ExpiresAt,
		entry.QRCodePath,
		createdAt(entry.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, pgInsertError("clip", err)
	}

	return id, nil
}

func (s *PostgresStorage) FindActiveClip(ctx context.Context, code string, now time.Time) (*models.ClipboardEntry, error) {
	query := `
		SELECT id, content, short_code, expiration_date, qr_code_path, created_at
		FROM clipboard_entries
		WHERE LOWER(short_code) = $1
		AND (expiration_date IS NULL OR expiration_date > $2)
	`

	var entry models.ClipboardEntry
	err := s.db.Read().QueryRow(ctx, query, shortcode.Fold(code), now).Scan(
		&entry.ID,
		&entry.Content,
		&entry.ShortCode,
		&entry.ExpiresAt,
		&entry.QRCodePath,
		&entry.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clip: %w", err)
	}

	return &entry, nil
}

func (s *PostgresStorage) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	var total int64

	err := s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		for _, table := range []string{"shortened_urls", "link_lists", "clipboard_entries"} {
			tag, err := tx.Exec(ctx,
				"DELETE FROM "+table+" WHERE expiration_date IS NOT NULL AND expiration_date < $1",
				before,
			)
			if err != nil {
				return fmt.Errorf("failed to purge %s: %w", table, err)
			}
			total += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStorage) Close() error {
	s.db.Close()
	return nil
}

func pgInsertError(kind string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgShortCodeIndexes[pgErr.ConstraintName] {
		return fmt.Errorf("%s: %w", kind, ErrDuplicateShortCode)
	}
	return fmt.Errorf("failed to insert %s: %w", kind, err)
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
