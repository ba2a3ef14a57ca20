package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/shortcode"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const mysqlDuplicateEntry = 1062

type redirectRow struct {
	ID              int64      `gorm:"primaryKey;autoIncrement"`
	OriginalURL     string     `gorm:"type:text;not null"`
	ShortCode       string     `gorm:"type:varchar(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin;not null;uniqueIndex:uniq_shortened_urls_short_code"`
	CustomShortCode *string    `gorm:"type:varchar(64)"`
	ExpirationDate  *time.Time `gorm:"index"`
	QRCodePath      string     `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt       time.Time  `gorm:"not null"`
}

func (redirectRow) TableName() string { return "shortened_urls" }

type listRow struct {
	ID             int64         `gorm:"primaryKey;autoIncrement"`
	ShortCode      string        `gorm:"type:varchar(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin;not null;uniqueIndex:uniq_link_lists_short_code"`
	ExpirationDate *time.Time    `gorm:"index"`
	QRCodePath     string        `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt      time.Time     `gorm:"not null"`
	Items          []listItemRow `gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
}

func (listRow) TableName() string { return "link_lists" }

type listItemRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ListID      int64  `gorm:"not null;uniqueIndex:uniq_list_items_position,priority:1"`
	Position    int    `gorm:"not null;uniqueIndex:uniq_list_items_position,priority:2"`
	URL         string `gorm:"type:text;not null;check:chk_list_items_url,url <> ''"`
	Title       string `gorm:"type:varchar(255);not null;default:''"`
	Description string `gorm:"type:text"`
}

func (listItemRow) TableName() string { return "list_items" }

type clipRow struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"`
	Content        string     `gorm:"type:mediumtext;not null"`
	ShortCode      string     `gorm:"type:varchar(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin;not null;uniqueIndex:uniq_clipboard_entries_short_code"`
	ExpirationDate *time.Time `gorm:"index"`
	QRCodePath     string     `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt      time.Time  `gorm:"not null"`
}

func (clipRow) TableName() string { return "clipboard_entries" }

// MySQLStorage persists entries through gorm. Codes are folded before they
// are written, so short-code columns use a binary collation: the server
// default would also treat "a" and "ä" as equal.
type MySQLStorage struct {
	db *gorm.DB
}

var _ Store = (*MySQLStorage)(nil)

func NewMySQLStorage(dsn string, log *logger.Logger, autoMigrate bool) (*MySQLStorage, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         log.Gorm(),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	return newMySQLStorage(db, autoMigrate)
}

func newMySQLStorage(db *gorm.DB, autoMigrate bool) (*MySQLStorage, error) {
	if autoMigrate {
		if err := db.AutoMigrate(&redirectRow{}, &listRow{}, &listItemRow{}, &clipRow{}); err != nil {
			return nil, fmt.Errorf("failed to migrate mysql schema: %w", err)
		}
	}
	return &MySQLStorage{db: db}, nil
}

func (s *MySQLStorage) InsertRedirect(ctx context.Context, entry *models.RedirectEntry) (int64, error) {
	row := redirectRow{
		OriginalURL:     entry.OriginalURL,
		ShortCode:       shortcode.Fold(entry.ShortCode),
		CustomShortCode: entry.CustomShortCode,
		ExpirationDate:  entry.ExpiresAt,
		QRCodePath:      entry.QRCodePath,
		CreatedAt:       createdAt(entry.CreatedAt),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, mysqlInsertError("redirect", err)
	}

	return row.ID, nil
}

func (s *MySQLStorage) FindActiveRedirect(ctx context.Context, code string, now time.Time) (*models.RedirectEntry, error) {
	var row redirectRow
	err := s.db.WithContext(ctx).
		Where("short_code = ?", shortcode.Fold(code)).
		Where("expiration_date IS NULL OR expiration_date > ?", now).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redirect: %w", err)
	}

	return &models.RedirectEntry{
		ID:              row.ID,
		OriginalURL:     row.OriginalURL,
		ShortCode:       row.ShortCode,
		CustomShortCode: row.CustomShortCode,
		ExpiresAt:       row.ExpirationDate,
		QRCodePath:      row.QRCodePath,
		CreatedAt:       row.CreatedAt,
	}, nil
}

func (s *MySQLStorage) InsertListWithItems(ctx context.Context, list *models.LinkList, items []models.LinkListItem) (int64, error) {
	row := listRow{
		ShortCode:      shortcode.Fold(list.ShortCode),
		ExpirationDate: list.ExpiresAt,
		QRCodePath:     list.QRCodePath,
		CreatedAt:      createdAt(list.CreatedAt),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&row).Error; err != nil {
			return mysqlInsertError("list", err)
		}

		for i, item := range items {
			itemRow := listItemRow{
				ListID:      row.ID,
				Position:    i,
				URL:         item.URL,
				Title:       item.Title,
				Description: item.Description,
			}
			if err := tx.Create(&itemRow).Error; err != nil {
				return fmt.Errorf("failed to insert list item %d: %w", i, err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return row.ID, nil
}

func (s *MySQLStorage) FindActiveList(ctx context.Context, code string, now time.Time) (*models.LinkList, error) {
	var row listRow
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("short_code = ?", shortcode.Fold(code)).
		Where("expiration_date IS NULL OR expiration_date > ?", now).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}

	list := &models.LinkList{
		ID:         row.ID,
		ShortCode:  row.ShortCode,
		ExpiresAt:  row.ExpirationDate,
		QRCodePath: row.QRCodePath,
		CreatedAt:  row.CreatedAt,
		Items:      make([]models.LinkListItem, 0, len(row.Items)),
	}
	for _, it := range row.Items {
		list.Items = append(list.Items, models.LinkListItem{
			ID:          it.ID,
			ListID:      it.ListID,
			Position:    it.Position,
			URL:         it.URL,
			Title:       it.Title,
			Description: it.Description,
		})
	}

	return list, nil
}

func (s *MySQLStorage) InsertClip(ctx context.Context, entry *models.ClipboardEntry) (int64, error) {
	row := clipRow{
		Content:        entry.Content,
		ShortCode:      shortcode.Fold(entry.ShortCode),
		ExpirationDate: entry.ExpiresAt,
		QRCodePath:     entry.QRCodePath,
		CreatedAt:      createdAt(entry.CreatedAt),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, mysqlInsertError("clip", err)
	}

	return row.ID, nil
}

func (s *MySQLStorage) FindActiveClip(ctx context.Context, code string, now time.Time) (*models.ClipboardEntry, error) {
	var row clipRow
	err := s.db.WithContext(ctx).
		Where("short_code = ?", shortcode.Fold(code)).
		Where("expiration_date IS NULL OR expiration_date > ?", now).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clip: %w", err)
	}

	return &models.ClipboardEntry{
		ID:         row.ID,
		Content:    row.Content,
		ShortCode:  row.ShortCode,
		ExpiresAt:  row.ExpirationDate,
		QRCodePath: row.QRCodePath,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (s *MySQLStorage) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	var total int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&listRow{}).Select("id").
			Where("expiration_date IS NOT NULL AND expiration_date < ?", before)
		if err := tx.Where("list_id IN (?)", expired).Delete(&listItemRow{}).Error; err != nil {
			return fmt.Errorf("failed to purge list items: %w", err)
		}

		for _, model := range []interface{}{&redirectRow{}, &listRow{}, &clipRow{}} {
			res := tx.Where("expiration_date IS NOT NULL AND expiration_date < ?", before).Delete(model)
			if res.Error != nil {
				return fmt.Errorf("failed to purge expired rows: %w", res.Error)
			}
			total += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (s *MySQLStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *MySQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Only header rows go through here. Item inserts never report a duplicate
// short code even though list_items has its own unique index.
func mysqlInsertError(kind string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", kind, ErrDuplicateShortCode)
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%s: %w", kind, ErrDuplicateShortCode)
	}

	return fmt.Errorf("failed to insert %s: %w", kind, err)
}
