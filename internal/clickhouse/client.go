package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/Varun5711/shortbox/internal/config"
)

const createResolutionEvents = `
	CREATE TABLE IF NOT EXISTS resolution_events (
		event_id        UUID,
		outcome         LowCardinality(String),
		kind            LowCardinality(String),
		short_code      String,
		target          String,
		resolved_at     DateTime64(3, 'UTC'),
		ip_hash         String,
		user_agent      String,
		browser         LowCardinality(String),
		browser_version String,
		os              LowCardinality(String),
		device_type     LowCardinality(String),
		is_mobile       UInt8,
		is_bot          UInt8,
		referer         String
	)
	ENGINE = MergeTree
	PARTITION BY toYYYYMM(resolved_at)
	ORDER BY (kind, short_code, resolved_at)
`

type Client struct {
	conn driver.Conn
}

func NewClient(ctx context.Context, cfg config.ClickHouseConfig) (*Client, error) {
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     maxConns,
		MaxIdleConns:     maxConns / 2,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return &Client{conn: conn}, nil
}

// EnsureSchema creates the resolution_events table when it does not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, createResolutionEvents); err != nil {
		return fmt.Errorf("failed to create resolution_events: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

type ResolutionEvent struct {
	EventID        string
	Outcome        string
	Kind           string
	ShortCode      string
	Target         string
	ResolvedAt     time.Time
	IPHash         string
	UserAgent      string
	Browser        string
	BrowserVersion string
	OS             string
	DeviceType     string
	IsMobile       uint8
	IsBot          uint8
	Referer        string
}

func (c *Client) InsertResolutionEvents(ctx context.Context, events []ResolutionEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `INSERT INTO resolution_events (
		event_id, outcome, kind, short_code, target, resolved_at,
		ip_hash, user_agent, browser, browser_version, os,
		device_type, is_mobile, is_bot, referer
	)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.Outcome,
			event.Kind,
			event.ShortCode,
			event.Target,
			event.ResolvedAt,
			event.IPHash,
			event.UserAgent,
			event.Browser,
			event.BrowserVersion,
			event.OS,
			event.DeviceType,
			event.IsMobile,
			event.IsBot,
			event.Referer,
		)
		if err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	return nil
}
