package clickhouse

import (
	"context"
	"fmt"
	"time"
)

type EntryStats struct {
	Kind           string
	ShortCode      string
	Total          uint64
	UniqueVisitors uint64
	Bots           uint64
	FirstSeen      time.Time
	LastSeen       time.Time
}

type DeviceStats struct {
	DeviceType string
	Browser    string
	OS         string
	Count      uint64
	Percentage float64
}

type TimeSeriesPoint struct {
	Timestamp      time.Time
	Count          uint64
	UniqueVisitors uint64
}

type RefererStats struct {
	Referer string
	Count   uint64
}

// GetEntryStats summarizes successful resolutions of one entry. Codes are
// stored folded, so callers pass the folded form.
func (c *Client) GetEntryStats(ctx context.Context, kind, shortCode string) (*EntryStats, error) {
	query := `
		SELECT
			count() AS total,
			uniqExact(ip_hash) AS unique_visitors,
			countIf(is_bot = 1) AS bots,
			min(resolved_at) AS first_seen,
			max(resolved_at) AS last_seen
		FROM resolution_events
		WHERE kind = ? AND short_code = ? AND outcome = ?
	`

	stats := EntryStats{Kind: kind, ShortCode: shortCode}
	err := c.conn.QueryRow(ctx, query, kind, shortCode, kind).Scan(
		&stats.Total,
		&stats.UniqueVisitors,
		&stats.Bots,
		&stats.FirstSeen,
		&stats.LastSeen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry stats: %w", err)
	}

	return &stats, nil
}

func (c *Client) GetDeviceStats(ctx context.Context, kind, shortCode string) ([]DeviceStats, error) {
	query := `
		SELECT
			device_type,
			browser,
			os,
			count() AS total,
			total * 100.0 / sum(total) OVER () AS percentage
		FROM resolution_events
		WHERE kind = ? AND short_code = ? AND outcome = ?
		GROUP BY device_type, browser, os
		ORDER BY total DESC
		LIMIT 50
	`

	rows, err := c.conn.Query(ctx, query, kind, shortCode, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query device stats: %w", err)
	}
	defer rows.Close()

	var stats []DeviceStats
	for rows.Next() {
		var s DeviceStats
		if err := rows.Scan(&s.DeviceType, &s.Browser, &s.OS, &s.Count, &s.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

func (c *Client) GetDailyTimeSeries(ctx context.Context, kind, shortCode string, since time.Time) ([]TimeSeriesPoint, error) {
	query := `
		SELECT
			toStartOfDay(resolved_at) AS day,
			count() AS total,
			uniqExact(ip_hash) AS unique_visitors
		FROM resolution_events
		WHERE kind = ? AND short_code = ? AND outcome = ?
			AND resolved_at >= ?
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := c.conn.Query(ctx, query, kind, shortCode, kind, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query time series: %w", err)
	}
	defer rows.Close()

	var points []TimeSeriesPoint
	for rows.Next() {
		var p TimeSeriesPoint
		if err := rows.Scan(&p.Timestamp, &p.Count, &p.UniqueVisitors); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

func (c *Client) GetTopReferers(ctx context.Context, kind, shortCode string, limit int) ([]RefererStats, error) {
	query := `
		SELECT
			if(referer = '', 'direct', referer) AS ref,
			count() AS total
		FROM resolution_events
		WHERE kind = ? AND short_code = ? AND outcome = ?
		GROUP BY ref
		ORDER BY total DESC
		LIMIT ?
	`

	rows, err := c.conn.Query(ctx, query, kind, shortCode, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query referers: %w", err)
	}
	defer rows.Close()

	var stats []RefererStats
	for rows.Next() {
		var s RefererStats
		if err := rows.Scan(&s.Referer, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// MissCount reports how many lookups for code found nothing live.
func (c *Client) MissCount(ctx context.Context, shortCode string) (uint64, error) {
	var total uint64
	err := c.conn.QueryRow(ctx,
		`SELECT count() FROM resolution_events WHERE short_code = ? AND outcome = 'not_found'`,
		shortCode,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to query misses: %w", err)
	}
	return total, nil
}
