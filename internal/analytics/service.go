package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/Varun5711/shortbox/internal/clickhouse"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/shortcode"
)

// Querier is the read side of the resolution event store.
type Querier interface {
	GetEntryStats(ctx context.Context, kind, shortCode string) (*clickhouse.EntryStats, error)
	GetDeviceStats(ctx context.Context, kind, shortCode string) ([]clickhouse.DeviceStats, error)
	GetDailyTimeSeries(ctx context.Context, kind, shortCode string, since time.Time) ([]clickhouse.TimeSeriesPoint, error)
	GetTopReferers(ctx context.Context, kind, shortCode string, limit int) ([]clickhouse.RefererStats, error)
}

type Service struct {
	db  Querier
	now func() time.Time
}

func NewService(db Querier) *Service {
	return &Service{db: db, now: time.Now}
}

type DailyPoint struct {
	Day            time.Time `json:"day"`
	Resolutions    uint64    `json:"resolutions"`
	UniqueVisitors uint64    `json:"unique_visitors"`
}

type DeviceStat struct {
	DeviceType string  `json:"device_type"`
	Browser    string  `json:"browser"`
	OS         string  `json:"os"`
	Count      uint64  `json:"count"`
	Percentage float64 `json:"percentage"`
}

type RefererStat struct {
	Referer string `json:"referer"`
	Count   uint64 `json:"count"`
}

type Stats struct {
	Kind           models.Kind   `json:"kind"`
	ShortCode      string        `json:"short_code"`
	Resolutions    uint64        `json:"resolutions"`
	UniqueVisitors uint64        `json:"unique_visitors"`
	Bots           uint64        `json:"bots"`
	LastSeen       *time.Time    `json:"last_seen,omitempty"`
	Daily          []DailyPoint  `json:"daily"`
	Devices        []DeviceStat  `json:"devices"`
	Referers       []RefererStat `json:"referers"`
}

// GetStats aggregates resolutions of one entry over the last days days.
func (s *Service) GetStats(ctx context.Context, kind models.Kind, code string, days int) (*Stats, error) {
	if days <= 0 {
		days = 30
	}
	folded := shortcode.Fold(code)

	entry, err := s.db.GetEntryStats(ctx, kind.String(), folded)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry stats: %w", err)
	}

	stats := &Stats{
		Kind:           kind,
		ShortCode:      folded,
		Resolutions:    entry.Total,
		UniqueVisitors: entry.UniqueVisitors,
		Bots:           entry.Bots,
		Daily:          []DailyPoint{},
		Devices:        []DeviceStat{},
		Referers:       []RefererStat{},
	}
	if entry.Total > 0 {
		last := entry.LastSeen
		stats.LastSeen = &last
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	points, err := s.db.GetDailyTimeSeries(ctx, kind.String(), folded, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get time series: %w", err)
	}
	for _, p := range points {
		stats.Daily = append(stats.Daily, DailyPoint{Day: p.Timestamp, Resolutions: p.Count, UniqueVisitors: p.UniqueVisitors})
	}

	devices, err := s.db.GetDeviceStats(ctx, kind.String(), folded)
	if err != nil {
		return nil, fmt.Errorf("failed to get device stats: %w", err)
	}
	for _, d := range devices {
		stats.Devices = append(stats.Devices, DeviceStat(d))
	}

	referers, err := s.db.GetTopReferers(ctx, kind.String(), folded, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to get referers: %w", err)
	}
	for _, r := range referers {
		stats.Referers = append(stats.Referers, RefererStat(r))
	}

	return stats, nil
}
