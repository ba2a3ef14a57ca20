package analytics

import (
	"context"
	"time"

	"github.com/Varun5711/shortbox/internal/clickhouse"
	"github.com/Varun5711/shortbox/internal/enrichment"
	"github.com/Varun5711/shortbox/internal/events"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/shortcode"
	"github.com/google/uuid"
)

// Reader is a consumer-group view of the event stream. Rewind makes the next
// Read redeliver entries that were read but not acknowledged.
type Reader interface {
	Read(ctx context.Context) ([]events.Message, error)
	Ack(ctx context.Context, ids ...string) error
	Rewind()
}

type Sink interface {
	InsertResolutionEvents(ctx context.Context, events []clickhouse.ResolutionEvent) error
}

// Worker moves resolution events from the stream into the event store.
type Worker struct {
	reader       Reader
	sink         Sink
	log          *logger.Logger
	pollInterval time.Duration
}

func NewWorker(reader Reader, sink Sink, log *logger.Logger, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{reader: reader, sink: sink, log: log, pollInterval: pollInterval}
}

// Run processes batches until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.ProcessBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error("Failed to process batch: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}
		if n > 0 {
			w.log.Debug("Processed %d resolution events", n)
		}
	}
}

// ProcessBatch reads one batch and stores it. Messages are acknowledged only
// after the batch is stored; malformed messages are acknowledged and dropped.
// A batch that fails to store is read again on a later call.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := w.reader.Read(ctx)
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}

	rows := make([]clickhouse.ResolutionEvent, 0, len(messages))
	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		ids = append(ids, msg.ID)
		if msg.Err != nil || msg.Event == nil {
			w.log.Warn("Dropping malformed message %s: %v", msg.ID, msg.Err)
			continue
		}
		rows = append(rows, Enrich(msg.Event))
	}

	if err := w.sink.InsertResolutionEvents(ctx, rows); err != nil {
		w.reader.Rewind()
		return 0, err
	}

	if err := w.reader.Ack(ctx, ids...); err != nil {
		return len(rows), err
	}

	return len(rows), nil
}

// Enrich turns a stream event into a stored row.
func Enrich(e *events.ResolutionEvent) clickhouse.ResolutionEvent {
	ua := enrichment.ParseUserAgent(e.UserAgent)

	row := clickhouse.ResolutionEvent{
		EventID:        uuid.NewString(),
		Outcome:        e.Outcome,
		Kind:           e.Kind,
		ShortCode:      shortcode.Fold(e.ShortCode),
		Target:         e.Target,
		ResolvedAt:     e.Timestamp,
		IPHash:         e.IPHash,
		UserAgent:      e.UserAgent,
		Browser:        ua.Browser,
		BrowserVersion: ua.BrowserVersion,
		OS:             ua.OS,
		DeviceType:     ua.DeviceType,
		Referer:        e.Referer,
	}
	if ua.IsMobile {
		row.IsMobile = 1
	}
	if ua.IsBot {
		row.IsBot = 1
	}

	return row
}
