package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher accepts resolution events. A nil Publisher drops them.
type Publisher interface {
	Publish(ctx context.Context, event *ResolutionEvent) error
}

type Producer struct {
	client     *redis.Client
	streamName string
	maxLen     int64
}

// NewProducer writes to streamName, trimming it to roughly maxLen entries
// when maxLen is positive.
func NewProducer(client *redis.Client, streamName string, maxLen int64) *Producer {
	return &Producer{
		client:     client,
		streamName: streamName,
		maxLen:     maxLen,
	}
}

func (p *Producer) Publish(ctx context.Context, event *ResolutionEvent) error {
	args := &redis.XAddArgs{
		Stream: p.streamName,
		Values: event.Values(),
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish resolution event: %w", err)
	}

	return nil
}

func (p *Producer) StreamLength(ctx context.Context) (int64, error) {
	result := p.client.XLen(ctx, p.streamName)
	return result.Val(), result.Err()
}
