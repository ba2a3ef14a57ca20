package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one decoded stream entry. Event is nil when the entry could not
// be parsed; it should still be acknowledged.
type Message struct {
	ID    string
	Event *ResolutionEvent
	Err   error
}

type ConsumerConfig struct {
	Stream    string
	Group     string
	Name      string
	BatchSize int
	Block     time.Duration
}

// Consumer reads resolution events through a redis consumer group. It starts
// by re-reading entries delivered to this consumer but never acknowledged,
// then moves on to new entries.
type Consumer struct {
	client  *redis.Client
	cfg     ConsumerConfig
	// backlog is set while this consumer's pending entries list may be non-empty.
	backlog atomic.Bool
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	c := &Consumer{client: client, cfg: cfg}
	c.backlog.Store(true)
	return c
}

// Rewind makes the next Read return unacknowledged entries again. Call it
// after a batch could not be stored.
func (c *Consumer) Rewind() {
	c.backlog.Store(true)
}

// EnsureGroup creates the stream and consumer group when missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Read returns at most one batch. Pending entries come first; once none are
// left it blocks for up to the configured block time waiting for new ones.
// It returns no messages and no error when the wait times out.
func (c *Consumer) Read(ctx context.Context) ([]Message, error) {
	if c.backlog.Load() {
		// A negative block skips BLOCK; history reads never wait.
		msgs, err := c.read(ctx, "0", -1)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			return msgs, nil
		}
		c.backlog.Store(false)
	}
	return c.read(ctx, ">", c.cfg.Block)
}

func (c *Consumer) read(ctx context.Context, from string, block time.Duration) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Streams:  []string{c.cfg.Stream, from},
		Count:    int64(c.cfg.BatchSize),
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var out []Message
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			event, err := ParseResolutionEvent(msg.Values)
			out = append(out, Message{ID: msg.ID, Event: event, Err: err})
		}
	}
	return out, nil
}

func (c *Consumer) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, ids...).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge messages: %w", err)
	}
	return nil
}
