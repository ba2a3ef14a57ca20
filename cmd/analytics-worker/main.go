package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Varun5711/shortbox/internal/analytics"
	"github.com/Varun5711/shortbox/internal/clickhouse"
	"github.com/Varun5711/shortbox/internal/config"
	"github.com/Varun5711/shortbox/internal/events"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/redis"
)

func main() {
	log := logger.New("analytics-worker")
	defer log.Sync()
	log.SetStdLog()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	ch, err := clickhouse.NewClient(ctx, cfg.ClickHouse)
	if err != nil {
		log.Fatal("Failed to connect to ClickHouse: %v", err)
	}
	defer ch.Close()

	if err := ch.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to prepare ClickHouse schema: %v", err)
	}

	consumer := events.NewConsumer(redisClient.Raw(), events.ConsumerConfig{
		Stream:    cfg.Redis.StreamName,
		Group:     cfg.Analytics.ConsumerGroup,
		Name:      cfg.Analytics.ConsumerName,
		BatchSize: cfg.Analytics.BatchSize,
		Block:     cfg.Analytics.BlockTime,
	})
	if err := consumer.EnsureGroup(ctx); err != nil {
		log.Fatal("%v", err)
	}

	log.Info("Processing resolution events from %s", cfg.Redis.StreamName)
	analytics.NewWorker(consumer, ch, log, cfg.Analytics.PollInterval).Run(ctx)
	log.Info("Shutting down")
}
