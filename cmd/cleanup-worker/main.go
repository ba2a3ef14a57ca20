package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Varun5711/shortbox/internal/cleanup"
	"github.com/Varun5711/shortbox/internal/config"
	"github.com/Varun5711/shortbox/internal/lock"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/metrics"
	"github.com/Varun5711/shortbox/internal/redis"
	"github.com/Varun5711/shortbox/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

func main() {
	log := logger.New("cleanup-worker")
	defer log.Sync()
	log.SetStdLog()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to open %s store: %v", cfg.Database.Driver, err)
	}
	defer store.Close()

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	var locker cleanup.Locker
	if redisClient != nil {
		locker = lock.NewDistributedLock(redisClient.Raw(), cfg.Cleanup.LockKey, cfg.Cleanup.LockTTL, lock.WithLogger(log))
	}

	job := cleanup.NewJob(store, locker, cfg.Cleanup.Grace, log, metrics.New(prometheus.DefaultRegisterer))

	run := func() {
		if _, err := job.Run(ctx); err != nil {
			log.Error("Cleanup failed: %v", err)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Cleanup.Schedule, run); err != nil {
		log.Fatal("Invalid CLEANUP_SCHEDULE %q: %v", cfg.Cleanup.Schedule, err)
	}

	log.Info("Cleanup worker started with schedule %s, grace %s", cfg.Cleanup.Schedule, cfg.Cleanup.Grace)
	run()
	c.Start()

	<-ctx.Done()
	log.Info("Shutting down")
	<-c.Stop().Done()
}
