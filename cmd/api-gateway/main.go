package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Varun5711/shortbox/internal/analytics"
	"github.com/Varun5711/shortbox/internal/clickhouse"
	"github.com/Varun5711/shortbox/internal/config"
	"github.com/Varun5711/shortbox/internal/handlers"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/metrics"
	"github.com/Varun5711/shortbox/internal/middleware"
	"github.com/Varun5711/shortbox/internal/redis"
	"github.com/Varun5711/shortbox/internal/rpc"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log := logger.New("api-gateway")
	defer log.Sync()
	log.SetStdLog()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	ctx := context.Background()

	client, err := rpc.Dial(cfg.Services.URLServiceAddr, cfg.Services.RequestTimeout)
	if err != nil {
		log.Fatal("Failed to connect to url-service: %v", err)
	}
	defer client.Close()

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	proxies, err := middleware.ParseTrustedProxies(cfg.Services.TrustedProxies)
	if err != nil {
		log.Fatal("Invalid TRUSTED_PROXIES: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP(proxies))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(m))
	if cfg.RateLimit.Enabled && redisClient != nil {
		r.Use(middleware.NewRateLimiter(redisClient.Raw(), cfg.RateLimit.Requests, cfg.RateLimit.Window, log).Middleware)
	}

	checks := map[string]handlers.Check{}
	stats := map[string]handlers.Stats{}
	if redisClient != nil {
		checks["redis"] = redisClient.Ping
		stats["redis"] = redisClient.Stats
	}
	r.Get("/health", handlers.Health(checks, stats))
	r.Handle("/metrics", m.Handler())

	handlers.NewAPIHandler(client, log).Register(r)

	ch, err := clickhouse.NewClient(ctx, cfg.ClickHouse)
	if err != nil {
		log.Warn("ClickHouse unavailable, stats endpoint disabled: %v", err)
	} else {
		defer ch.Close()
		handlers.NewStatsHandler(analytics.NewService(ch), log).Register(r)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Services.APIGatewayPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Listening on :%s", cfg.Services.APIGatewayPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown error: %v", err)
	}
}
