package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Varun5711/shortbox/internal/config"
	"github.com/Varun5711/shortbox/internal/handlers"
	"github.com/Varun5711/shortbox/internal/idgen"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/metrics"
	"github.com/Varun5711/shortbox/internal/qrcode"
	"github.com/Varun5711/shortbox/internal/rpc"
	"github.com/Varun5711/shortbox/internal/service"
	"github.com/Varun5711/shortbox/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log := logger.New("url-service")
	defer log.Sync()
	log.SetStdLog()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to open %s store: %v", cfg.Database.Driver, err)
	}
	defer store.Close()

	codes, err := idgen.NewGenerator(
		idgen.WithLength(cfg.ShortCode.Length),
		idgen.WithStrictLength(cfg.ShortCode.StrictLen),
	)
	if err != nil {
		log.Fatal("Failed to create short code generator: %v", err)
	}

	qr, err := qrcode.NewFileGenerator(cfg.QR.Dir, cfg.QR.Size)
	if err != nil {
		log.Fatal("Failed to prepare QR directory: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	svc := service.New(store, codes, qr, log, m, service.Config{
		BaseURL:      cfg.Services.BaseURL,
		MaxAttempts:  cfg.ShortCode.MaxAttempts,
		MaxClipBytes: cfg.Validation.MaxClipBytes,
	})

	grpcServer := rpc.NewServer(svc, store, log).NewGRPCServer()

	listener, err := net.Listen("tcp", ":"+cfg.Services.URLServicePort)
	if err != nil {
		log.Fatal("Failed to listen on :%s: %v", cfg.Services.URLServicePort, err)
	}

	r := chi.NewRouter()
	r.Get("/health", handlers.Health(map[string]handlers.Check{"store": store.Ping}, nil))
	r.Handle("/metrics", m.Handler())
	ops := &http.Server{Addr: ":" + cfg.Services.MetricsPort, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server error: %v", err)
		}
	}()

	go func() {
		log.Info("Listening on :%s (%s store, metrics on :%s)", cfg.Services.URLServicePort, cfg.Database.Driver, cfg.Services.MetricsPort)
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ops.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}
