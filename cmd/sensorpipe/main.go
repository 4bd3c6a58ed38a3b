package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/city-sensor-pipeline/internal/adapter/dataset"
	httpadapter "github.com/couchcryptid/city-sensor-pipeline/internal/adapter/http"
	"github.com/couchcryptid/city-sensor-pipeline/internal/adapter/websocket"
	"github.com/couchcryptid/city-sensor-pipeline/internal/config"
	"github.com/couchcryptid/city-sensor-pipeline/internal/observability"
	"github.com/couchcryptid/city-sensor-pipeline/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	source := dataset.NewCachedSource(
		dataset.NewSource(cfg.DataBaseURL, cfg.FetchTimeout, metrics, logger),
		cfg.FetchCacheSize, cfg.FetchCacheTTL, metrics,
	)
	logger.Info("dataset source configured",
		"base", cfg.DataBaseURL,
		"cache_size", cfg.FetchCacheSize,
		"cache_ttl", cfg.FetchCacheTTL,
	)

	hub := websocket.NewHub(httpadapter.NewStateView, metrics, logger)

	p := pipeline.New(source, pipeline.Config{
		Cities:      cfg.Cities,
		DefaultCity: cfg.DefaultCity,
		Location:    cfg.Location,
		Publisher:   hub,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start notification hub.
	go hub.Run(ctx)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingestion pipeline.
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	logger.Info("shutdown complete")
}
