package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/fews-client/internal/adapter/fews"
	"github.com/couchcryptid/fews-client/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/fews-client/internal/adapter/kafka"
	"github.com/couchcryptid/fews-client/internal/config"
	"github.com/couchcryptid/fews-client/internal/domain"
	"github.com/couchcryptid/fews-client/internal/exporter"
	"github.com/couchcryptid/fews-client/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client, err := fews.NewClient(fews.Options{
		BaseURL:      cfg.FEWS.APIURL,
		Token:        cfg.FEWS.Token,
		Authenticate: cfg.FEWS.Authenticate,
		VerifySSL:    cfg.FEWS.VerifySSL,
		Timeout:      cfg.FEWS.Timeout,
		RateLimit:    cfg.FEWS.RateLimit,
	}, metrics, logger)
	if err != nil {
		logger.Error("failed to create fews client", "error", err)
		os.Exit(1)
	}
	if !cfg.FEWS.VerifySSL {
		logger.Warn("TLS certificate verification disabled", "url", cfg.FEWS.APIURL)
	}

	// Cache is feature-flagged via FEWS_CACHE_SIZE (0 disables).
	var source domain.TimeSeriesSource = client
	if cfg.FEWS.CacheSize > 0 {
		source, err = fews.NewCachedSource(client, cfg.FEWS.CacheSize, metrics)
		if err != nil {
			logger.Error("failed to create time series cache", "error", err)
			os.Exit(1)
		}
		logger.Info("time series cache enabled", "cache_size", cfg.FEWS.CacheSize)
	}

	writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)

	exp := exporter.New(source, writer, exporter.Options{
		Query: domain.TimeSeriesQuery{
			LocationIDs:  cfg.LocationIDs,
			ParameterIDs: cfg.ParameterIDs,
		},
		PollInterval: cfg.PollInterval,
		Lookback:     cfg.Lookback,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, exp, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start export loop.
	go func() {
		if err := exp.Run(ctx); err != nil {
			logger.Error("exporter error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
