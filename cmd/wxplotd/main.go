// Command wxplotd is the render worker: it consumes plot requests from Kafka,
// renders them and publishes the results, serving health and metrics over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/wx-graphics/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wx-graphics/internal/adapter/kafka"
	"github.com/couchcryptid/wx-graphics/internal/catalog"
	"github.com/couchcryptid/wx-graphics/internal/config"
	"github.com/couchcryptid/wx-graphics/internal/observability"
	"github.com/couchcryptid/wx-graphics/internal/pipeline"
	"github.com/couchcryptid/wx-graphics/internal/plots"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := plots.NewRunnerFromConfig(cfg, clockwork.NewRealClock(), metrics, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	loaders := pipeline.MultiLoader{writer}

	// Optional product catalog (CATALOG_DRIVER / CATALOG_DSN).
	var products httpadapter.ProductLister
	var cat *catalog.Catalog
	if cfg.CatalogEnabled() {
		cat, err = catalog.Open(cfg.CatalogDriver, cfg.CatalogDSN, metrics, logger)
		if err != nil {
			logger.Error("failed to open catalog", "error", err)
			os.Exit(1)
		}
		if err := cat.Migrate(ctx); err != nil {
			logger.Error("failed to migrate catalog", "error", err)
			os.Exit(1)
		}
		loaders = append(loaders, cat)
		products = cat
		logger.Info("product catalog enabled", "driver", cfg.CatalogDriver)
	} else {
		logger.Info("product catalog disabled")
	}

	transformer := pipeline.NewTransformer(runner, logger)
	p := pipeline.New(reader, transformer, loaders, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, products, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start render pipeline.
	go func() {
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
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if cat != nil {
		if err := cat.Close(); err != nil {
			logger.Error("catalog close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
