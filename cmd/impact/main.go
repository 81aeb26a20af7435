package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/storm-energy-impact/internal/adapter/http"
	"github.com/couchcryptid/storm-energy-impact/internal/adapter/gridfile"
	kafkaadapter "github.com/couchcryptid/storm-energy-impact/internal/adapter/kafka"
	"github.com/couchcryptid/storm-energy-impact/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-energy-impact/internal/adapter/registry"
	"github.com/couchcryptid/storm-energy-impact/internal/config"
	"github.com/couchcryptid/storm-energy-impact/internal/domain"
	"github.com/couchcryptid/storm-energy-impact/internal/observability"
	"github.com/couchcryptid/storm-energy-impact/internal/pipeline"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	grid, err := gridfile.Load(cfg.GridPath)
	if err != nil {
		logger.Error("failed to load grid", "path", cfg.GridPath, "error", err)
		os.Exit(1)
	}
	logger.Info("grid loaded",
		"path", cfg.GridPath,
		"times", len(grid.Times()),
		"lats", len(grid.Latitudes()),
		"lons", len(grid.Longitudes()),
		"variables", grid.Variables(),
	)

	facilities, err := loadFacilities(cfg, logger)
	if err != nil {
		logger.Error("failed to load facilities", "path", cfg.FacilitiesPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fill missing coordinates and place names (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
		facilities = registry.Resolve(ctx, geocoder, facilities, cfg.FacilityState, logger)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
	}

	p := pipeline.New(grid, facilities, pipeline.SettingsFromConfig(cfg), publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the analysis once; the report stays available on /report.
	go func() {
		if _, err := p.Run(ctx); err != nil {
			logger.Error("impact analysis error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// loadFacilities reads the generator listing and appends the built-in metro
// load centers when enabled.
func loadFacilities(cfg *config.Config, logger *slog.Logger) ([]domain.Facility, error) {
	filter := registry.Filter{
		State:    cfg.FacilityState,
		ActiveBy: time.Date(cfg.EventStart.Year(), cfg.EventStart.Month(), 1, 0, 0, 0, 0, time.UTC),
		Panel:    domain.PanelSpec{Derate: cfg.SolarDerate},
	}
	facilities, stats, err := registry.LoadGenerators(cfg.FacilitiesPath, filter)
	if err != nil {
		return nil, err
	}
	logger.Info("generators loaded",
		"path", cfg.FacilitiesPath,
		"rows", stats.Rows,
		"kept", stats.Kept,
		"skipped", stats.Skipped,
	)

	if cfg.IncludeMetros {
		metros := registry.TexasMetros()
		facilities = append(facilities, metros...)
		logger.Info("metro load centers added", "count", len(metros))
	}
	return facilities, nil
}
