// Command etl runs one goose mark-resight export: it pulls the survey layers
// from the configured feature service, transforms them, and writes the
// archival, migratory-birds, incidental-bands, and per-site artifacts into
// the output directory. Exit status is non-zero if the run fails.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pacificflyway/goose-resight-etl/internal/adapter/arcgis"
	"github.com/pacificflyway/goose-resight-etl/internal/adapter/export"
	"github.com/pacificflyway/goose-resight-etl/internal/config"
	"github.com/pacificflyway/goose-resight-etl/internal/observability"
	"github.com/pacificflyway/goose-resight-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat).
		With("run_id", uuid.NewString())
	metrics := observability.NewMetrics()

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		os.Exit(1)
	}
	start, end, err := cfg.Window(loc)
	if err != nil {
		logger.Error("invalid survey window", "error", err)
		os.Exit(1)
	}

	client := arcgis.NewClient(cfg.FeatureServiceURL, cfg.Token, arcgis.Layers{
		Events: cfg.EventsLayer,
		Points: cfg.PointsLayer,
		Bands:  cfg.BandsLayer,
	}, cfg.HTTPTimeout, logger)

	workbooks, err := export.NewWorkbooks(cfg.OutputDir)
	if err != nil {
		logger.Error("failed to prepare output dir", "error", err)
		os.Exit(1)
	}
	csvs, err := export.NewCSVs(cfg.OutputDir)
	if err != nil {
		logger.Error("failed to prepare output dir", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(client, workbooks, csvs, logger, metrics, clockwork.NewRealClock(), pipeline.Options{
		Start: start,
		End:   end,
		Local: loc,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := p.Run(ctx)

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(cfg.PushgatewayURL, "goose-resight-etl"); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("export run failed", "error", runErr)
		os.Exit(1)
	}
}
