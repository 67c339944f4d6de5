// Command server runs the warehouse regression-test HTTP service.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"sqlregress/internal/api"
	"sqlregress/internal/blob"
	"sqlregress/internal/config"
	"sqlregress/internal/execute"
	"sqlregress/internal/history"
	"sqlregress/internal/middleware"
	"sqlregress/internal/oracle"
	"sqlregress/internal/pipe"
	"sqlregress/internal/report"
	"sqlregress/internal/resolve"
	"sqlregress/internal/service"
	"sqlregress/internal/synth"
	"sqlregress/internal/warehouse"
)

func main() {
	ctx := context.Background()

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	warehouseDB, err := sql.Open("duckdb", cfg.WarehouseDSN)
	if err != nil {
		logger.Error("failed to open warehouse connection", "error", err)
		os.Exit(1)
	}
	defer warehouseDB.Close()
	wh := warehouse.New(warehouseDB, logger)

	gen, err := oracle.NewGemini(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model, logger)
	if err != nil {
		logger.Error("failed to create oracle", "error", err)
		os.Exit(1)
	}

	blobs, err := blob.NewFromConfig(ctx, &cfg.Blob)
	if err != nil {
		logger.Error("failed to create blob store", "error", err)
		os.Exit(1)
	}
	if blobs == nil {
		logger.Warn("no blob backend configured; pipe tests will fail at upload")
	}

	hist, err := history.Open(cfg.HistoryDBPath, logger)
	if err != nil {
		logger.Error("failed to open run history", "error", err)
		os.Exit(1)
	}
	defer hist.Close()

	svc := service.New(service.Deps{
		Defs:     wh,
		Resolver: resolve.New(gen, wh, logger),
		Synth:    synth.NewSynthesizer(gen, logger),
		Engine:   execute.NewEngine(wh, logger),
		Pipes:    pipe.New(wh, logger),
		Feeds:    synth.NewFeedGenerator(gen, logger),
		Verifier: execute.NewVerifier(wh, blobs, cfg.SettleInterval, logger),
		Reports:  report.NewJSONWriter(cfg.ReportDir, logger),
		History:  hist,
		Logger:   logger,
	})

	if cfg.ScheduleManifest != "" {
		manifest, err := service.LoadManifest(cfg.ScheduleManifest)
		if err != nil {
			logger.Error("failed to load schedule manifest", "error", err)
			os.Exit(1)
		}
		sched := service.NewScheduler(svc, logger)
		if err := sched.Register(manifest); err != nil {
			logger.Error("failed to register schedules", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	router := api.NewHandler(svc, logger).Routes(api.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})

	logger.Info("HTTP API listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
