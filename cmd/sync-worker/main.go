package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stocksync-backend/internal/catalog"
	"github.com/angelmondragon/stocksync-backend/internal/scheduler"
	"github.com/angelmondragon/stocksync-backend/internal/stock"
	"github.com/angelmondragon/stocksync-backend/internal/syncer"
	"github.com/angelmondragon/stocksync-backend/internal/syncer/portal"
	"github.com/angelmondragon/stocksync-backend/internal/synclog"
	"github.com/angelmondragon/stocksync-backend/pkg/config"
	"github.com/angelmondragon/stocksync-backend/pkg/db"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
	"github.com/angelmondragon/stocksync-backend/pkg/metrics"
	"github.com/angelmondragon/stocksync-backend/pkg/migrate"
)

// sync-worker runs the recurring sync loops without the admin API. It
// exposes only a metrics endpoint.
func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sync-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	conn := dbClient.DB()

	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalog.NewServiceParams{
		Repo:   catalogRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	stockSvc, err := stock.NewService(stock.NewServiceParams{
		Client: dbClient,
		Repo:   stock.NewRepository(conn),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	syncLogSvc, err := synclog.NewService(synclog.NewServiceParams{
		Repo:      synclog.NewRepository(conn),
		Logger:    logg,
		MaxErrors: cfg.Sync.MaxRunErrors,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync log service", err)
		os.Exit(1)
	}

	purchaseFetcher, err := portal.NewPurchaseClient(cfg.PurchasePortal)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase portal client", err)
		os.Exit(1)
	}
	salesFetcher, err := portal.NewSalesClient(cfg.SalesPortal)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales portal client", err)
		os.Exit(1)
	}

	purchase, err := syncer.NewPurchaseOrchestrator(syncer.PurchaseParams{
		Fetcher:     purchaseFetcher,
		Repo:        syncer.NewPurchaseRepository(conn),
		Catalog:     catalogSvc,
		Stock:       stockSvc,
		Logger:      logg,
		ListLimit:   cfg.Sync.ListLimit,
		DetailDelay: cfg.Sync.DetailDelay,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase orchestrator", err)
		os.Exit(1)
	}

	sales, err := syncer.NewSalesOrchestrator(syncer.SalesParams{
		Fetcher:     salesFetcher,
		Repo:        syncer.NewSalesRepository(conn),
		Catalog:     catalogSvc,
		Stock:       stockSvc,
		Logger:      logg,
		ListLimit:   cfg.Sync.ListLimit,
		DetailDelay: cfg.Sync.DetailDelay,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sales orchestrator", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)

	sched, err := scheduler.NewService(scheduler.ServiceParams{
		Logger:          logg,
		Purchase:        purchase,
		Sales:           sales,
		SyncLog:         syncLogSvc,
		Metrics:         syncMetrics,
		Interval:        cfg.Scheduler.Interval,
		RefreshInterval: cfg.Scheduler.CatalogRefreshInterval,
		RefreshJob:      catalog.NewRefreshJob(catalogRepo, catalogSvc, logg),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
		}
	}()
	defer metricsServer.Close()

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Scheduler.Interval.String(),
	})
	logg.Info(startCtx, "starting sync worker")

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(startCtx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(startCtx, "sync worker shutting down gracefully")
}
