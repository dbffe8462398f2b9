package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/stocksync-backend/api/routes"
	"github.com/angelmondragon/stocksync-backend/internal/catalog"
	"github.com/angelmondragon/stocksync-backend/internal/scheduler"
	"github.com/angelmondragon/stocksync-backend/internal/stock"
	"github.com/angelmondragon/stocksync-backend/internal/syncer"
	"github.com/angelmondragon/stocksync-backend/internal/syncer/portal"
	"github.com/angelmondragon/stocksync-backend/internal/synclog"
	"github.com/angelmondragon/stocksync-backend/pkg/config"
	"github.com/angelmondragon/stocksync-backend/pkg/db"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
	"github.com/angelmondragon/stocksync-backend/pkg/metrics"
	"github.com/angelmondragon/stocksync-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	deps, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		go func() {
			if err := deps.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "scheduler stopped unexpectedly", err)
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"scheduler": cfg.Scheduler.Enabled,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(context.Background(), "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(startCtx, "api server stopped")
}

// buildServices wires the full dependency graph behind the router.
func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Deps, error) {
	var deps routes.Deps

	conn := dbClient.DB()

	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalog.NewServiceParams{
		Repo:   catalogRepo,
		Logger: logg,
	})
	if err != nil {
		return deps, err
	}

	stockSvc, err := stock.NewService(stock.NewServiceParams{
		Client: dbClient,
		Repo:   stock.NewRepository(conn),
		Logger: logg,
	})
	if err != nil {
		return deps, err
	}

	syncLogSvc, err := synclog.NewService(synclog.NewServiceParams{
		Repo:      synclog.NewRepository(conn),
		Logger:    logg,
		MaxErrors: cfg.Sync.MaxRunErrors,
	})
	if err != nil {
		return deps, err
	}

	purchaseFetcher, err := portal.NewPurchaseClient(cfg.PurchasePortal)
	if err != nil {
		return deps, err
	}
	salesFetcher, err := portal.NewSalesClient(cfg.SalesPortal)
	if err != nil {
		return deps, err
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
		return deps, err
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
		return deps, err
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
		return deps, err
	}

	deps = routes.Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Scheduler: sched,
		Orchestrators: map[enums.SyncSource]syncer.Orchestrator{
			purchase.Source(): purchase,
			sales.Source():    sales,
		},
		SyncLog:  syncLogSvc,
		Stock:    stockSvc,
		Catalog:  catalogSvc,
		Registry: registry,
	}
	return deps, nil
}
