package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stocksync-backend/api/controllers"
	"github.com/angelmondragon/stocksync-backend/api/middleware"
	"github.com/angelmondragon/stocksync-backend/internal/catalog"
	"github.com/angelmondragon/stocksync-backend/internal/scheduler"
	"github.com/angelmondragon/stocksync-backend/internal/stock"
	"github.com/angelmondragon/stocksync-backend/internal/syncer"
	"github.com/angelmondragon/stocksync-backend/internal/synclog"
	"github.com/angelmondragon/stocksync-backend/pkg/config"
	"github.com/angelmondragon/stocksync-backend/pkg/db"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Scheduler     *scheduler.Service
	Orchestrators map[enums.SyncSource]syncer.Orchestrator
	SyncLog       synclog.Service
	Stock         stock.Service
	Catalog       catalog.Service
	// Registry, when set, exposes Prometheus metrics on /metrics.
	Registry *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sync", func(r chi.Router) {
			r.Get("/runs", controllers.ListSyncRuns(deps.SyncLog, logg))
			r.Get("/status", controllers.SchedulerStatus(deps.Scheduler, logg))
			r.Route("/{source}", func(r chi.Router) {
				r.Post("/trigger", controllers.TriggerSync(deps.Scheduler, logg))
				r.Post("/backfill", controllers.BackfillDetail(deps.Orchestrators, logg))
				r.Post("/records/{number}/retry", controllers.RetryRecord(deps.Orchestrators, logg))
			})
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/summaries", controllers.StockSummaries(deps.Stock, logg))
			r.Get("/summaries/{sku}", controllers.StockSummary(deps.Stock, logg))
			r.Post("/summaries/{sku}/recalculate", controllers.RecalculateStock(deps.Stock, logg))
			r.Get("/movements", controllers.StockMovements(deps.Stock, logg))
			r.Post("/adjustments", controllers.CreateAdjustment(deps.Stock, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/unmapped", controllers.ListUnmapped(deps.Catalog, logg))
			r.Post("/remap", controllers.RemapIdentity(deps.Catalog, logg))
		})
	})

	return r
}
