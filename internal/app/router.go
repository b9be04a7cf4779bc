package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/helios-b2b/helios/internal/observability"
	"github.com/helios-b2b/helios/internal/pricing"
	"github.com/helios-b2b/helios/internal/stock"
	"github.com/helios-b2b/helios/internal/sync"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SyncHandler    *sync.Handler
	PricingHandler *pricing.Handler
	StockHandler   *stock.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with Helios defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/sync", func(sr chi.Router) {
			limit := 60
			if params.Config != nil && params.Config.SyncRateLimit > 0 {
				limit = params.Config.SyncRateLimit
			}
			sr.Use(httprate.LimitByIP(limit, time.Minute))
			params.SyncHandler.MountRoutes(sr)
		})
		params.PricingHandler.MountRoutes(api)
		params.StockHandler.MountRoutes(api)
	})

	return r
}
