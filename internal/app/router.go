package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-wms/meridian/internal/insights"
	"github.com/meridian-wms/meridian/internal/inventory"
	"github.com/meridian-wms/meridian/internal/live"
	"github.com/meridian-wms/meridian/internal/masterdata/brokers"
	"github.com/meridian-wms/meridian/internal/notify"
	"github.com/meridian-wms/meridian/internal/observability"
	"github.com/meridian-wms/meridian/internal/orders"
	"github.com/meridian-wms/meridian/internal/shipping/inbound"
	"github.com/meridian-wms/meridian/internal/shipping/outbound"
	"github.com/meridian-wms/meridian/jobs"
)

// RouterParams collects every handler mounted by the API router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	Inventory     *inventory.Handler
	Inbound       *inbound.Handler
	Outbound      *outbound.Handler
	Orders        *orders.Handler
	Brokers       *brokers.Handler
	Insights      *insights.Handler
	Notifications *notify.Handler
	Jobs          *jobs.Handler
	LiveStream    *live.SSEHandler
}

// NewRouter wires the middleware stack and mounts all module routes.
func NewRouter(p RouterParams) chi.Router {
	mw := MiddlewareConfig{
		Logger:  p.Logger,
		Config:  p.Config,
		Metrics: p.Metrics,
	}

	r := chi.NewRouter()
	r.Use(BaseMiddleware(mw)...)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Group(func(g chi.Router) {
		g.Use(APIMiddleware(mw)...)
		g.Route("/api/v1", func(api chi.Router) {
			api.Route("/inventory", p.Inventory.MountRoutes)
			api.Route("/shipments/inbound", p.Inbound.MountRoutes)
			api.Route("/shipments/outbound", p.Outbound.MountRoutes)
			api.Route("/orders", p.Orders.MountRoutes)
			api.Route("/brokers", p.Brokers.MountRoutes)
			api.Route("/insights", p.Insights.MountRoutes)
			api.Route("/notifications", p.Notifications.MountRoutes)
			api.Route("/jobs", p.Jobs.MountRoutes)
		})
	})

	if p.LiveStream != nil {
		r.Method(http.MethodGet, "/api/v1/live", p.LiveStream)
	}

	return r
}
