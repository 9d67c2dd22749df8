package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Elicit/internal/broker"
	"github.com/MikeSquared-Agency/Elicit/internal/regret"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

func NewRouter(s store.Store, engine *regret.Engine, b *broker.Broker, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	regretH := NewRegretHandler(engine, s)
	elicitations := NewElicitationsHandler(b)
	catalogs := NewCatalogsHandler(s)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ClientIDMiddleware)

		r.Post("/regret/pairwise", regretH.Pairwise)
		r.Post("/regret/minimax", regretH.Minimax)

		r.Post("/elicitations", elicitations.Create)
		r.Post("/elicitations/async", elicitations.Submit)
		r.Get("/elicitations/{id}", elicitations.Get)

		r.Post("/catalogs", catalogs.Create)
		r.Get("/catalogs", catalogs.List)
		r.Get("/catalogs/{id}", catalogs.Get)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Delete("/catalogs/{id}", catalogs.Delete)
			r.Get("/stats", elicitations.Stats)
		})
	})

	return r
}

func NewMetricsRouter(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}
