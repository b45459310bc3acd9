package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the public endpoints, the bearer-guarded admin endpoints
// and the prometheus scrape handler.
func NewRouter(h *Handler, validator TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	h.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(validator, logger))
		h.RegisterAdmin(r)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
