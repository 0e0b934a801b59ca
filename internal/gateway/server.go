package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if g.metrics != nil {
		r.Use(instrument(g.metrics))
	}

	// Public: IRC users follow file links, monitors probe health.
	r.Get("/health", g.handleHealth())
	if g.files != nil {
		r.Get("/{segment}/*", g.handleFile())
		r.Head("/{segment}/*", g.handleFile())
	}

	// Operator endpoints. /metrics stays open when no auth is configured so a
	// loopback Prometheus can scrape it; /status needs auth.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.logger))
			if g.metrics != nil {
				r.Handle("/metrics", g.metrics.Handler())
			}
			r.Get("/status", g.handleStatus())
		})
	} else if g.metrics != nil {
		r.Handle("/metrics", g.metrics.Handler())
	}

	return r
}
