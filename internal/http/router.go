// Package http assembles the trigger server's routes.
package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/preston-bernstein/matchday-notifier/internal/http/handlers"
	"github.com/preston-bernstein/matchday-notifier/internal/http/middleware"
	"github.com/preston-bernstein/matchday-notifier/internal/metrics"
)

// RouterConfig carries what the router mounts besides the handler.
type RouterConfig struct {
	Logger       *slog.Logger
	Metrics      *metrics.Recorder
	TriggerToken string
}

// NewRouter registers the HTTP routes on a chi mux.
func NewRouter(h *handlers.Handler, cfg RouterConfig) nethttp.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(cfg.Logger, cfg.Metrics))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Get("/competitions", h.Competitions)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBearer(cfg.TriggerToken, cfg.Logger))
		r.Post("/competitions/{competition}/poll", h.Poll)
		r.Put("/subscribers/{subscriber}/teams", h.SetSubscriberTeams)
	})

	r.NotFound(func(w nethttp.ResponseWriter, req *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(nethttp.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})
	return r
}
