package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", s.handleDashboard)
	r.Get("/ws", s.hub.ServeWS)
	r.Get("/api/view", s.handleView)
	r.Get("/api/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.station.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(s.limiter))
		r.Post("/api/command", s.handleCommand)
		r.Put("/api/load", s.handleLoad)
	})
	return r
}
