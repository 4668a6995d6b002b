// Package app serves the bench dashboard: a live websocket feed of rendered
// views, a small JSON API for status and commands, and prometheus metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"Hydrosync/internal/core"
	"Hydrosync/internal/model"
)

const (
	shutdownTimeout = 2 * time.Second
	cleanupInterval = 5 * time.Minute
)

// Server is the dashboard HTTP server.
type Server struct {
	station *core.Station
	hub     *Hub
	limiter *IPRateLimiter
	tmpl    *template.Template
	handler http.Handler
	addr    string
}

// NewServer builds the router for st. hub must be the renderer the station
// was created with.
func NewServer(cfg model.DashboardConfig, st *core.Station, hub *Hub) (*Server, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	s := &Server{
		station: st,
		hub:     hub,
		limiter: NewIPRateLimiter(cfg.CommandsPerMinute, cfg.CommandBurst),
		tmpl:    tmpl,
		addr:    normalizeAddr(cfg.Addr),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve listens until ctx is cancelled, then shuts down gracefully. An
// empty address disables the dashboard.
func (s *Server) Serve(ctx context.Context) error {
	if s.addr == "" {
		log.Info().Str("component", "dashboard").Msg("dashboard disabled (empty address)")
		return nil
	}
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("component", "dashboard").Msgf("web server listening at http://%s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.limiter.RunCleanup(cleanupCtx, cleanupInterval)

	select {
	case err := <-errCh:
		return fmt.Errorf("dashboard server: %w", err)
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Str("component", "dashboard").Msg("shutdown error")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard server: %w", err)
	}
	log.Info().Str("component", "dashboard").Msg("web server stopped cleanly")
	return nil
}

// normalizeAddr accepts "8080", ":8080", "host:8080" or a URL.
func normalizeAddr(addr string) string {
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimSuffix(addr, "/")
	if addr != "" && !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	return addr
}
