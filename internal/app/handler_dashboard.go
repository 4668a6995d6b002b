package app

import (
	"embed"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templates embed.FS

// handleDashboard renders the live bench page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	log.Debug().Str("component", "dashboard").Str("remote", r.RemoteAddr).Msg("GET /")
	status := s.station.Status()
	data := map[string]any{
		"Title":     "Hydrosync Bench",
		"Port":      status.Port,
		"AnalogMax": status.AnalogMax,
		"LoadOhms":  status.LoadOhms,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
