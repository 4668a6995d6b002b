package app

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/rs/zerolog/log"

	"Hydrosync/internal/core"
	"Hydrosync/internal/parser"
)

const maxBodyBytes = 4 << 10

type errorResponse struct {
	Error string `json:"error"`
}

type commandResponse struct {
	Running  bool    `json:"running"`
	Setpoint float64 `json:"setpoint"`
}

type loadRequest struct {
	Ohms *float64 `json:"ohms"`
}

type loadResponse struct {
	LoadOhms float64 `json:"load_ohms"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Str("component", "dashboard").Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleView returns the last rendered view, or 204 before the first one.
func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	view, ok := s.station.Consumer.LastView()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.station.Status())
}

// handleCommand accepts {"action": ..., "value": ...} and forwards it to the
// device. 503 means the device is not reachable.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read command")
		return
	}
	cmd, err := parser.NewJSONParser().DecodeCommand(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	commander := s.station.Commander
	err = commander.Apply(r.Context(), cmd)
	switch {
	case err == nil:
		log.Info().Str("component", "dashboard").Str("action", string(cmd.Action)).Msg("command accepted")
		writeJSON(w, http.StatusAccepted, commandResponse{
			Running:  commander.Running(),
			Setpoint: commander.Setpoint(),
		})
	case errors.Is(err, core.ErrEncodingFailure):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrWriteFailure):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Str("component", "dashboard").Msg("command failed")
		writeError(w, http.StatusInternalServerError, "command failed")
	}
}

// handleLoad updates the load resistance used for motor-mode derivations.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid load request")
		return
	}
	if req.Ohms == nil || *req.Ohms <= 0 || math.IsInf(*req.Ohms, 0) || math.IsNaN(*req.Ohms) {
		writeError(w, http.StatusBadRequest, "ohms must be a positive number")
		return
	}
	s.station.Consumer.SetLoad(*req.Ohms)
	log.Info().Str("component", "dashboard").Float64("ohms", *req.Ohms).Msg("load resistance changed")
	writeJSON(w, http.StatusOK, loadResponse{LoadOhms: s.station.Consumer.Load()})
}
