package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"toyoko_watch/internal/app"
)

// StatusSource exposes the most recent cycle outcome for the ops endpoint.
type StatusSource interface {
	LastSummaries() []app.TargetSummary
}

func (s *Server) MountOps(src StatusSource) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Get("/v1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := struct {
			Targets []app.TargetSummary `json:"targets"`
		}{Targets: src.LastSummaries()}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error().Err(err).Msg("write status response failed")
		}
	})
}
