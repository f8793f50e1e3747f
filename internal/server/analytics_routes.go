package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// setupAnalyticsRoutes configures the simplified score and backtest routes
func (s *Server) setupAnalyticsRoutes(r chi.Router) {
	r.Get("/simplified-v2/score", s.handleSimplifiedScore)
	r.Get("/backtest/run", s.handleBacktestRun)
}

// handleSimplifiedScore serves the alternate (volume + sentiment +
// performance) / stocks score
func (s *Server) handleSimplifiedScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.simplified.Get(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to compute simplified score")
		s.writeError(w, http.StatusInternalServerError, "failed to compute simplified score")
		return
	}

	s.writeJSON(w, http.StatusOK, score)
}

// handleBacktestRun evaluates stored scores against forward returns
func (s *Server) handleBacktestRun(w http.ResponseWriter, r *http.Request) {
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "90d"
	}
	days, ok := rangeDays[rng]
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid range, expected one of 30d, 90d, 180d, 1y, all")
		return
	}

	res, err := s.backtest.Run(r.Context(), rng, days)
	if err != nil {
		s.log.Error().Err(err).Str("range", rng).Msg("Backtest failed")
		s.writeError(w, http.StatusInternalServerError, "backtest failed")
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}
