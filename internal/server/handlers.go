package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth reports service, store and cache health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "ok"
	if err := s.db.QuickCheck(ctx); err != nil {
		status = "degraded"
		dbStatus = err.Error()
	}

	response := map[string]interface{}{
		"status":   status,
		"service":  "casagreed",
		"version":  "1.0.0",
		"database": dbStatus,
		"cache":    s.cache.GetStats(ctx),
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
