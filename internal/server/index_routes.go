package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ybenkirane/casagreed/internal/index"
	"github.com/ybenkirane/casagreed/internal/modules/scores"
)

// rangeDays maps the supported history ranges to day counts. "all" is
// capped at one year of daily snapshots.
var rangeDays = map[string]int{
	"30d":  30,
	"90d":  90,
	"180d": 180,
	"1y":   365,
	"all":  365,
}

type indexResponse struct {
	AsOf       time.Time        `json:"as_of"`
	Score      float64          `json:"score"`
	Label      string           `json:"label"`
	Components index.Components `json:"components"`
	IsDefault  bool             `json:"is_default,omitempty"`
}

type historyResponse struct {
	Range  string                `json:"range"`
	Count  int                   `json:"count"`
	Points []scores.HistoryPoint `json:"points"`
}

// setupIndexRoutes configures the composite index routes
func (s *Server) setupIndexRoutes(r chi.Router) {
	r.Route("/index", func(r chi.Router) {
		r.Get("/latest", s.handleIndexLatest)
		r.Get("/history", s.handleIndexHistory)
	})
	r.Get("/components/latest", s.handleComponentsLatest)
	r.Get("/metadata/weights", s.handleMetadataWeights)
}

// handleIndexLatest serves the freshest composite. An empty store reads
// as neutral rather than an error: a cold start is not an outage.
func (s *Server) handleIndexLatest(w http.ResponseWriter, r *http.Request) {
	var resp indexResponse
	err := s.cache.GetOrSet(r.Context(), "index:latest", time.Minute, &resp, func() (interface{}, error) {
		snap, err := s.scores.Latest()
		if err != nil {
			return nil, err
		}
		return s.toIndexResponse(snap), nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load latest index")
		s.writeError(w, http.StatusInternalServerError, "failed to load latest index")
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleIndexHistory serves the score series for a range
func (s *Server) handleIndexHistory(w http.ResponseWriter, r *http.Request) {
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "30d"
	}
	days, ok := rangeDays[rng]
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid range, expected one of 30d, 90d, 180d, 1y, all")
		return
	}

	var resp historyResponse
	err := s.cache.GetOrSet(r.Context(), "index:history:"+rng, 5*time.Minute, &resp, func() (interface{}, error) {
		snaps, err := s.scores.History(days)
		if err != nil {
			return nil, err
		}

		points := make([]scores.HistoryPoint, len(snaps))
		for i, snap := range snaps {
			points[i] = scores.HistoryPoint{AsOf: snap.AsOf, Score: snap.Score, Label: snap.Label}
		}
		return historyResponse{Range: rng, Count: len(points), Points: points}, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("range", rng).Msg("Failed to load index history")
		s.writeError(w, http.StatusInternalServerError, "failed to load index history")
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleComponentsLatest serves the six sub-scores behind the composite
func (s *Server) handleComponentsLatest(w http.ResponseWriter, r *http.Request) {
	var resp indexResponse
	err := s.cache.GetOrSet(r.Context(), "index:components", time.Minute, &resp, func() (interface{}, error) {
		snap, err := s.scores.Latest()
		if err != nil {
			return nil, err
		}
		return s.toIndexResponse(snap), nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load latest components")
		s.writeError(w, http.StatusInternalServerError, "failed to load latest components")
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleMetadataWeights publishes the component weights and bands
func (s *Server) handleMetadataWeights(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"weights": index.DefaultWeights,
		"total":   index.DefaultWeights.Total(),
		"bands": []map[string]interface{}{
			{"label": index.LabelExtremeGreed, "min": 75},
			{"label": index.LabelGreed, "min": 60},
			{"label": index.LabelNeutral, "min": 40},
			{"label": index.LabelFear, "min": 25},
			{"label": index.LabelExtremeFear, "min": 0},
		},
	})
}

func (s *Server) toIndexResponse(snap *scores.Snapshot) indexResponse {
	if snap == nil {
		neutral := index.Components{
			Momentum: 50, PriceStrength: 50, Volume: 50,
			Volatility: 50, EquityVsBonds: 50, MediaSentiment: 50,
		}
		return indexResponse{
			AsOf:       time.Now().UTC(),
			Score:      50,
			Label:      index.LabelNeutral,
			Components: neutral,
			IsDefault:  true,
		}
	}

	return indexResponse{
		AsOf:       snap.AsOf,
		Score:      snap.Score,
		Label:      snap.Label,
		Components: snap.Components,
	}
}
