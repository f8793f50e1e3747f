package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ybenkirane/casagreed/internal/modules/media"
)

const (
	defaultMediaLimit = 20
	maxMediaLimit     = 100
)

type mediaResponse struct {
	Articles   []media.Article `json:"articles"`
	Count      int             `json:"count"`
	HasNext    bool            `json:"has_next"`
	NextCursor int64           `json:"next_cursor,omitempty"`
}

// setupMediaRoutes configures the press article routes
func (s *Server) setupMediaRoutes(r chi.Router) {
	r.Get("/media/latest", s.handleMediaLatest)
}

// handleMediaLatest pages through scored articles, newest first. Cursor
// pagination (the id of the last article seen) is stable while new
// articles keep arriving; offset pagination stays available for simple
// clients.
func (s *Server) handleMediaLatest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultMediaLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(v, maxMediaLimit)
	}

	var cursor int64
	if raw := q.Get("cursor"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			s.writeError(w, http.StatusBadRequest, "cursor must be a positive integer")
			return
		}
		cursor = v
	}

	offset := 0
	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			s.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = v
	}

	key := fmt.Sprintf("media:latest:l%d:c%d:o%d", limit, cursor, offset)

	var resp mediaResponse
	err := s.cache.GetOrSet(r.Context(), key, time.Minute, &resp, func() (interface{}, error) {
		// one extra row tells us whether another page exists
		var articles []media.Article
		var err error
		if cursor > 0 {
			articles, err = s.media.LatestBefore(limit+1, cursor)
		} else {
			articles, err = s.media.Latest(limit+1, offset)
		}
		if err != nil {
			return nil, err
		}

		out := mediaResponse{HasNext: len(articles) > limit}
		if out.HasNext {
			articles = articles[:limit]
		}
		out.Articles = articles
		out.Count = len(articles)
		if out.HasNext && len(articles) > 0 {
			out.NextCursor = articles[len(articles)-1].ID
		}
		return out, nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load latest articles")
		s.writeError(w, http.StatusInternalServerError, "failed to load latest articles")
		return
	}

	if resp.Articles == nil {
		resp.Articles = []media.Article{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
