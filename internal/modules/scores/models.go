// Package scores persists and serves the Fear & Greed composite history.
// The index_scores table is append-only: every pipeline run inserts a new
// row, corrections are new rows too.
package scores

import (
	"time"

	"github.com/ybenkirane/casagreed/internal/index"
)

// Snapshot is one stored index observation
type Snapshot struct {
	ID         int64            `json:"id"`
	AsOf       time.Time        `json:"as_of"`
	Score      float64          `json:"score"`
	Label      string           `json:"label"`
	Components index.Components `json:"components"`
	CreatedAt  time.Time        `json:"created_at"`
}

// HistoryPoint is the compact shape served on history endpoints
type HistoryPoint struct {
	AsOf  time.Time `json:"as_of"`
	Score float64   `json:"score"`
	Label string    `json:"label"`
}
