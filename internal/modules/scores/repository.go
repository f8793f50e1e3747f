package scores

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ybenkirane/casagreed/internal/index"
)

// Repository handles index score database operations.
// Timestamps are stored as RFC3339 UTC strings so range filters can
// compare lexicographically.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewRepository creates a new scores repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "scores").Logger(),
		now: time.Now,
	}
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

const insertSnapshotSQL = `
	INSERT INTO index_scores
		(as_of, score, momentum, price_strength, volume, volatility, equity_vs_bonds, media_sentiment, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Insert appends a snapshot outside any transaction
func (r *Repository) Insert(s *Snapshot) error {
	return r.insert(r.db, s)
}

// InsertTx appends a snapshot inside a caller-owned transaction
func (r *Repository) InsertTx(tx *sql.Tx, s *Snapshot) error {
	return r.insert(tx, s)
}

func (r *Repository) insert(e execer, s *Snapshot) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now().UTC()
	}

	res, err := e.Exec(insertSnapshotSQL,
		s.AsOf.UTC().Format(time.RFC3339),
		s.Score,
		s.Components.Momentum,
		s.Components.PriceStrength,
		s.Components.Volume,
		s.Components.Volatility,
		s.Components.EquityVsBonds,
		s.Components.MediaSentiment,
		s.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert index snapshot: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		s.ID = id
	}
	return nil
}

const selectSnapshotSQL = `
	SELECT id, as_of, score, momentum, price_strength, volume, volatility, equity_vs_bonds, media_sentiment, created_at
	FROM index_scores
`

// Latest returns the most recent snapshot, or nil when none is stored
func (r *Repository) Latest() (*Snapshot, error) {
	row := r.db.QueryRow(selectSnapshotSQL + " ORDER BY as_of DESC, id DESC LIMIT 1")

	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return s, nil
}

// History returns snapshots from the last `days` days, oldest first
func (r *Repository) History(days int) ([]Snapshot, error) {
	cutoff := r.now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	rows, err := r.db.Query(selectSnapshotSQL+" WHERE as_of >= ? ORDER BY as_of ASC, id ASC", cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan snapshot row")
			continue
		}
		out = append(out, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score history: %w", err)
	}
	return out, nil
}

// ComponentHistory collects stored raw component values over the trailing
// window, feeding the dynamic scaler
func (r *Repository) ComponentHistory(windowDays int) (index.ComponentHistory, error) {
	var hist index.ComponentHistory

	snaps, err := r.History(windowDays)
	if err != nil {
		return hist, err
	}

	for _, s := range snaps {
		hist.Momentum = append(hist.Momentum, s.Components.Momentum)
		hist.PriceStrength = append(hist.PriceStrength, s.Components.PriceStrength)
		hist.Volume = append(hist.Volume, s.Components.Volume)
		hist.Volatility = append(hist.Volatility, s.Components.Volatility)
		hist.EquityVsBonds = append(hist.EquityVsBonds, s.Components.EquityVsBonds)
		hist.MediaSentiment = append(hist.MediaSentiment, s.Components.MediaSentiment)
	}
	return hist, nil
}

// Count returns the number of stored snapshots
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM index_scores").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var s Snapshot
	var asOf, createdAt string

	err := row.Scan(
		&s.ID,
		&asOf,
		&s.Score,
		&s.Components.Momentum,
		&s.Components.PriceStrength,
		&s.Components.Volume,
		&s.Components.Volatility,
		&s.Components.EquityVsBonds,
		&s.Components.MediaSentiment,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if s.AsOf, err = time.Parse(time.RFC3339, asOf); err != nil {
		return nil, fmt.Errorf("bad as_of %q: %w", asOf, err)
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}

	s.Label = index.Label(s.Score)
	return &s, nil
}
