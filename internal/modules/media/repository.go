package media

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles media article database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewRepository creates a new media repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "media").Logger(),
		now: time.Now,
	}
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// A rescrape of a known URL only wins when it extracted a better version:
// the conflict update is gated on a strictly higher quality score.
const upsertArticleSQL = `
	INSERT INTO media_articles
		(url, source, title, summary, content, image_url, published_at, scraped_at, sentiment_score, sentiment_label, quality_score)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		title = excluded.title,
		summary = excluded.summary,
		content = excluded.content,
		image_url = excluded.image_url,
		published_at = excluded.published_at,
		scraped_at = excluded.scraped_at,
		sentiment_score = excluded.sentiment_score,
		sentiment_label = excluded.sentiment_label,
		quality_score = excluded.quality_score
	WHERE excluded.quality_score > COALESCE(media_articles.quality_score, 0)
`

// Upsert stores an article outside any transaction
func (r *Repository) Upsert(a *Article) error {
	return r.upsert(r.db, a)
}

// UpsertTx stores an article inside a caller-owned transaction
func (r *Repository) UpsertTx(tx *sql.Tx, a *Article) error {
	return r.upsert(tx, a)
}

func (r *Repository) upsert(e execer, a *Article) error {
	var publishedAt any
	if a.PublishedAt != nil {
		publishedAt = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	if a.ScrapedAt.IsZero() {
		a.ScrapedAt = r.now().UTC()
	}

	_, err := e.Exec(upsertArticleSQL,
		a.URL,
		a.Source,
		a.Title,
		a.Summary,
		a.Content,
		a.ImageURL,
		publishedAt,
		a.ScrapedAt.UTC().Format(time.RFC3339),
		a.SentimentScore,
		nullIfEmpty(a.SentimentLabel),
		a.QualityScore,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert article %s: %w", a.URL, err)
	}
	return nil
}

const selectArticleSQL = `
	SELECT id, url, source, title, COALESCE(summary, ''), COALESCE(content, ''), COALESCE(image_url, ''),
		published_at, scraped_at, sentiment_score, COALESCE(sentiment_label, ''), COALESCE(quality_score, 0)
	FROM media_articles
`

// Latest returns the newest articles by publication date using offset
// pagination
func (r *Repository) Latest(limit, offset int) ([]Article, error) {
	rows, err := r.db.Query(
		selectArticleSQL+" ORDER BY published_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest articles: %w", err)
	}
	return r.collect(rows)
}

// LatestBefore returns the newest articles with id strictly below cursor.
// Ids grow with insertion order, so walking the cursor down pages through
// the feed without duplicates even while new articles arrive.
func (r *Repository) LatestBefore(limit int, cursor int64) ([]Article, error) {
	rows, err := r.db.Query(
		selectArticleSQL+" WHERE id < ? ORDER BY published_at DESC, id DESC LIMIT ?",
		cursor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles before cursor %d: %w", cursor, err)
	}
	return r.collect(rows)
}

// SentimentScores returns the stored polarity of scored articles published
// (or failing that, scraped) within the last `days` days
func (r *Repository) SentimentScores(days int) ([]float64, error) {
	cutoff := r.now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	rows, err := r.db.Query(`
		SELECT sentiment_score FROM media_articles
		WHERE sentiment_score IS NOT NULL
		  AND COALESCE(published_at, scraped_at) >= ?
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentiment scores: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan sentiment score")
			continue
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sentiment scores: %w", err)
	}
	return out, nil
}

// GetByURL fetches one article, or nil when unknown
func (r *Repository) GetByURL(url string) (*Article, error) {
	row := r.db.QueryRow(selectArticleSQL+" WHERE url = ?", url)

	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article %s: %w", url, err)
	}
	return a, nil
}

// Count returns the number of stored articles
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM media_articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

func (r *Repository) collect(rows *sql.Rows) ([]Article, error) {
	defer rows.Close()

	var out []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan article row")
			continue
		}
		out = append(out, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var a Article
	var publishedAt, scrapedAt sql.NullString
	var sentiment sql.NullFloat64

	err := row.Scan(
		&a.ID, &a.URL, &a.Source, &a.Title, &a.Summary, &a.Content, &a.ImageURL,
		&publishedAt, &scrapedAt, &sentiment, &a.SentimentLabel, &a.QualityScore,
	)
	if err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		if ts, err := time.Parse(time.RFC3339, publishedAt.String); err == nil {
			a.PublishedAt = &ts
		}
	}
	if scrapedAt.Valid {
		if ts, err := time.Parse(time.RFC3339, scrapedAt.String); err == nil {
			a.ScrapedAt = ts
		}
	}
	if sentiment.Valid {
		a.SentimentScore = &sentiment.Float64
	}
	return &a, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
