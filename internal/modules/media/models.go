// Package media persists scraped press articles and their sentiment.
// Articles are keyed by URL; a rescrape only replaces a stored row when
// it extracted a better version of the same article.
package media

import (
	"time"

	"github.com/ybenkirane/casagreed/internal/scraper"
	"github.com/ybenkirane/casagreed/internal/sentiment"
)

// Article is one stored press article
type Article struct {
	ID             int64      `json:"id"`
	URL            string     `json:"url"`
	Source         string     `json:"source"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary,omitempty"`
	Content        string     `json:"-"`
	ImageURL       string     `json:"image_url,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ScrapedAt      time.Time  `json:"scraped_at"`
	SentimentScore *float64   `json:"sentiment_score,omitempty"`
	SentimentLabel string     `json:"sentiment_label,omitempty"`
	QualityScore   float64    `json:"quality_score"`
}

// FromScraped builds a storable article from a scrape plus its sentiment
func FromScraped(a scraper.Article, res sentiment.Result) Article {
	score := res.Score
	return Article{
		URL:            a.URL,
		Source:         a.Source,
		Title:          a.Title,
		Summary:        a.Summary,
		Content:        a.Content,
		ImageURL:       a.ImageURL,
		PublishedAt:    a.PublishedAt,
		ScrapedAt:      a.ScrapedAt,
		SentimentScore: &score,
		SentimentLabel: res.Label,
		QualityScore:   a.QualityScore,
	}
}
