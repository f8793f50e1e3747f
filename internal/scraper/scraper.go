package scraper

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config tunes the media scraper
type Config struct {
	MaxArticlesPerSource int
	QualityThreshold     float64
	MaxArticleAge        time.Duration
	MinContentLength     int
}

// MediaScraper collects recent financial articles from all configured
// sources. Sources run concurrently; one failing source never aborts the
// run, it just contributes nothing.
type MediaScraper struct {
	fetcher   *Fetcher
	extractor *Extractor
	urlCache  *URLCache
	sources   []SourceAdapter
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

// SourceResult reports one source's contribution to a run
type SourceResult struct {
	Source   string
	Found    int
	Scraped  int
	Kept     int
	Err      error
	Articles []Article
}

// NewMediaScraper creates a scraper over the given sources
func NewMediaScraper(fetcher *Fetcher, urlCache *URLCache, sources []SourceAdapter, cfg Config, log zerolog.Logger) *MediaScraper {
	if cfg.MaxArticlesPerSource <= 0 {
		cfg.MaxArticlesPerSource = 10
	}
	if cfg.QualityThreshold <= 0 {
		cfg.QualityThreshold = 0.30
	}
	if cfg.MaxArticleAge <= 0 {
		cfg.MaxArticleAge = 7 * 24 * time.Hour
	}

	// each source's spacing governs its hosts' limiters
	if fetcher != nil {
		for _, src := range sources {
			if src.Spacing <= 0 {
				continue
			}
			for _, listingURL := range src.ListingURLs {
				if host, err := hostOf(listingURL); err == nil {
					fetcher.SetHostSpacing(host, src.Spacing)
				}
			}
		}
	}

	return &MediaScraper{
		fetcher:   fetcher,
		extractor: NewExtractor(cfg.MinContentLength, log),
		urlCache:  urlCache,
		sources:   sources,
		cfg:       cfg,
		log:       log.With().Str("component", "scraper").Logger(),
		now:       time.Now,
	}
}

// ScrapeAll runs every source concurrently and returns all kept articles.
// The URL cache is saved at the end of the run.
func (m *MediaScraper) ScrapeAll(ctx context.Context) ([]Article, error) {
	var wg sync.WaitGroup
	results := make([]SourceResult, len(m.sources))

	for i, src := range m.sources {
		wg.Add(1)
		go func(i int, src SourceAdapter) {
			defer wg.Done()
			results[i] = m.scrapeSource(ctx, src)
		}(i, src)
	}
	wg.Wait()

	if m.urlCache != nil {
		if err := m.urlCache.Save(); err != nil {
			m.log.Warn().Err(err).Msg("Failed to persist URL cache")
		}
	}

	var articles []Article
	failures := 0
	for _, res := range results {
		if res.Err != nil {
			failures++
			m.log.Warn().Err(res.Err).Str("source", res.Source).Msg("Source scrape failed")
			continue
		}
		m.log.Info().
			Str("source", res.Source).
			Int("found", res.Found).
			Int("scraped", res.Scraped).
			Int("kept", res.Kept).
			Msg("Source scraped")
		articles = append(articles, res.Articles...)
	}

	if failures == len(m.sources) && len(m.sources) > 0 {
		return nil, errors.New("all sources failed")
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].QualityScore > articles[j].QualityScore
	})

	return articles, nil
}

// scrapeSource collects, fetches and filters one source's articles
func (m *MediaScraper) scrapeSource(ctx context.Context, src SourceAdapter) SourceResult {
	res := SourceResult{Source: src.Name}

	urls := m.collectURLs(ctx, src)
	res.Found = len(urls)
	if len(urls) == 0 {
		return res
	}

	if len(urls) > m.cfg.MaxArticlesPerSource {
		urls = urls[:m.cfg.MaxArticlesPerSource]
	}

	var candidates []Article
	for _, articleURL := range urls {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}

		body, finalURL, err := m.fetcher.Fetch(ctx, articleURL)
		if err != nil {
			m.log.Debug().Err(err).Str("url", articleURL).Msg("Article fetch failed")
			continue
		}
		res.Scraped++

		article, err := m.extractor.ExtractArticle(body, finalURL, src.Name)
		if err != nil {
			m.log.Debug().Err(err).Str("url", articleURL).Msg("Article extraction failed")
			continue
		}

		if article.PublishedAt != nil && m.now().Sub(*article.PublishedAt) > m.cfg.MaxArticleAge {
			continue
		}

		if m.urlCache != nil {
			m.urlCache.Mark(articleURL)
		}
		candidates = append(candidates, *article)
	}

	res.Articles = m.applyQualityFilter(candidates)
	res.Kept = len(res.Articles)
	return res
}

// collectURLs gathers fresh article URLs from all listing pages of a source
func (m *MediaScraper) collectURLs(ctx context.Context, src SourceAdapter) []string {
	seen := make(map[string]bool)
	var urls []string

	for _, listingURL := range src.ListingURLs {
		body, finalURL, err := m.fetcher.Fetch(ctx, listingURL)
		if err != nil {
			m.log.Warn().Err(err).Str("url", listingURL).Msg("Listing fetch failed")
			continue
		}

		for _, articleURL := range m.extractor.ExtractListing(body, finalURL, src) {
			if seen[articleURL] {
				continue
			}
			seen[articleURL] = true

			if m.urlCache != nil && m.urlCache.Seen(articleURL) {
				continue
			}
			urls = append(urls, articleURL)
		}
	}

	return urls
}

// applyQualityFilter keeps articles above the quality threshold. When the
// threshold rejects everything, the top three by quality are kept instead
// so a run never discards a source outright over a strict bar.
func (m *MediaScraper) applyQualityFilter(articles []Article) []Article {
	var kept []Article
	for _, a := range articles {
		if a.QualityScore >= m.cfg.QualityThreshold {
			kept = append(kept, a)
		}
	}
	if len(kept) > 0 || len(articles) == 0 {
		return kept
	}

	sorted := make([]Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].QualityScore > sorted[j].QualityScore
	})
	if len(sorted) > 3 {
		sorted = sorted[:3]
	}
	return sorted
}
