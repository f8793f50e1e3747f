package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testArticlePage(title string) string {
	body := strings.Repeat("La bourse de Casablanca et le MASI affichent une performance remarquable ce trimestre. ", 15)
	return fmt.Sprintf(`<html><head><title>%s</title></head><body>
		<article>
			<time datetime="%s">aujourd'hui</time>
			<p>%s</p>
		</article>
	</body></html>`, title, time.Now().UTC().Format(time.RFC3339), body)
}

func newScraperFixture(t *testing.T) (*MediaScraper, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/economie/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/economie/" {
			fmt.Fprint(w, `<html><body>
				<article><h2><a href="/economie/article-un">Le MASI gagne du terrain</a></h2></article>
				<article><h2><a href="/economie/article-deux">Les banques publient leurs résultats</a></h2></article>
				<article><h2><a href="/tag/bourse">Tag à exclure</a></h2></article>
			</body></html>`)
			return
		}
		fmt.Fprint(w, testArticlePage("Article "+filepath.Base(r.URL.Path)))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	fetcher := NewFetcher(FetcherConfig{Spacing: time.Millisecond, MaxRetries: 1}, zerolog.Nop())
	urlCache := NewURLCache(filepath.Join(t.TempDir(), "urls.json"), zerolog.Nop())

	sources := []SourceAdapter{{
		Name:        "testsource",
		ListingURLs: []string{srv.URL + "/economie/"},
		URLPatterns: []string{"/economie/"},
	}}

	m := NewMediaScraper(fetcher, urlCache, sources, Config{
		MaxArticlesPerSource: 10,
		QualityThreshold:     0.10,
		MinContentLength:     300,
	}, zerolog.Nop())
	m.extractor.now = time.Now

	return m, srv
}

func TestScrapeAll_CollectsArticles(t *testing.T) {
	m, _ := newScraperFixture(t)

	articles, err := m.ScrapeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	for _, a := range articles {
		assert.Equal(t, "testsource", a.Source)
		assert.NotContains(t, a.URL, "/tag/")
		assert.Greater(t, a.QualityScore, 0.0)
		assert.GreaterOrEqual(t, len(a.Content), 300)
	}
}

func TestScrapeAll_SkipsCachedURLs(t *testing.T) {
	m, _ := newScraperFixture(t)

	first, err := m.ScrapeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := m.ScrapeAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second, "cached URLs must not be refetched within 24h")
}

func TestScrapeAll_AllSourcesFailing(t *testing.T) {
	fetcher := NewFetcher(FetcherConfig{Spacing: time.Millisecond, MaxRetries: 1}, zerolog.Nop())
	sources := []SourceAdapter{{
		Name:        "down",
		ListingURLs: []string{"http://127.0.0.1:1/economie/"},
		URLPatterns: []string{"/economie/"},
	}}

	m := NewMediaScraper(fetcher, nil, sources, Config{}, zerolog.Nop())

	articles, err := m.ScrapeAll(context.Background())
	require.NoError(t, err, "an unreachable listing yields an empty source, not a run failure")
	assert.Empty(t, articles)
}

func TestScrapeAll_RespectsPerSourceCap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/economie/" {
			var b strings.Builder
			b.WriteString("<html><body>")
			for i := 0; i < 8; i++ {
				fmt.Fprintf(&b, `<article><h2><a href="/economie/article-%d">Titre suffisamment long %d</a></h2></article>`, i, i)
			}
			b.WriteString("</body></html>")
			fmt.Fprint(w, b.String())
			return
		}
		fmt.Fprint(w, testArticlePage("Article"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	fetcher := NewFetcher(FetcherConfig{Spacing: time.Millisecond, MaxRetries: 1}, zerolog.Nop())
	sources := []SourceAdapter{{
		Name:        "testsource",
		ListingURLs: []string{srv.URL + "/economie/"},
		URLPatterns: []string{"/economie/"},
	}}

	m := NewMediaScraper(fetcher, nil, sources, Config{
		MaxArticlesPerSource: 3,
		QualityThreshold:     0.10,
		MinContentLength:     300,
	}, zerolog.Nop())

	articles, err := m.ScrapeAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, articles, 3)
}

func TestNewMediaScraper_AppliesSourceSpacing(t *testing.T) {
	fetcher := NewFetcher(FetcherConfig{Spacing: time.Millisecond, MaxRetries: 1}, zerolog.Nop())
	sources := []SourceAdapter{
		{
			Name:        "throttled",
			ListingURLs: []string{"https://throttled.example.com/economie/"},
			Spacing:     4 * time.Second,
		},
		{
			Name:        "default",
			ListingURLs: []string{"https://default.example.com/economie/"},
		},
	}

	NewMediaScraper(fetcher, nil, sources, Config{}, zerolog.Nop())

	assert.Equal(t, rate.Every(4*time.Second), fetcher.limiter("throttled.example.com").Limit())
	assert.Equal(t, rate.Every(time.Millisecond), fetcher.limiter("default.example.com").Limit())
}

func TestApplyQualityFilter_TopThreeFallback(t *testing.T) {
	m := NewMediaScraper(nil, nil, nil, Config{QualityThreshold: 0.90}, zerolog.Nop())

	articles := []Article{
		{URL: "a", QualityScore: 0.10},
		{URL: "b", QualityScore: 0.50},
		{URL: "c", QualityScore: 0.30},
		{URL: "d", QualityScore: 0.40},
	}

	kept := m.applyQualityFilter(articles)
	require.Len(t, kept, 3, "threshold rejecting all must fall back to top 3")
	assert.Equal(t, "b", kept[0].URL)
	assert.Equal(t, "d", kept[1].URL)
	assert.Equal(t, "c", kept[2].URL)
}

func TestApplyQualityFilter_ThresholdKeepsPassing(t *testing.T) {
	m := NewMediaScraper(nil, nil, nil, Config{QualityThreshold: 0.30}, zerolog.Nop())

	articles := []Article{
		{URL: "a", QualityScore: 0.10},
		{URL: "b", QualityScore: 0.50},
	}

	kept := m.applyQualityFilter(articles)
	require.Len(t, kept, 1)
	assert.Equal(t, "b", kept[0].URL)
}
