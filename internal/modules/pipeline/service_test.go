package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybenkirane/casagreed/internal/cache"
	"github.com/ybenkirane/casagreed/internal/database"
	"github.com/ybenkirane/casagreed/internal/index"
	"github.com/ybenkirane/casagreed/internal/market"
	"github.com/ybenkirane/casagreed/internal/modules/media"
	"github.com/ybenkirane/casagreed/internal/modules/scores"
	"github.com/ybenkirane/casagreed/internal/scraper"
	"github.com/ybenkirane/casagreed/internal/sentiment"
)

type stubMarket struct {
	bars []market.Bar
}

func (m *stubMarket) FetchLive(ctx context.Context) []market.Quote { return nil }
func (m *stubMarket) FetchHistory(days int) []market.Bar           { return m.bars }

type stubBonds struct {
	yields []market.BondYield
	err    error
}

func (b *stubBonds) Fetch(ctx context.Context) ([]market.BondYield, error) {
	return b.yields, b.err
}

type stubScraper struct {
	articles []scraper.Article
	err      error
	calls    int
}

func (s *stubScraper) ScrapeAll(ctx context.Context) ([]scraper.Article, error) {
	s.calls++
	return s.articles, s.err
}

type stubSentiment struct {
	score float64
}

func (s *stubSentiment) ScoreBatch(ctx context.Context, articles []sentiment.ArticleInput) []sentiment.Result {
	out := make([]sentiment.Result, len(articles))
	for i := range out {
		out[i] = sentiment.Result{Score: s.score, Label: sentiment.LabelFor(s.score), Confidence: 1}
	}
	return out
}

func (s *stubSentiment) Method() string { return "lexicon" }

type fixture struct {
	svc     *Service
	db      *database.DB
	scores  *scores.Repository
	media   *media.Repository
	scraper *stubScraper
	slept   []time.Duration
}

func flatSeries(n int, price float64) []market.Bar {
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{
			Date: start.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price,
			Volume: 1_000_000,
		}
	}
	return bars
}

func testArticle() scraper.Article {
	published := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	return scraper.Article{
		Title:        "Le MASI en hausse",
		Summary:      "La bourse de Casablanca progresse",
		URL:          "https://medias24.com/masi-hausse",
		Source:       "medias24",
		Content:      "Contenu",
		PublishedAt:  &published,
		QualityScore: 0.6,
		ScrapedAt:    published.Add(time.Hour),
	}
}

func newFixture(t *testing.T, sc *stubScraper, bonds *stubBonds) *fixture {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Profile: database.ProfileStandard,
		Name:    "test",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:      db,
		scores:  scores.NewRepository(db.Conn(), zerolog.Nop()),
		media:   media.NewRepository(db.Conn(), zerolog.Nop()),
		scraper: sc,
	}

	f.svc = NewService(
		&stubMarket{bars: flatSeries(260, 12500)},
		bonds,
		sc,
		&stubSentiment{score: 0.5},
		f.scores,
		f.media,
		db,
		cache.New("", zerolog.Nop()),
		zerolog.Nop(),
	)
	f.svc.sleep = func(d time.Duration) { f.slept = append(f.slept, d) }
	return f
}

func TestRun_ProducesAndPersistsScore(t *testing.T) {
	f := newFixture(t,
		&stubScraper{articles: []scraper.Article{testArticle()}},
		&stubBonds{yields: []market.BondYield{{MaturityYears: 5, YieldPercent: 3.5}}},
	)

	res := f.svc.Run(context.Background())

	assert.True(t, res.Success)
	assert.True(t, res.Persisted)
	assert.NotEmpty(t, res.RunID)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 100.0)
	assert.Equal(t, index.Label(res.Score), res.Label)
	assert.Equal(t, 1, res.ArticlesScraped)
	assert.Equal(t, 1, res.ArticlesScored)
	assert.InDelta(t, 3.5/100*20/252, res.BondReturn, 1e-12)

	snap, err := f.scores.Latest()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.InDelta(t, res.Score, snap.Score, 1e-9)

	n, err := f.media.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_FrozenInputsAreDeterministic(t *testing.T) {
	f := newFixture(t,
		&stubScraper{articles: []scraper.Article{testArticle()}},
		&stubBonds{err: errors.New("unreachable")},
	)

	first := f.svc.Run(context.Background())
	second := f.svc.Run(context.Background())

	assert.InDelta(t, first.Score, second.Score, 1e-9)
	assert.Equal(t, first.Label, second.Label)

	n, err := f.scores.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n, "score history is append-only")

	articles, err := f.media.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, articles, "rescraped article must not duplicate")
}

func TestRun_ScrapeFailureDegradesToStoredWindow(t *testing.T) {
	f := newFixture(t,
		&stubScraper{err: errors.New("all sources failed")},
		&stubBonds{err: errors.New("unreachable")},
	)

	res := f.svc.Run(context.Background())

	assert.True(t, res.Success, "a failed scrape still yields a score")
	assert.Zero(t, res.ArticlesScraped)
	assert.Equal(t, 0.0, res.AvgPolarity)
	assert.InDelta(t, 50.0, res.RawComponents.MediaSentiment, 1e-9)
	assert.Equal(t, 3, f.scraper.calls, "scrape stage retries")

	var scrapeStage *StageResult
	for i := range res.Stages {
		if res.Stages[i].Name == "scrape" {
			scrapeStage = &res.Stages[i]
		}
	}
	require.NotNil(t, scrapeStage)
	assert.Equal(t, 3, scrapeStage.Attempts)
	assert.Contains(t, scrapeStage.Error, "all sources failed")
}

func TestRun_RetryBackoffIsLinear(t *testing.T) {
	f := newFixture(t,
		&stubScraper{err: errors.New("boom")},
		&stubBonds{yields: []market.BondYield{{MaturityYears: 5, YieldPercent: 3}}},
	)

	f.svc.Run(context.Background())

	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, f.slept)
}

func TestRun_BondFallback(t *testing.T) {
	f := newFixture(t,
		&stubScraper{},
		&stubBonds{err: errors.New("bkam down")},
	)

	res := f.svc.Run(context.Background())
	assert.Equal(t, index.DefaultBondReturn, res.BondReturn)
}

func TestRun_PersistenceFailureStillReturnsScore(t *testing.T) {
	f := newFixture(t,
		&stubScraper{},
		&stubBonds{err: errors.New("unreachable")},
	)
	require.NoError(t, f.db.Close())

	res := f.svc.Run(context.Background())

	assert.True(t, res.Success)
	assert.False(t, res.Persisted)
	assert.Equal(t, index.Label(res.Score), res.Label)
}

func TestBondReturn_PicksClosestToFiveYears(t *testing.T) {
	yields := []market.BondYield{
		{MaturityYears: 0.25, YieldPercent: 2.1},
		{MaturityYears: 4.8, YieldPercent: 3.2},
		{MaturityYears: 15, YieldPercent: 4.5},
	}

	assert.InDelta(t, 3.2/100*20/252, bondReturn(yields), 1e-12)
	assert.Equal(t, index.DefaultBondReturn, bondReturn(nil))
}
