// Package pipeline orchestrates a full index computation run: market
// data, press scraping, sentiment, component scores, scaling, composite,
// persistence. Every stage degrades instead of aborting, so a run always
// produces a score even when half the Moroccan web is down.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ybenkirane/casagreed/internal/cache"
	"github.com/ybenkirane/casagreed/internal/database"
	"github.com/ybenkirane/casagreed/internal/index"
	"github.com/ybenkirane/casagreed/internal/market"
	"github.com/ybenkirane/casagreed/internal/modules/media"
	"github.com/ybenkirane/casagreed/internal/modules/scores"
	"github.com/ybenkirane/casagreed/internal/scraper"
	"github.com/ybenkirane/casagreed/internal/sentiment"
)

const (
	historyDays       = 252
	sentimentWindow   = 7
	maxStageAttempts  = 3
	retryBackoffBase  = 5 * time.Second
	referenceMaturity = 5.0
)

// MarketSource provides MASI quotes and daily bars
type MarketSource interface {
	FetchLive(ctx context.Context) []market.Quote
	FetchHistory(days int) []market.Bar
}

// BondSource provides secondary-market bond yields
type BondSource interface {
	Fetch(ctx context.Context) ([]market.BondYield, error)
}

// ArticleScraper collects fresh press articles
type ArticleScraper interface {
	ScrapeAll(ctx context.Context) ([]scraper.Article, error)
}

// SentimentScorer scores a batch of articles
type SentimentScorer interface {
	ScoreBatch(ctx context.Context, articles []sentiment.ArticleInput) []sentiment.Result
	Method() string
}

// StageResult reports one stage of a run
type StageResult struct {
	Name     string        `json:"name"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Result is the outcome of one pipeline run. Success means a composite
// was computed; Persisted tells whether it also reached the store.
type Result struct {
	RunID           string           `json:"run_id"`
	StartedAt       time.Time        `json:"started_at"`
	Duration        time.Duration    `json:"duration"`
	Success         bool             `json:"success"`
	Persisted       bool             `json:"persisted"`
	Score           float64          `json:"score"`
	Label           string           `json:"label"`
	Components      index.Components `json:"components"`
	RawComponents   index.Components `json:"raw_components"`
	BondReturn      float64          `json:"bond_return"`
	AvgPolarity     float64          `json:"avg_polarity"`
	SentimentMethod string           `json:"sentiment_method"`
	ArticlesScraped int              `json:"articles_scraped"`
	ArticlesScored  int              `json:"articles_scored"`
	Stages          []StageResult    `json:"stages"`
}

// Service runs the scoring pipeline end to end
type Service struct {
	market    MarketSource
	bonds     BondSource
	scraper   ArticleScraper
	sentiment SentimentScorer
	scores    *scores.Repository
	media     *media.Repository
	db        *database.DB
	cache     *cache.Service
	scaler    *index.Scaler
	weights   index.Weights
	log       zerolog.Logger

	mu    sync.Mutex // one run at a time
	now   func() time.Time
	sleep func(time.Duration)
}

// NewService wires the pipeline
func NewService(
	marketSrc MarketSource,
	bonds BondSource,
	articleScraper ArticleScraper,
	sentimentScorer SentimentScorer,
	scoresRepo *scores.Repository,
	mediaRepo *media.Repository,
	db *database.DB,
	cacheSvc *cache.Service,
	log zerolog.Logger,
) *Service {
	return &Service{
		market:    marketSrc,
		bonds:     bonds,
		scraper:   articleScraper,
		sentiment: sentimentScorer,
		scores:    scoresRepo,
		media:     mediaRepo,
		db:        db,
		cache:     cacheSvc,
		scaler:    index.NewScaler(index.DefaultScalerWindow),
		weights:   index.DefaultWeights,
		log:       log.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Run executes one full pipeline pass. It never returns an error: failed
// stages degrade to neutral inputs and are reported in the result.
func (s *Service) Run(ctx context.Context) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{
		RunID:           uuid.NewString(),
		StartedAt:       s.now().UTC(),
		SentimentMethod: s.sentiment.Method(),
	}
	log := s.log.With().Str("run_id", res.RunID).Logger()
	log.Info().Msg("Pipeline run started")

	// Stage 1: market data. The client degrades internally, so a bar
	// series always comes back.
	var bars []market.Bar
	s.stage(ctx, res, "market", func() error {
		bars = s.market.FetchHistory(historyDays)
		s.market.FetchLive(ctx)
		if len(bars) == 0 {
			return fmt.Errorf("empty bar series")
		}
		return nil
	})

	// Stage 2: bond yields, falling back to the neutral-bias constant
	res.BondReturn = index.DefaultBondReturn
	s.stage(ctx, res, "bonds", func() error {
		yields, err := s.bonds.Fetch(ctx)
		if err != nil {
			return err
		}
		res.BondReturn = bondReturn(yields)
		return nil
	})

	// Stage 3: press scraping. A failed run contributes no articles.
	var articles []scraper.Article
	s.stage(ctx, res, "scrape", func() error {
		scraped, err := s.scraper.ScrapeAll(ctx)
		if err != nil {
			return err
		}
		articles = scraped
		return nil
	})
	res.ArticlesScraped = len(articles)

	// Stage 4: sentiment. With no fresh articles the stored window keeps
	// the media component alive; a cold store means neutral.
	inputs := make([]sentiment.ArticleInput, len(articles))
	for i, a := range articles {
		inputs[i] = sentiment.ArticleInput{Title: a.Title, Summary: a.Summary}
	}
	results := s.sentiment.ScoreBatch(ctx, inputs)
	res.ArticlesScored = len(results)
	res.AvgPolarity = s.averagePolarity(results)

	// Stage 5: components, scaling, composite
	res.RawComponents = index.Compute(bars, res.AvgPolarity, res.BondReturn)
	res.Components = s.scaleComponents(res.RawComponents)
	res.Score = index.Aggregate(res.Components, s.weights)
	res.Label = index.Label(res.Score)
	res.Success = true

	// Stage 6: persistence. A storage failure loses history, not the
	// run's answer.
	if err := s.persist(res, articles, results); err != nil {
		log.Error().Err(err).Msg("Failed to persist pipeline run")
	} else {
		res.Persisted = true
		s.invalidateCaches(ctx)
	}

	res.Duration = s.now().UTC().Sub(res.StartedAt)
	log.Info().
		Float64("score", res.Score).
		Str("label", res.Label).
		Int("articles", res.ArticlesScraped).
		Bool("persisted", res.Persisted).
		Dur("duration", res.Duration).
		Msg("Pipeline run finished")

	return res
}

// stage runs fn with linear-backoff retries, recording the attempt count
// and terminal error on the result
func (s *Service) stage(ctx context.Context, res *Result, name string, fn func() error) {
	start := s.now()
	sr := StageResult{Name: name}

	var err error
	for attempt := 1; attempt <= maxStageAttempts; attempt++ {
		sr.Attempts = attempt
		if err = fn(); err == nil {
			break
		}
		s.log.Warn().Err(err).Str("stage", name).Int("attempt", attempt).Msg("Stage attempt failed")

		if attempt == maxStageAttempts || ctx.Err() != nil {
			break
		}
		s.sleep(retryBackoffBase * time.Duration(attempt))
	}

	if err != nil {
		sr.Error = err.Error()
	}
	sr.Duration = s.now().Sub(start)
	res.Stages = append(res.Stages, sr)
}

// averagePolarity prefers this run's scored articles, then the stored
// 7-day window, then neutral
func (s *Service) averagePolarity(results []sentiment.Result) float64 {
	if len(results) > 0 {
		return sentiment.DailyScore(results)
	}

	stored, err := s.media.SentimentScores(sentimentWindow)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load stored sentiment window")
		return 0
	}
	if len(stored) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range stored {
		sum += v
	}
	return sum / float64(len(stored))
}

func (s *Service) scaleComponents(raw index.Components) index.Components {
	hist, err := s.scores.ComponentHistory(s.scaler.WindowDays)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load component history, serving raw components")
		return raw
	}
	return s.scaler.ScaleAll(raw, hist)
}

// persist writes the snapshot and the run's articles atomically
func (s *Service) persist(res *Result, articles []scraper.Article, results []sentiment.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin pipeline transaction: %w", err)
	}

	snap := &scores.Snapshot{
		AsOf:       res.StartedAt,
		Score:      res.Score,
		Components: res.Components,
	}
	if err := s.scores.InsertTx(tx, snap); err != nil {
		_ = tx.Rollback()
		return err
	}

	for i, a := range articles {
		var sr sentiment.Result
		if i < len(results) {
			sr = results[i]
		}
		stored := media.FromScraped(a, sr)
		if err := s.media.UpsertTx(tx, &stored); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pipeline transaction: %w", err)
	}
	return nil
}

func (s *Service) invalidateCaches(ctx context.Context) {
	for _, pattern := range []string{"index:*", "media:*", "simplified:*", "backtest:*"} {
		s.cache.DeletePattern(ctx, pattern)
	}
}

// bondReturn converts the published yield closest to the 5-year maturity
// into a 20-trading-day return
func bondReturn(yields []market.BondYield) float64 {
	if len(yields) == 0 {
		return index.DefaultBondReturn
	}

	best := yields[0]
	for _, y := range yields[1:] {
		if math.Abs(y.MaturityYears-referenceMaturity) < math.Abs(best.MaturityYears-referenceMaturity) {
			best = y
		}
	}
	return best.YieldPercent / 100 * 20 / 252
}
