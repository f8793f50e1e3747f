// Package simplified serves the alternate "v2" score:
// (volume + news sentiment + market performance) / number of MASI stocks,
// rescaled to [0,100]. It is a cheap cross-check on the full composite.
package simplified

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ybenkirane/casagreed/internal/cache"
	"github.com/ybenkirane/casagreed/internal/index"
	"github.com/ybenkirane/casagreed/internal/market"
	"github.com/ybenkirane/casagreed/internal/modules/media"
	"github.com/ybenkirane/casagreed/pkg/formulas"
)

const (
	// masiStockCount approximates the number of listed MASI shares
	masiStockCount = 76
	scaleFactor    = 10

	volumeWindow     = 20
	minVolumeBars    = 5
	performanceBars  = 5
	sentimentWindow  = 1
	sentimentWindow7 = 7

	cacheKey = "simplified:score"
	cacheTTL = 5 * time.Minute
)

// MarketSource provides the daily bar series
type MarketSource interface {
	FetchHistory(days int) []market.Bar
}

// Score is the simplified index result
type Score struct {
	Score              float64   `json:"score"`
	Interpretation     string    `json:"interpretation"`
	VolumeComponent    float64   `json:"volume_component"`
	SentimentComponent float64   `json:"sentiment_component"`
	MarketComponent    float64   `json:"market_component"`
	TotalStocks        int       `json:"total_stocks"`
	AsOf               time.Time `json:"as_of"`
}

// Service computes the simplified score
type Service struct {
	market MarketSource
	media  *media.Repository
	cache  *cache.Service
	log    zerolog.Logger
	now    func() time.Time
}

// NewService creates the simplified score service
func NewService(marketSrc MarketSource, mediaRepo *media.Repository, cacheSvc *cache.Service, log zerolog.Logger) *Service {
	return &Service{
		market: marketSrc,
		media:  mediaRepo,
		cache:  cacheSvc,
		log:    log.With().Str("component", "simplified").Logger(),
		now:    time.Now,
	}
}

// Get returns the current simplified score, served from cache when fresh
func (s *Service) Get(ctx context.Context) (*Score, error) {
	var score Score
	err := s.cache.GetOrSet(ctx, cacheKey, cacheTTL, &score, func() (interface{}, error) {
		return s.compute(), nil
	})
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (s *Service) compute() *Score {
	bars := s.market.FetchHistory(volumeWindow)

	score := &Score{
		VolumeComponent:    VolumeComponent(bars),
		SentimentComponent: s.sentimentComponent(),
		MarketComponent:    MarketComponent(bars),
		TotalStocks:        masiStockCount,
		AsOf:               s.now().UTC(),
	}

	raw := (score.VolumeComponent + score.SentimentComponent + score.MarketComponent) / masiStockCount
	score.Score = formulas.Clamp(raw*scaleFactor, 0, 100)
	score.Interpretation = index.Label(score.Score)

	s.log.Debug().
		Float64("score", score.Score).
		Float64("volume", score.VolumeComponent).
		Float64("sentiment", score.SentimentComponent).
		Float64("market", score.MarketComponent).
		Msg("Simplified score computed")

	return score
}

// VolumeComponent positions the 20-day mean volume within the window's
// min-max range, on [0,100]. Zero-volume sessions are ignored.
func VolumeComponent(bars []market.Bar) float64 {
	if len(bars) < minVolumeBars {
		return 50
	}

	var volumes []float64
	for _, b := range bars {
		if b.Volume > 0 {
			volumes = append(volumes, float64(b.Volume))
		}
	}
	if len(volumes) == 0 {
		return 50
	}

	mean := formulas.Mean(volumes)
	lo, hi := volumes[0], volumes[0]
	for _, v := range volumes[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		return 50
	}

	return (mean - lo) / (hi - lo) * 100
}

// MarketComponent scores the breadth and amplitude of the last sessions:
// share of positive days on [0,100], nudged by the mean daily return
// (capped at 20 points either way)
func MarketComponent(bars []market.Bar) float64 {
	if len(bars) > performanceBars {
		bars = bars[len(bars)-performanceBars:]
	}
	if len(bars) < 2 {
		return 50
	}

	var returns []float64
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close == 0 {
			continue
		}
		returns = append(returns, (bars[i].Close-bars[i-1].Close)/bars[i-1].Close)
	}
	if len(returns) == 0 {
		return 50
	}

	positive := 0
	for _, r := range returns {
		if r > 0 {
			positive++
		}
	}
	score := float64(positive) / float64(len(returns)) * 100

	adjustment := formulas.Clamp(formulas.Mean(returns)*1000, -20, 20)
	return formulas.Clamp(score+adjustment, 0, 100)
}

// sentimentComponent maps the stored polarity of today's articles to
// [0,100], widening to the 7-day window when the day is empty
func (s *Service) sentimentComponent() float64 {
	for _, window := range []int{sentimentWindow, sentimentWindow7} {
		polarities, err := s.media.SentimentScores(window)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to load sentiment scores")
			return 50
		}
		if len(polarities) > 0 {
			return (formulas.Mean(polarities) + 1) * 50
		}
	}
	return 50
}
