// Package backtest evaluates the stored index history against realized
// MASI forward returns: does greed actually precede gains?
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ybenkirane/casagreed/internal/cache"
	"github.com/ybenkirane/casagreed/internal/market"
	"github.com/ybenkirane/casagreed/internal/modules/scores"
	"github.com/ybenkirane/casagreed/pkg/formulas"
)

const (
	// minPeriods is the smallest merged sample worth reporting on;
	// below it every statistic is zeroed rather than noise
	minPeriods = 10

	forwardShort = 1
	forwardLong  = 5

	cacheTTL = 30 * time.Minute
)

// MarketSource provides the daily bar series
type MarketSource interface {
	FetchHistory(days int) []market.Bar
}

// Result is one backtest report
type Result struct {
	Range                 string    `json:"range"`
	TotalPeriods          int       `json:"total_periods"`
	Correlation1D         float64   `json:"correlation_1d"`
	Correlation5D         float64   `json:"correlation_5d"`
	DirectionalAccuracy1D float64   `json:"directional_accuracy_1d"`
	DirectionalAccuracy5D float64   `json:"directional_accuracy_5d"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// Service joins stored scores with forward returns
type Service struct {
	scores *scores.Repository
	market MarketSource
	cache  *cache.Service
	log    zerolog.Logger
	now    func() time.Time
}

// NewService creates the backtest service
func NewService(scoresRepo *scores.Repository, marketSrc MarketSource, cacheSvc *cache.Service, log zerolog.Logger) *Service {
	return &Service{
		scores: scoresRepo,
		market: marketSrc,
		cache:  cacheSvc,
		log:    log.With().Str("component", "backtest").Logger(),
		now:    time.Now,
	}
}

// Run backtests the last `days` days of stored scores
func (s *Service) Run(ctx context.Context, rangeLabel string, days int) (*Result, error) {
	var res Result
	key := fmt.Sprintf("backtest:run:%s", rangeLabel)

	err := s.cache.GetOrSet(ctx, key, cacheTTL, &res, func() (interface{}, error) {
		return s.run(rangeLabel, days)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Service) run(rangeLabel string, days int) (*Result, error) {
	res := &Result{Range: rangeLabel, GeneratedAt: s.now().UTC()}

	snaps, err := s.scores.History(days)
	if err != nil {
		return nil, fmt.Errorf("failed to load score history: %w", err)
	}

	bars := s.market.FetchHistory(days + forwardLong + 5)
	byDate := make(map[string]int, len(bars))
	for i, b := range bars {
		byDate[b.Date.UTC().Format("2006-01-02")] = i
	}

	var scoreVals, fwd1, fwd5 []float64
	for _, snap := range snaps {
		i, ok := byDate[snap.AsOf.UTC().Format("2006-01-02")]
		if !ok || i+forwardLong >= len(bars) || bars[i].Close == 0 {
			continue
		}
		scoreVals = append(scoreVals, snap.Score)
		fwd1 = append(fwd1, (bars[i+forwardShort].Close-bars[i].Close)/bars[i].Close)
		fwd5 = append(fwd5, (bars[i+forwardLong].Close-bars[i].Close)/bars[i].Close)
	}

	res.TotalPeriods = len(scoreVals)
	if res.TotalPeriods < minPeriods {
		s.log.Info().Int("periods", res.TotalPeriods).Msg("Backtest sample too small, reporting zeros")
		return res, nil
	}

	res.Correlation1D = formulas.Correlation(scoreVals, fwd1)
	res.Correlation5D = formulas.Correlation(scoreVals, fwd5)
	res.DirectionalAccuracy1D = directionalAccuracy(scoreVals, fwd1)
	res.DirectionalAccuracy5D = directionalAccuracy(scoreVals, fwd5)

	s.log.Info().
		Int("periods", res.TotalPeriods).
		Float64("corr_1d", res.Correlation1D).
		Float64("acc_1d", res.DirectionalAccuracy1D).
		Msg("Backtest complete")

	return res, nil
}

// directionalAccuracy is the share of observations where a greedy score
// preceded a gain or a fearful score preceded a loss
func directionalAccuracy(scoreVals, returns []float64) float64 {
	if len(scoreVals) == 0 {
		return 0
	}

	hits := 0
	for i, sc := range scoreVals {
		if (sc >= 50) == (returns[i] >= 0) {
			hits++
		}
	}
	return float64(hits) / float64(len(scoreVals))
}
