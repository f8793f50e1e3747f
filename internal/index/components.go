// Package index computes the Fear & Greed components, their rolling-window
// scaling, and the weighted composite. Everything here is a pure function
// over in-memory inputs; I/O stays in the pipeline.
package index

import (
	"math"

	"github.com/ybenkirane/casagreed/internal/market"
	"github.com/ybenkirane/casagreed/pkg/formulas"
)

// Components holds the six sub-scores, each in [0,100]
type Components struct {
	Momentum       float64 `json:"momentum"`
	PriceStrength  float64 `json:"price_strength"`
	Volume         float64 `json:"volume"`
	Volatility     float64 `json:"volatility"`
	EquityVsBonds  float64 `json:"equity_vs_bonds"`
	MediaSentiment float64 `json:"media_sentiment"`
}

const neutral = 50.0

// DefaultBondReturn is the 20-day equivalent of a 2%/yr bond yield, used
// when no live yield collaborator is available
const DefaultBondReturn = 0.02 * 20 / 252

// Compute derives all six components from a bar series ending on the
// scoring date plus the day's average article polarity
func Compute(bars []market.Bar, avgPolarity, bondReturn float64) Components {
	return Components{
		Momentum:       Momentum(bars),
		PriceStrength:  PriceStrength(bars),
		Volume:         VolumeScore(bars),
		Volatility:     Volatility(bars),
		EquityVsBonds:  EquityVsBonds(bars, bondReturn),
		MediaSentiment: MediaSentiment(avgPolarity),
	}
}

// Momentum compares the last 125-day mean close against the previous
// 125-day mean. Needs 250 bars; less is neutral.
func Momentum(bars []market.Bar) float64 {
	if len(bars) < 250 {
		return neutral
	}

	recent := meanClose(bars[len(bars)-125:])
	previous := meanClose(bars[len(bars)-250 : len(bars)-125])
	if previous == 0 {
		return neutral
	}

	pct := (recent - previous) / previous * 100
	return formulas.Clamp(50+2*pct, 0, 100)
}

// PriceStrength positions the latest close within the 52-week range.
// Needs 252 bars; a degenerate range is neutral.
func PriceStrength(bars []market.Bar) float64 {
	if len(bars) < 252 {
		return neutral
	}

	yearly := bars[len(bars)-252:]
	high := yearly[0].High
	low := yearly[0].Low
	for _, bar := range yearly[1:] {
		high = math.Max(high, bar.High)
		low = math.Min(low, bar.Low)
	}

	if high == low {
		return neutral
	}

	position := (yearly[len(yearly)-1].Close - low) / (high - low)
	return formulas.Clamp(position*100, 0, 100)
}

// VolumeScore compares the latest volume to its 20-day mean. Needs 30
// bars; a ratio of 1 scores 50, capped at 100.
func VolumeScore(bars []market.Bar) float64 {
	if len(bars) < 30 {
		return neutral
	}

	window := bars[len(bars)-20:]
	total := 0.0
	for _, bar := range window {
		total += float64(bar.Volume)
	}
	mean := total / float64(len(window))
	if mean == 0 {
		return neutral
	}

	ratio := float64(bars[len(bars)-1].Volume) / mean
	return formulas.Clamp(ratio*50, 0, 100)
}

// Volatility maps 30-day annualized volatility inversely: calm markets
// score high (greed), turbulent ones low (fear). Needs 30 bars.
func Volatility(bars []market.Bar) float64 {
	if len(bars) < 30 {
		return neutral
	}

	closes := make([]float64, 0, 30)
	for _, bar := range bars[len(bars)-30:] {
		closes = append(closes, bar.Close)
	}

	returns := formulas.CalculateReturns(closes)
	if len(returns) == 0 {
		return neutral
	}

	vol := formulas.AnnualizedVolatility(returns)
	return formulas.Clamp(100-vol*1000, 0, 100)
}

// EquityVsBonds compares the 20-day equity return against an exogenous
// bond return. Needs 20 bars.
func EquityVsBonds(bars []market.Bar, bondReturn float64) float64 {
	if len(bars) < 20 {
		return neutral
	}

	window := bars[len(bars)-20:]
	first := window[0].Close
	if first == 0 {
		return neutral
	}

	equityReturn := (window[len(window)-1].Close - first) / first
	rel := equityReturn - bondReturn
	return formulas.Clamp(50+rel*1000, 0, 100)
}

// MediaSentiment maps the day's average polarity from [-1,+1] to [0,100].
// No articles means zero polarity, which lands on neutral.
func MediaSentiment(avgPolarity float64) float64 {
	return formulas.Clamp((avgPolarity+1)*50, 0, 100)
}

func meanClose(bars []market.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	total := 0.0
	for _, bar := range bars {
		total += bar.Close
	}
	return total / float64(len(bars))
}
