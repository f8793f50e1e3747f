// Package sentiment scores French financial news for the media-sentiment
// component. Two analyzers implement the same contract: an LLM-backed one
// and a Morocco-context lexicon used standalone or as fallback.
package sentiment

import "context"

// Result is one article's sentiment
type Result struct {
	Score      float64 `json:"score"`      // [-1, +1]
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // [0, 1]
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Analyzer scores a single article from its title and summary
type Analyzer interface {
	ScoreArticle(ctx context.Context, title, summary string) (Result, error)
	Name() string
}

const (
	LabelVeryNegative = "Very Negative"
	LabelNegative     = "Negative"
	LabelNeutral      = "Neutral"
	LabelPositive     = "Positive"
	LabelVeryPositive = "Very Positive"
)

// LabelFor maps a polarity score to its band
func LabelFor(score float64) string {
	switch {
	case score >= 0.6:
		return LabelVeryPositive
	case score >= 0.3:
		return LabelPositive
	case score <= -0.6:
		return LabelVeryNegative
	case score <= -0.3:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// NormalizeTo100 maps a polarity in [-1,+1] linearly to [0,100]
func NormalizeTo100(score float64) float64 {
	return (score + 1.0) * 50.0
}

// DailyScore is the confidence-weighted average polarity of a day's
// articles. Zero total confidence degrades to a simple average; no
// articles yields 0 (neutral).
func DailyScore(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}

	totalWeight := 0.0
	for _, r := range results {
		totalWeight += r.Confidence
	}

	if totalWeight == 0 {
		sum := 0.0
		for _, r := range results {
			sum += r.Score
		}
		return sum / float64(len(results))
	}

	weighted := 0.0
	for _, r := range results {
		weighted += r.Score * r.Confidence
	}
	return weighted / totalWeight
}
