package index

// Weights holds the contribution of each component to the composite
type Weights struct {
	Momentum       float64 `json:"momentum"`
	PriceStrength  float64 `json:"price_strength"`
	Volume         float64 `json:"volume"`
	Volatility     float64 `json:"volatility"`
	EquityVsBonds  float64 `json:"equity_vs_bonds"`
	MediaSentiment float64 `json:"media_sentiment"`
}

// DefaultWeights is the published weight set
var DefaultWeights = Weights{
	Momentum:       0.20,
	PriceStrength:  0.15,
	Volume:         0.15,
	Volatility:     0.20,
	EquityVsBonds:  0.15,
	MediaSentiment: 0.15,
}

// Total sums the weights
func (w Weights) Total() float64 {
	return w.Momentum + w.PriceStrength + w.Volume + w.Volatility + w.EquityVsBonds + w.MediaSentiment
}

// Aggregate computes the weighted composite. A zero total weight has no
// defined composite and degrades to neutral.
func Aggregate(c Components, w Weights) float64 {
	total := w.Total()
	if total == 0 {
		return neutral
	}

	sum := c.Momentum*w.Momentum +
		c.PriceStrength*w.PriceStrength +
		c.Volume*w.Volume +
		c.Volatility*w.Volatility +
		c.EquityVsBonds*w.EquityVsBonds +
		c.MediaSentiment*w.MediaSentiment

	return sum / total
}

// Interpretation bands
const (
	LabelExtremeGreed = "Extreme Greed"
	LabelGreed        = "Greed"
	LabelNeutral      = "Neutral"
	LabelFear         = "Fear"
	LabelExtremeFear  = "Extreme Fear"
)

// Label maps a composite score to its interpretation band
func Label(score float64) string {
	switch {
	case score >= 75:
		return LabelExtremeGreed
	case score >= 60:
		return LabelGreed
	case score >= 40:
		return LabelNeutral
	case score >= 25:
		return LabelFear
	default:
		return LabelExtremeFear
	}
}
