package index

import "github.com/ybenkirane/casagreed/pkg/formulas"

// DefaultScalerWindow is the rolling window, in days, of stored component
// values used for min-max normalization
const DefaultScalerWindow = 90

// Scaler normalizes raw component values against the empirical range of
// recent history for the same component, adapting the scale to current
// market conditions. History is derived on demand from stored snapshots.
type Scaler struct {
	WindowDays int
}

// NewScaler creates a scaler over the given trailing window
func NewScaler(windowDays int) *Scaler {
	if windowDays <= 0 {
		windowDays = DefaultScalerWindow
	}
	return &Scaler{WindowDays: windowDays}
}

// Scale positions raw within the [min,max] of history, mapped to [0,100].
// Under 2 history points, the raw value passes through. A degenerate
// range (all history equal) returns 50.
func (s *Scaler) Scale(raw float64, history []float64) float64 {
	if len(history) < 2 {
		return raw
	}

	lo, hi := history[0], history[0]
	for _, v := range history[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		return 50.0
	}

	return formulas.Clamp((raw-lo)/(hi-lo)*100, 0, 100)
}

// ComponentHistory holds the stored raw values per component over the
// scaler window
type ComponentHistory struct {
	Momentum       []float64
	PriceStrength  []float64
	Volume         []float64
	Volatility     []float64
	EquityVsBonds  []float64
	MediaSentiment []float64
}

// ScaleAll normalizes every component against its own history
func (s *Scaler) ScaleAll(raw Components, history ComponentHistory) Components {
	return Components{
		Momentum:       s.Scale(raw.Momentum, history.Momentum),
		PriceStrength:  s.Scale(raw.PriceStrength, history.PriceStrength),
		Volume:         s.Scale(raw.Volume, history.Volume),
		Volatility:     s.Scale(raw.Volatility, history.Volatility),
		EquityVsBonds:  s.Scale(raw.EquityVsBonds, history.EquityVsBonds),
		MediaSentiment: s.Scale(raw.MediaSentiment, history.MediaSentiment),
	}
}
